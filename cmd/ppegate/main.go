package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/compliance"
	"github.com/nvr-ai/go-ppe/config"
	"github.com/nvr-ai/go-ppe/controller"
	"github.com/nvr-ai/go-ppe/images"
	"github.com/nvr-ai/go-ppe/inference"
	"github.com/nvr-ai/go-ppe/inference/detectors"
	"github.com/nvr-ai/go-ppe/profiler"
	"github.com/nvr-ai/go-ppe/server"
	"github.com/nvr-ai/go-ppe/store"
	"github.com/nvr-ai/go-ppe/util"
	"github.com/nvr-ai/go-ppe/video"
)

// Exit codes of the check command.
const (
	exitSafe   = 0
	exitError  = 1
	exitUnsafe = 2
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("ppegate", "Safety equipment entry gate")
	configFile := parser.String("c", "config", &argparse.Options{Help: "YAML configuration file", Default: "ppegate.yaml"})

	checkCmd := parser.NewCommand("check", "Decide whether the person in an image, video or frame directory may enter")
	imagePath := checkCmd.String("i", "image", &argparse.Options{Help: "Image file (jpeg, png, webp)"})
	videoPath := checkCmd.String("v", "video", &argparse.Options{Help: "Video file"})
	framesDir := checkCmd.String("f", "frames", &argparse.Options{Help: "Directory of frame-N images, treated as one video"})
	policy := checkCmd.String("p", "policy", &argparse.Options{Help: "Override the decision policy (spatial, arbitration, lenient)"})

	serveCmd := parser.NewCommand("serve", "Run the HTTP API")
	listen := serveCmd.String("l", "listen", &argparse.Options{Help: "Override the listen address, e.g. :8000"})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(exitError)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(exitError)
	}

	code := exitSafe
	switch {
	case checkCmd.Happened():
		if *policy != "" {
			cfg.Engine.Policy = compliance.PolicyName(*policy)
		}
		code = runCheck(logger, cfg, *imagePath, *videoPath, *framesDir)
	case serveCmd.Happened():
		if *listen != "" {
			cfg.Server.Listen = *listen
		}
		if err := runServe(logger, cfg); err != nil {
			logger.Errorf("%v", err)
			code = exitError
		}
	}
	logger.Close()
	os.Exit(code)
}

// loadDetector returns nil when no model is usable, so that every check
// falls back to the unavailable verdict instead of failing.
func loadDetector(log logs.Log, cfg detectors.Config) (controller.Detector, func()) {
	if cfg.ModelPath == "" {
		log.Warnf("No detector model configured. Every check will be denied as unavailable")
		return nil, func() {}
	}
	det, err := detectors.NewONNXDetector(cfg, log)
	if err != nil {
		log.Warnf("Detector unavailable: %v", err)
		return nil, func() {}
	}
	return det, func() {
		det.Close()
		if err := inference.DestroyEnvironment(); err != nil {
			log.Warnf("Failed to destroy ONNX runtime environment: %v", err)
		}
	}
}

func newController(log logs.Log, cfg *config.Config) (*controller.Controller, func(), error) {
	engine, err := compliance.NewEngine(cfg.Engine, log)
	if err != nil {
		return nil, nil, err
	}
	detector, closeDetector := loadDetector(log, cfg.Detector)
	return controller.New(engine, detector, log, cfg.Workers), closeDetector, nil
}

func runCheck(log logs.Log, cfg *config.Config, imagePath, videoPath, framesDir string) int {
	given := 0
	for _, s := range []string{imagePath, videoPath, framesDir} {
		if s != "" {
			given++
		}
	}
	if given != 1 {
		log.Errorf("Specify exactly one of --image, --video or --frames")
		return exitError
	}

	ctrl, closeDetector, err := newController(log, cfg)
	if err != nil {
		log.Errorf("%v", err)
		return exitError
	}
	defer closeDetector()

	verdict, err := checkInput(context.Background(), log, cfg, ctrl, imagePath, videoPath, framesDir)
	if err != nil {
		log.Errorf("%v", err)
		return exitError
	}

	out, err := json.MarshalIndent(verdict, "", "  ")
	check(err)
	fmt.Println(string(out))

	if verdict.IsSafe {
		return exitSafe
	}
	return exitUnsafe
}

func checkInput(ctx context.Context, log logs.Log, cfg *config.Config, ctrl *controller.Controller, imagePath, videoPath, framesDir string) (compliance.Verdict, error) {
	switch {
	case imagePath != "":
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return compliance.Verdict{}, err
		}
		img, _, err := images.Decode(data)
		if err != nil {
			return compliance.Verdict{}, errors.Wrapf(err, "image %v", imagePath)
		}
		return ctrl.CheckImage(ctx, img), nil

	case videoPath != "":
		frames, err := video.NewSampler(cfg.Video, log).Sample(videoPath)
		if err != nil {
			return compliance.Verdict{}, err
		}
		return ctrl.CheckFrames(ctx, controller.FramesFromImages(frames))

	default:
		files, err := util.LoadDirectoryImageFiles(framesDir)
		if err != nil {
			return compliance.Verdict{}, errors.Wrapf(err, "frames %v", framesDir)
		}
		frames, err := util.DecodeImageFiles(files)
		if err != nil {
			return compliance.Verdict{}, err
		}
		return ctrl.CheckFrames(ctx, controller.FramesFromImages(frames))
	}
}

func runServe(log logs.Log, cfg *config.Config) error {
	ctrl, closeDetector, err := newController(log, cfg)
	if err != nil {
		return err
	}
	defer closeDetector()

	st, err := store.Open(log, cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctrl.Profiler = profiler.New(0)
	defer ctrl.Profiler.LogReport(log)

	srv, err := server.New(cfg.Server, ctrl, st, video.NewSampler(cfg.Video, log), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.ListenAndServe(ctx)
}
