package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/www"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-ppe/compliance"
	"github.com/nvr-ai/go-ppe/controller"
	"github.com/nvr-ai/go-ppe/images"
	"github.com/nvr-ai/go-ppe/store"
	"github.com/nvr-ai/go-ppe/video"
)

// uploadTypes maps accepted upload content types to the kind of check run on them.
var uploadTypes = map[string]store.FileType{
	"image/jpeg":      store.FileTypeImage,
	"image/jpg":       store.FileTypeImage,
	"image/png":       store.FileTypeImage,
	"image/webp":      store.FileTypeImage,
	"video/mp4":       store.FileTypeVideo,
	"video/avi":       store.FileTypeVideo,
	"video/x-msvideo": store.FileTypeVideo,
	"video/quicktime": store.FileTypeVideo,
}

type pingResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// DetectionResponse is a stored decision as returned by the API.
type DetectionResponse struct {
	ID        int64          `json:"id"`
	RequestID string         `json:"request_id"`
	FilePath  string         `json:"file_path"`
	FileType  store.FileType `json:"file_type"`
	CreatedAt int64          `json:"created_at"`
	compliance.Verdict
}

// DashboardResponse summarizes the decision history.
type DashboardResponse struct {
	TotalDetections int64               `json:"total_detections"`
	Accepted        int64               `json:"accepted"`
	Denied          int64               `json:"denied"`
	Recent          []DetectionResponse `json:"recent"`
}

const dashboardRecent = 10

func toResponse(rec *store.Record) (DetectionResponse, error) {
	v, err := rec.Verdict()
	if err != nil {
		return DetectionResponse{}, err
	}
	return DetectionResponse{
		ID:        rec.ID,
		RequestID: rec.RequestID,
		FilePath:  rec.FilePath,
		FileType:  rec.FileType,
		CreatedAt: int64(rec.CreatedAt),
		Verdict:   v,
	}, nil
}

func toResponses(records []store.Record) ([]DetectionResponse, error) {
	out := make([]DetectionResponse, 0, len(records))
	for i := range records {
		resp, err := toResponse(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, &pingResponse{Message: "PPE gate API", Status: "running"})
}

func (s *Server) httpDetect(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	maxSize := int64(s.config.MaxUploadMB) * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		www.PanicBadRequestf("Expected a multipart upload in field 'file': %v", err)
	}
	defer file.Close()

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	fileType, ok := uploadTypes[contentType]
	if !ok {
		www.PanicBadRequestf("Unsupported file type '%v'. Upload a JPEG, PNG or WebP image, or an MP4, AVI or MOV video", contentType)
	}

	data, err := io.ReadAll(file)
	www.Check(err)
	path := filepath.Join(s.config.UploadDir, uuid.NewString()+"_"+filepath.Base(header.Filename))
	if err := os.WriteFile(path, data, 0o660); err != nil {
		www.PanicServerErrorf("Failed to save upload: %v", err)
	}
	// Uploads that never reach the store are removed, including on panics
	// raised by www.Check and friends.
	recorded := false
	defer func() {
		if !recorded {
			if err := os.Remove(path); err != nil {
				s.log.Warnf("Failed to remove rejected upload '%v': %v", path, err)
			}
		}
	}()
	s.log.Infof("Received %v upload '%v' (%v bytes)", fileType, header.Filename, len(data))

	var verdict compliance.Verdict
	switch fileType {
	case store.FileTypeImage:
		img, _, err := images.Decode(data)
		if err != nil {
			www.PanicBadRequestf("Failed to decode image: %v", err)
		}
		verdict = s.controller.CheckImage(r.Context(), img)
	case store.FileTypeVideo:
		if s.frames == nil {
			s.log.Warnf("No video decoder configured, returning fallback verdict for '%v'", header.Filename)
			verdict = s.controller.Engine.Fallback()
			break
		}
		frames, err := s.frames.Frames(path)
		if errors.Is(err, video.ErrNoFrames) {
			www.SendError(w, fmt.Sprintf("Could not extract frames from video '%v'", header.Filename), http.StatusUnprocessableEntity)
			return
		}
		www.Check(err)
		verdict, err = s.controller.CheckFrames(r.Context(), controller.FramesFromImages(frames))
		www.Check(err)
	}

	rec, err := s.store.Save(fileType, path, verdict)
	www.Check(err)
	recorded = true
	resp, err := toResponse(rec)
	www.Check(err)
	www.SendJSON(w, &resp)
}

func (s *Server) httpListDetections(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	skip := www.QueryInt(r, "skip")
	limit := www.QueryInt(r, "limit")
	records, err := s.store.List(skip, limit)
	www.Check(err)
	resp, err := toResponses(records)
	www.Check(err)
	www.SendJSON(w, resp)
}

func (s *Server) httpDashboard(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	stats, err := s.store.Dashboard(dashboardRecent)
	www.Check(err)
	recent, err := toResponses(stats.Recent)
	www.Check(err)
	www.SendJSON(w, &DashboardResponse{
		TotalDetections: stats.TotalDetections,
		Accepted:        stats.Accepted,
		Denied:          stats.Denied,
		Recent:          recent,
	})
}

func (s *Server) httpStats(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, s.controller.Profiler.Snapshot())
}
