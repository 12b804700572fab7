package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-ppe/compliance"
	"github.com/nvr-ai/go-ppe/controller"
	"github.com/nvr-ai/go-ppe/profiler"
	"github.com/nvr-ai/go-ppe/store"
	"github.com/nvr-ai/go-ppe/video"
)

// fakeDetector returns the same detections for every image.
type fakeDetector struct {
	detections []compliance.Detection
	err        error
}

func (f *fakeDetector) Detect(ctx context.Context, img image.Image) ([]compliance.Detection, error) {
	return f.detections, f.err
}

// fakeFrames returns a fixed number of blank frames.
type fakeFrames struct {
	count int
	paths []string
}

func (f *fakeFrames) Frames(path string) ([]image.Image, error) {
	f.paths = append(f.paths, path)
	if f.count == 0 {
		return nil, errors.Wrapf(video.ErrNoFrames, "%v", path)
	}
	frames := make([]image.Image, f.count)
	for i := range frames {
		frames[i] = image.NewRGBA(image.Rect(0, 0, 8, 8))
	}
	return frames, nil
}

var equipped = []compliance.Detection{
	compliance.NewDetection("Person", 0.9, 0, 0, 100, 200),
	compliance.NewDetection("Hardhat", 0.8, 10, 0, 90, 50),
	compliance.NewDetection("Safety Vest", 0.7, 10, 50, 90, 150),
}

type fixture struct {
	server *Server
	store  *store.Store
	frames *fakeFrames
	config Config
}

func newFixture(t *testing.T, detector controller.Detector) *fixture {
	log := logs.NewTestingLog(t)
	dir := t.TempDir()

	engine, err := compliance.NewEngine(compliance.DefaultConfig(), log)
	require.NoError(t, err)
	st, err := store.Open(log, filepath.Join(dir, "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := DefaultConfig()
	cfg.UploadDir = filepath.Join(dir, "uploads")
	frames := &fakeFrames{count: 3}

	s, err := New(cfg, controller.New(engine, detector, log, 2), st, frames, log)
	require.NoError(t, err)
	return &fixture{server: s, store: st, frames: frames, config: cfg}
}

func pngBytes(t *testing.T) []byte {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/detect", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestPing(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(httptest.NewRequest("GET", "/api/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"PPE gate API","status":"running"}`, rec.Body.String())
}

func TestDetect_Image(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: equipped})

	rec := f.do(uploadRequest(t, "gate.png", "image/png", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsSafe)
	assert.Equal(t, 75, resp.Confidence)
	assert.Equal(t, []string{"Hardhat", "Safety Vest"}, resp.DetectedItems)
	assert.Equal(t, []string{}, resp.MissingItems)
	assert.Equal(t, store.FileTypeImage, resp.FileType)
	assert.NotZero(t, resp.ID)

	assert.Equal(t, f.config.UploadDir, filepath.Dir(resp.FilePath))
	assert.NotEmpty(t, resp.RequestID)
	_, err := os.Stat(resp.FilePath)
	assert.NoError(t, err, "upload is kept on disk")

	records, err := f.store.List(0, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, resp.ID, records[0].ID)
}

func TestDetect_ImageWithoutDetector(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(uploadRequest(t, "gate.png", "image/png", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsSafe)
	assert.Equal(t, 0, resp.Confidence)
	assert.Equal(t, compliance.ReasonDetectorUnavailable, resp.Reason)
}

func TestDetect_Video(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: equipped})

	rec := f.do(uploadRequest(t, "walk.mp4", "video/mp4", []byte("not really a video")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp DetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.IsSafe)
	assert.Equal(t, store.FileTypeVideo, resp.FileType)
	require.Len(t, f.frames.paths, 1)
	assert.Equal(t, resp.FilePath, f.frames.paths[0])
}

func TestDetect_VideoWithoutFrames(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: equipped})
	f.frames.count = 0

	rec := f.do(uploadRequest(t, "broken.avi", "video/x-msvideo", []byte("garbage")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	records, err := f.store.List(0, 0)
	require.NoError(t, err)
	assert.Empty(t, records, "nothing is recorded")
	assert.Empty(t, uploads(t, f), "rejected upload is removed")
}

func TestDetect_BadRequests(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: equipped})

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"unsupported type", uploadRequest(t, "notes.txt", "text/plain", []byte("hello"))},
		{"gif", uploadRequest(t, "anim.gif", "image/gif", []byte("GIF89a"))},
		{"undecodable image", uploadRequest(t, "gate.jpg", "image/jpeg", []byte("not a jpeg"))},
		{"no file field", httptest.NewRequest("POST", "/api/detect", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, uploads(t, f))
		})
	}
}

func TestDetect_KeepsRecordedUpload(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: equipped})

	rec := f.do(uploadRequest(t, "gate.png", "image/png", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, uploads(t, f), 1)
}

// uploads lists the files left in the upload directory.
func uploads(t *testing.T, f *fixture) []string {
	entries, err := os.ReadDir(f.config.UploadDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDetectionsAndDashboard(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: equipped})

	// Two approved through the API, one denied straight into the store.
	for i := 0; i < 2; i++ {
		rec := f.do(uploadRequest(t, "gate.png", "image/png", pngBytes(t)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	_, err := f.store.Save(store.FileTypeImage, "x.jpg", compliance.FallbackVerdict([]string{"Hardhat"}))
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest("GET", "/api/detections?skip=1&limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []DetectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.True(t, list[0].IsSafe)
	assert.Greater(t, list[0].ID, list[1].ID)

	rec = f.do(httptest.NewRequest("GET", "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var dash DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, int64(3), dash.TotalDetections)
	assert.Equal(t, int64(2), dash.Accepted)
	assert.Equal(t, int64(1), dash.Denied)
	require.Len(t, dash.Recent, 3)
	assert.False(t, dash.Recent[0].IsSafe)
	assert.Equal(t, []string{"Hardhat"}, dash.Recent[0].MissingItems)
}

func TestStats(t *testing.T) {
	f := newFixture(t, &fakeDetector{detections: equipped})
	f.server.controller.Profiler = profiler.New(0)

	rec := f.do(uploadRequest(t, "gate.png", "image/png", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(httptest.NewRequest("GET", "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snap profiler.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, profiler.OpCheckImage, snap.Operations[0].Name)
	assert.Equal(t, profiler.OpDetect, snap.Operations[1].Name)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.Listen = ""
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.UploadDir = " "
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MaxUploadMB = 0
	assert.Error(t, bad.Validate())
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	f.server.config.Listen = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.ListenAndServe(ctx) }()
	cancel()
	assert.NoError(t, <-done)
}
