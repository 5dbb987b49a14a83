package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/store"
)

type stubController struct {
	enabled bool
	tuning  config.Tuning
}

func (s *stubController) Status() app.Status {
	return app.Status{Enabled: s.enabled, Gesture: gesture.None}
}

func (s *stubController) SetEnabled(_ context.Context, on bool) error {
	s.enabled = on
	return nil
}

func (s *stubController) Tuning() config.Tuning { return s.tuning }

func (s *stubController) ApplyTuning(t config.Tuning) error {
	s.tuning = t
	return nil
}

func (s *stubController) CaptureSample(gesture.Label) (*store.Sample, error) {
	return nil, app.ErrNoHand
}

func (s *stubController) Report() (gesture.Report, error) {
	return gesture.Report{}, nil
}

func TestServer_OptionalRoutes(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/status", "/api/mode", "/api/tuning", "/api/samples", "/api/overlay", "/api/stream"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestServer_ControllerRoutes(t *testing.T) {
	ctrl := &stubController{tuning: config.Default().Tuning()}
	s := New(Config{Controller: ctrl})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/mode", strings.NewReader(`{"enabled": true}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ctrl.enabled)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status app.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Enabled)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tuning", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SamplesRoute(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	s := New(Config{Store: st, Controller: &stubController{tuning: config.Default().Tuning()}})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/samples", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"samples": []}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/samples", strings.NewReader(`{"label": "point"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_Stream(t *testing.T) {
	preview := capture.NewPreview()
	preview.StoreJPEG([]byte("\xff\xd8jpeg\xff\xd9"))

	srv := httptest.NewServer(New(Config{Preview: preview}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", line)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Length: 8\r\n", line)
	_, err = r.ReadString('\n')
	require.NoError(t, err)

	body := make([]byte, 8)
	_, err = io.ReadFull(r, body)
	require.NoError(t, err)
	assert.Equal(t, "\xff\xd8jpeg\xff\xd9", string(body))
}

func TestServer_Overlay(t *testing.T) {
	hub := overlay.NewHub(1000, nil)
	defer hub.Close()

	srv := httptest.NewServer(New(Config{Overlay: hub}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/overlay"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Draw(context.Background(), overlay.Frame{Gesture: "point", HandPresent: true}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var got overlay.Frame
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "point", got.Gesture)
}

func TestServer_Run(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(Config{}).Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second * 6):
		t.Fatal("server did not stop")
	}
}
