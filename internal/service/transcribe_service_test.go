package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"lingo_edu_backend/internal/config"
	"lingo_edu_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF fake audio"), 0o644))
	return path
}

// transcribeServer 模拟异步转写服务：上传、建任务、按脚本推进状态
func transcribeServer(t *testing.T, statuses []transcriptJobResponse) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(uploadResponse{UploadURL: "https://cdn.example.com/audio/abc"})
	})
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://cdn.example.com/audio/abc", req["audio_url"])
		json.NewEncoder(w).Encode(transcriptJobResponse{ID: "job-1", Status: "queued"})
	})
	mux.HandleFunc("/transcript/job-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		idx := int(n) - 1
		if idx >= len(statuses) {
			idx = len(statuses) - 1
		}
		json.NewEncoder(w).Encode(statuses[idx])
	})

	return httptest.NewServer(mux), &polls
}

func newTestTranscribeService(baseURL string, maxPolls int) *TranscribeService {
	return NewTranscribeService(config.TranscribeConfig{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		PollInterval: time.Millisecond,
		MaxPolls:     maxPolls,
	})
}

func TestTranscribeCompletes(t *testing.T) {
	srv, polls := transcribeServer(t, []transcriptJobResponse{
		{ID: "job-1", Status: "queued"},
		{ID: "job-1", Status: "processing"},
		{ID: "job-1", Status: "completed", Text: "hello world"},
	})
	defer srv.Close()

	svc := newTestTranscribeService(srv.URL, 10)

	text, err := svc.Transcribe(context.Background(), writeTempAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(polls))
}

func TestTranscribeJobError(t *testing.T) {
	srv, _ := transcribeServer(t, []transcriptJobResponse{
		{ID: "job-1", Status: "error", Error: "audio unreadable"},
	})
	defer srv.Close()

	svc := newTestTranscribeService(srv.URL, 10)

	_, err := svc.Transcribe(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrTranscriptionFailed)
	assert.Contains(t, err.Error(), "audio unreadable")
}

func TestTranscribePollLimitExceeded(t *testing.T) {
	srv, polls := transcribeServer(t, []transcriptJobResponse{
		{ID: "job-1", Status: "processing"},
	})
	defer srv.Close()

	svc := newTestTranscribeService(srv.URL, 3)

	_, err := svc.Transcribe(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrTranscribeTimeout)
	assert.NotErrorIs(t, err, util.ErrTranscriptionFailed)
	assert.Equal(t, int32(3), atomic.LoadInt32(polls))
}

func TestTranscribeContextCancelled(t *testing.T) {
	srv, _ := transcribeServer(t, []transcriptJobResponse{
		{ID: "job-1", Status: "processing"},
	})
	defer srv.Close()

	svc := NewTranscribeService(config.TranscribeConfig{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		PollInterval: time.Hour, // 第一次 tick 前就取消
		MaxPolls:     10,
	})

	// 上传和建任务先完成，随后在轮询等待期间取消
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	_, err := svc.Transcribe(ctx, writeTempAudio(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrTranscribeTimeout)
}

func TestTranscribeUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service down", http.StatusBadGateway)
	}))
	defer srv.Close()

	svc := newTestTranscribeService(srv.URL, 3)

	_, err := svc.Transcribe(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrProviderUnavailable)
}

func TestTranscribeMissingFile(t *testing.T) {
	svc := newTestTranscribeService("http://127.0.0.1:0", 3)

	_, err := svc.Transcribe(context.Background(), "/nonexistent/audio.wav")
	assert.Error(t, err)
}
