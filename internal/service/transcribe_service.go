package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"lingo_edu_backend/internal/config"
	"lingo_edu_backend/internal/util"
	"lingo_edu_backend/pkg/monitoring"
	"net/http"
	"os"
	"time"
)

// TranscribeService 驱动外部异步转写任务：上传音频、创建任务、
// 轮询至终态。轮询有上限且响应 ctx 取消，超限返回 ErrTranscribeTimeout。
type TranscribeService struct {
	config config.TranscribeConfig
	client *http.Client
}

func NewTranscribeService(cfg config.TranscribeConfig) *TranscribeService {
	return &TranscribeService{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Transcribe 将本地音频文件转写为文本。
// 除对外网络调用外无任何副作用，不触碰持久化状态。
func (s *TranscribeService) Transcribe(ctx context.Context, audioPath string) (string, error) {
	audioURL, err := s.uploadAudio(ctx, audioPath)
	if err != nil {
		return "", err
	}

	jobID, err := s.startJob(ctx, audioURL)
	if err != nil {
		return "", err
	}

	return s.pollJob(ctx, jobID)
}

func (s *TranscribeService) uploadAudio(ctx context.Context, audioPath string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.config.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: upload status %d: %s", util.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	if result.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned empty url", util.ErrProviderUnavailable)
	}

	return result.UploadURL, nil
}

func (s *TranscribeService) startJob(ctx context.Context, audioURL string) (string, error) {
	jsonData, _ := json.Marshal(map[string]string{"audio_url": audioURL})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/transcript", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: transcript submit status %d: %s", util.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var result transcriptJobResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: transcript submit returned empty job id", util.ErrProviderUnavailable)
	}

	return result.ID, nil
}

func (s *TranscribeService) pollJob(ctx context.Context, jobID string) (string, error) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.config.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", util.ErrTranscribeTimeout, ctx.Err())
		case <-ticker.C:
		}

		monitoring.TranscriptionPolls.Inc()

		job, err := s.fetchJob(ctx, jobID)
		if err != nil {
			return "", err
		}

		switch job.Status {
		case "completed":
			return job.Text, nil
		case "error":
			return "", fmt.Errorf("%w: %s", util.ErrTranscriptionFailed, job.Error)
		default:
			// queued / processing 继续轮询
		}
	}

	return "", fmt.Errorf("%w: job %s still pending after %d polls", util.ErrTranscribeTimeout, jobID, s.config.MaxPolls)
}

func (s *TranscribeService) fetchJob(ctx context.Context, jobID string) (*transcriptJobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"/transcript/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: transcript status %d: %s", util.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var job transcriptJobResponse
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	return &job, nil
}
