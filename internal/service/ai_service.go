package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"lingo_edu_backend/internal/config"
	"lingo_edu_backend/internal/util"
	"net/http"
	"time"
)

// AIService 封装生成式评估服务的文本生成接口
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type generateTextRequest struct {
	Prompt          textPrompt `json:"prompt"`
	Temperature     float64    `json:"temperature"`
	MaxOutputTokens int        `json:"maxOutputTokens"`
}

type textPrompt struct {
	Text string `json:"text"`
}

type generateTextResponse struct {
	Candidates []struct {
		Output string `json:"output"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateText 调用文本生成接口，返回首个候选的原始文本。
// 评估提示词要求严格 JSON 输出，因此温度固定为 0。
func (s *AIService) GenerateText(ctx context.Context, prompt string) (string, error) {
	reqBody := generateTextRequest{
		Prompt:          textPrompt{Text: prompt},
		Temperature:     0,
		MaxOutputTokens: 512,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateText", s.config.BaseURL, s.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: generate API status %d: %s", util.ErrProviderUnavailable, resp.StatusCode, string(body))
	}

	var result generateTextResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrProviderUnavailable, err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%w: %s", util.ErrProviderUnavailable, result.Error.Message)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: model returned no candidates", util.ErrProviderUnavailable)
	}

	return result.Candidates[0].Output, nil
}
