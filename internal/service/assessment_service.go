package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/util"
	"lingo_edu_backend/pkg/logger"
	"lingo_edu_backend/pkg/monitoring"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AssessmentService 评估请求的总入口：调度评估、落进度、发徽章。
// 每个请求是独立的无状态工作单元，步骤严格串行。
type AssessmentService struct {
	Evaluation *EvaluationService
	Progress   *ProgressService
	Storage    *StorageService
	Redis      *redis.Client
}

func NewAssessmentService(evaluation *EvaluationService, progress *ProgressService, storage *StorageService, rdb *redis.Client) *AssessmentService {
	return &AssessmentService{
		Evaluation: evaluation,
		Progress:   progress,
		Storage:    storage,
		Redis:      rdb,
	}
}

// AssessmentOutcome 一次评估请求的完整返回
type AssessmentOutcome struct {
	Result   *AssessmentResult       `json:"result"`
	Progress *model.ProgressSnapshot `json:"progress"`
}

// 同一用户的并发评估以 Redis 标记拦截，降低进度写入的竞争窗口
const inflightTTL = 90 * time.Second

func (s *AssessmentService) acquireInflight(ctx context.Context, userID uint) (func(), error) {
	if s.Redis == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf("assess:inflight:%d", userID)
	ok, err := s.Redis.SetNX(ctx, key, 1, inflightTTL).Result()
	if err != nil {
		// Redis 故障不阻塞评估，退化为无标记
		logger.Log.Warn("inflight marker unavailable", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, util.ErrProgressConflict
	}
	return func() {
		s.Redis.Del(context.Background(), key)
	}, nil
}

// SubmitWriting 书面文本评估
func (s *AssessmentService) SubmitWriting(ctx context.Context, userID uint, text string) (*AssessmentOutcome, error) {
	release, err := s.acquireInflight(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.Evaluation.EvaluateWriting(ctx, text)
	if err != nil {
		monitoring.AssessmentCounter.WithLabelValues(model.AssessmentWriting, "error").Inc()
		return nil, err
	}

	input := map[string]string{"text": text}
	progress, err := s.Progress.Reconcile(userID, model.AssessmentWriting, input, result, "")
	if err != nil {
		monitoring.AssessmentCounter.WithLabelValues(model.AssessmentWriting, "persist_error").Inc()
		return nil, err
	}

	monitoring.AssessmentCounter.WithLabelValues(model.AssessmentWriting, "ok").Inc()
	return &AssessmentOutcome{Result: result, Progress: progress}, nil
}

// SubmitSpeaking 口语样本评估：校验音频、留存原始样本、转写后评估
func (s *AssessmentService) SubmitSpeaking(ctx context.Context, userID uint, audioPath string) (*AssessmentOutcome, error) {
	release, err := s.acquireInflight(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	info, err := util.GetAudioInfo(audioPath)
	if err != nil {
		return nil, err
	}
	if info.Duration > 0 && info.Duration < 1.0 {
		return nil, util.ErrAudioTooShort
	}

	audioURL := s.retainAudio(ctx, userID, audioPath, info)

	result, transcript, err := s.Evaluation.EvaluateSpeaking(ctx, audioPath)
	if err != nil {
		monitoring.AssessmentCounter.WithLabelValues(model.AssessmentSpeaking, "error").Inc()
		return nil, err
	}

	input := map[string]interface{}{
		"transcript": transcript,
		"audio":      info,
	}
	progress, err := s.Progress.Reconcile(userID, model.AssessmentSpeaking, input, result, audioURL)
	if err != nil {
		monitoring.AssessmentCounter.WithLabelValues(model.AssessmentSpeaking, "persist_error").Inc()
		return nil, err
	}

	monitoring.AssessmentCounter.WithLabelValues(model.AssessmentSpeaking, "ok").Inc()
	return &AssessmentOutcome{Result: result, Progress: progress}, nil
}

// retainAudio 把原始音频存入对象存储，失败只记日志不影响评估
func (s *AssessmentService) retainAudio(ctx context.Context, userID uint, audioPath string, info *util.AudioInfo) string {
	if s.Storage == nil {
		return ""
	}

	f, err := os.Open(audioPath)
	if err != nil {
		logger.Log.Warn("failed to open audio for retention", zap.Error(err))
		return ""
	}
	defer f.Close()

	filename := fmt.Sprintf("speaking/%d/%s%s", userID, model.GenerateUUID(), filepath.Ext(audioPath))
	url, err := s.Storage.Upload(ctx, filename, f, info.Size, "audio/"+info.Format)
	if err != nil {
		logger.Log.Warn("failed to retain audio sample", zap.Error(err))
		return ""
	}
	return url
}

// SubmitPlacement 定级测试评估
func (s *AssessmentService) SubmitPlacement(ctx context.Context, userID uint, claimedLevel string, answers []model.QuestionAnswer) (*AssessmentOutcome, error) {
	release, err := s.acquireInflight(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.Evaluation.EvaluatePlacement(ctx, claimedLevel, answers)
	if err != nil {
		monitoring.AssessmentCounter.WithLabelValues(model.AssessmentPlacement, "error").Inc()
		return nil, err
	}

	input := map[string]interface{}{
		"claimedLevel": claimedLevel,
		"answers":      answers,
	}
	progress, err := s.Progress.Reconcile(userID, model.AssessmentPlacement, input, result, "")
	if err != nil {
		monitoring.AssessmentCounter.WithLabelValues(model.AssessmentPlacement, "persist_error").Inc()
		return nil, err
	}

	monitoring.AssessmentCounter.WithLabelValues(model.AssessmentPlacement, "ok").Inc()
	return &AssessmentOutcome{Result: result, Progress: progress}, nil
}

// 学生可见的题目视图（不含答案）
type StudentQuestion struct {
	ID           uint            `json:"id"`
	QuestionType string          `json:"questionType"`
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Options      json.RawMessage `json:"options,omitempty"`
	Order        int             `json:"order"`
}

const questionCacheKey = "assess:questions"
const questionCacheTTL = 5 * time.Minute

// ListStudentQuestions 学生端题组，带 Redis 缓存，答案键永不下发
func (s *AssessmentService) ListStudentQuestions(ctx context.Context) ([]StudentQuestion, error) {
	if s.Redis != nil {
		if cached, err := s.Redis.Get(ctx, questionCacheKey).Bytes(); err == nil {
			var res []StudentQuestion
			if json.Unmarshal(cached, &res) == nil {
				return res, nil
			}
		}
	}

	qs, err := s.Evaluation.QuestionRepo.ListEnabled()
	if err != nil {
		return nil, err
	}

	res := make([]StudentQuestion, len(qs))
	for i, q := range qs {
		res[i] = StudentQuestion{
			ID:           q.ID,
			QuestionType: q.QuestionType,
			Title:        q.Title,
			Content:      q.Content,
			Options:      q.Options,
			Order:        q.Order,
		}
	}

	if s.Redis != nil {
		if data, err := json.Marshal(res); err == nil {
			s.Redis.Set(ctx, questionCacheKey, data, questionCacheTTL)
		}
	}

	return res, nil
}

// InvalidateQuestionCache 题库变更后清缓存
func (s *AssessmentService) InvalidateQuestionCache(ctx context.Context) {
	if s.Redis != nil {
		s.Redis.Del(ctx, questionCacheKey)
	}
}
