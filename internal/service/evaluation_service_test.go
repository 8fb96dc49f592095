package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/util"
	"lingo_edu_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	return f.transcript, f.err
}

type fakeQuestionSource struct {
	questions []model.AssessmentQuestion
	err       error
}

func (f *fakeQuestionSource) ListEnabled() ([]model.AssessmentQuestion, error) {
	return f.questions, f.err
}

func mcQuestion(id uint, answer string) model.AssessmentQuestion {
	q := model.AssessmentQuestion{
		QuestionType: model.QuestionMultipleChoice,
		Content:      fmt.Sprintf("question %d", id),
		Answer:       answer,
		Enabled:      true,
	}
	q.ID = id
	return q
}

func writingQuestion(id uint) model.AssessmentQuestion {
	q := model.AssessmentQuestion{
		QuestionType: model.QuestionFreeWriting,
		Content:      "Describe a memorable trip.",
		Enabled:      true,
	}
	q.ID = id
	return q
}

func TestGradeChoices(t *testing.T) {
	questions := []model.AssessmentQuestion{
		mcQuestion(1, "goes"),
		mcQuestion(2, "since"),
		mcQuestion(3, "had"),
		mcQuestion(4, "was reviewed"),
		mcQuestion(5, "had"),
		writingQuestion(6),
	}

	tests := []struct {
		name            string
		answers         []model.QuestionAnswer
		expectedCorrect int
		expectedTotal   int
		expectedPercent float64
	}{
		{
			name: "three of five correct",
			answers: []model.QuestionAnswer{
				{QuestionID: 1, Answer: "goes"},
				{QuestionID: 2, Answer: "for"},
				{QuestionID: 3, Answer: "had"},
				{QuestionID: 4, Answer: "was reviewed"},
				{QuestionID: 5, Answer: "did"},
			},
			expectedCorrect: 3,
			expectedTotal:   5,
			expectedPercent: 60,
		},
		{
			name: "missing answers count as wrong",
			answers: []model.QuestionAnswer{
				{QuestionID: 1, Answer: "goes"},
			},
			expectedCorrect: 1,
			expectedTotal:   5,
			expectedPercent: 20,
		},
		{
			name:            "no answers at all",
			answers:         nil,
			expectedCorrect: 0,
			expectedTotal:   5,
			expectedPercent: 0,
		},
		{
			name: "writing answer is never graded as a choice",
			answers: []model.QuestionAnswer{
				{QuestionID: 6, Answer: "a long essay"},
			},
			expectedCorrect: 0,
			expectedTotal:   5,
			expectedPercent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grade := gradeChoices(questions, tt.answers)
			assert.Equal(t, tt.expectedCorrect, grade.CorrectCount)
			assert.Equal(t, tt.expectedTotal, grade.TotalGraded)
			assert.Equal(t, tt.expectedPercent, grade.Percent)
			assert.Len(t, grade.PerQuestion, tt.expectedTotal)
		})
	}
}

func TestGradeChoicesEmptyBankDoesNotDivideByZero(t *testing.T) {
	grade := gradeChoices([]model.AssessmentQuestion{writingQuestion(1)}, nil)
	assert.Equal(t, 0, grade.TotalGraded)
	assert.Equal(t, 0.0, grade.Percent)
}

func TestEvaluateWriting(t *testing.T) {
	gen := &fakeGenerator{
		response: `{"level":"B2","confidence":0.8,"scores":{"vocabulary":72,"grammar":68,"cohesion":70},"explanation":"solid","improvements":"more linking words"}`,
	}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{})

	result, err := svc.EvaluateWriting(context.Background(), "I have been learning English for three years.")
	require.NoError(t, err)

	assert.Equal(t, "B2", result.Level)
	assert.InDelta(t, 0.8, result.Confidence, 0.0001)
	assert.InDelta(t, 70.4, result.Overall, 0.0001)
	assert.Equal(t, "solid", result.Explanation)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "I have been learning English")
}

func TestEvaluateWritingDegradesOnUnparsableResponse(t *testing.T) {
	gen := &fakeGenerator{response: "I am sorry, I cannot help with that."}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{})

	result, err := svc.EvaluateWriting(context.Background(), "some text")
	require.NoError(t, err)

	assert.Equal(t, model.LevelUnknown, result.Level)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Equal(t, "I am sorry, I cannot help with that.", result.Raw)
}

func TestEvaluateWritingProviderFailureAborts(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("dial tcp: %w", util.ErrProviderUnavailable)}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{})

	_, err := svc.EvaluateWriting(context.Background(), "some text")
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
}

func TestEvaluateSpeaking(t *testing.T) {
	gen := &fakeGenerator{
		response: `{"level":"B1","confidence":0.7,"scores":{"vocabulary":50,"grammar":48,"cohesion":52}}`,
	}
	tr := &fakeTranscriber{transcript: "yesterday I went to the market"}
	svc := NewEvaluationService(gen, tr, &fakeQuestionSource{})

	result, transcript, err := svc.EvaluateSpeaking(context.Background(), "/tmp/sample.wav")
	require.NoError(t, err)

	assert.Equal(t, "B1", result.Level)
	assert.Equal(t, "yesterday I went to the market", transcript)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "yesterday I went to the market")
}

func TestEvaluateSpeakingTranscriptionFailureAborts(t *testing.T) {
	tr := &fakeTranscriber{err: fmt.Errorf("job failed: %w", util.ErrTranscriptionFailed)}
	gen := &fakeGenerator{response: "{}"}
	svc := NewEvaluationService(gen, tr, &fakeQuestionSource{})

	_, _, err := svc.EvaluateSpeaking(context.Background(), "/tmp/sample.wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrTranscriptionFailed)
	// 转写失败时绝不调用模型
	assert.Empty(t, gen.prompts)
}

func placementBank() []model.AssessmentQuestion {
	return []model.AssessmentQuestion{
		mcQuestion(1, "goes"),
		mcQuestion(2, "since"),
		mcQuestion(3, "had"),
		mcQuestion(4, "was reviewed"),
		mcQuestion(5, "had"),
		writingQuestion(6),
	}
}

func TestEvaluatePlacementEmptyBank(t *testing.T) {
	svc := NewEvaluationService(&fakeGenerator{}, &fakeTranscriber{}, &fakeQuestionSource{})

	_, err := svc.EvaluatePlacement(context.Background(), "B1", nil)
	assert.ErrorIs(t, err, util.ErrQuestionBankEmpty)
}

func TestEvaluatePlacementChoiceFallback(t *testing.T) {
	// 写作答案太短，不触发模型，三项子分都取选择题折算分
	gen := &fakeGenerator{response: `{"level":"C2"}`}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{questions: placementBank()})

	answers := []model.QuestionAnswer{
		{QuestionID: 1, Answer: "goes"},
		{QuestionID: 2, Answer: "since"},
		{QuestionID: 3, Answer: "had"},
		{QuestionID: 6, Answer: "short"},
	}

	result, err := svc.EvaluatePlacement(context.Background(), "B2", answers)
	require.NoError(t, err)

	assert.Empty(t, gen.prompts)
	assert.Equal(t, SubScores{Vocabulary: 60, Grammar: 60, Cohesion: 60}, result.Scores)
	assert.InDelta(t, 0.6, result.Confidence, 0.0001)
	assert.Equal(t, "B2", result.Level)
}

func TestEvaluatePlacementModelOverridesScores(t *testing.T) {
	gen := &fakeGenerator{
		response: `{"level":"C1","confidence":0.9,"scores":{"vocabulary":85,"grammar":80,"cohesion":82},"explanation":"strong sample"}`,
	}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{questions: placementBank()})

	answers := []model.QuestionAnswer{
		{QuestionID: 1, Answer: "goes"},
		{QuestionID: 6, Answer: "This is a writing sample that is long enough to be sent to the model for assessment."},
	}

	result, err := svc.EvaluatePlacement(context.Background(), "B1", answers)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, SubScores{Vocabulary: 85, Grammar: 80, Cohesion: 82}, result.Scores)
	assert.InDelta(t, 0.9, result.Confidence, 0.0001)
	assert.Equal(t, "C1", result.Level)
	assert.Equal(t, "strong sample", result.Explanation)
}

func TestEvaluatePlacementClampsModelScores(t *testing.T) {
	// 模型子分与置信度越界时截断入区间，不出现在持久化结果里
	gen := &fakeGenerator{
		response: `{"level":"C2","confidence":1.5,"scores":{"vocabulary":150,"grammar":-20,"cohesion":80}}`,
	}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{questions: placementBank()})

	answers := []model.QuestionAnswer{
		{QuestionID: 1, Answer: "goes"},
		{QuestionID: 6, Answer: "This is a writing sample that is long enough to be sent to the model for assessment."},
	}

	result, err := svc.EvaluatePlacement(context.Background(), "B1", answers)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, SubScores{Vocabulary: 100, Grammar: 0, Cohesion: 80}, result.Scores)
	assert.InDelta(t, 1.0, result.Confidence, 0.0001)
	assert.InDelta(t, 56.0, result.Overall, 0.0001)
	assert.Equal(t, "B2", result.Level)
}

func TestEvaluatePlacementWritingLengthCountsRunes(t *testing.T) {
	// 多字节文本按字符数而非字节数判定是否达到送评长度
	gen := &fakeGenerator{
		response: `{"level":"C1","scores":{"vocabulary":85,"grammar":80,"cohesion":82}}`,
	}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{questions: placementBank()})

	// 11 个字符、33 字节，不够 20 字符，不应送模型
	answers := []model.QuestionAnswer{
		{QuestionID: 1, Answer: "goes"},
		{QuestionID: 6, Answer: "这是一段较短的中文样本"},
	}

	result, err := svc.EvaluatePlacement(context.Background(), "", answers)
	require.NoError(t, err)

	assert.Empty(t, gen.prompts)
	assert.Equal(t, SubScores{Vocabulary: 20, Grammar: 20, Cohesion: 20}, result.Scores)

	// 20 个字符的中文样本应送模型
	answers[1].Answer = "这是一段足够长的中文写作样本用于模型评估好"
	result, err = svc.EvaluatePlacement(context.Background(), "", answers)
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, SubScores{Vocabulary: 85, Grammar: 80, Cohesion: 82}, result.Scores)
}

func TestEvaluatePlacementPartialModelScores(t *testing.T) {
	// 模型只给出部分子分时，缺失项保留选择题折算分
	gen := &fakeGenerator{
		response: `{"level":"B2","scores":{"grammar":90}}`,
	}
	svc := NewEvaluationService(gen, &fakeTranscriber{}, &fakeQuestionSource{questions: placementBank()})

	answers := []model.QuestionAnswer{
		{QuestionID: 1, Answer: "goes"},
		{QuestionID: 2, Answer: "since"},
		{QuestionID: 3, Answer: "had"},
		{QuestionID: 4, Answer: "was reviewed"},
		{QuestionID: 5, Answer: "had"},
		{QuestionID: 6, Answer: "This writing sample is definitely long enough for model evaluation."},
	}

	result, err := svc.EvaluatePlacement(context.Background(), "", answers)
	require.NoError(t, err)

	assert.Equal(t, SubScores{Vocabulary: 100, Grammar: 90, Cohesion: 100}, result.Scores)
}

func TestEvaluatePlacementModelFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{
			name: "network failure",
			gen:  &fakeGenerator{err: fmt.Errorf("timeout: %w", util.ErrProviderUnavailable)},
		},
		{
			name: "unparsable response",
			gen:  &fakeGenerator{response: "no json here"},
		},
	}

	answers := []model.QuestionAnswer{
		{QuestionID: 1, Answer: "goes"},
		{QuestionID: 2, Answer: "since"},
		{QuestionID: 6, Answer: "This writing sample is definitely long enough for model evaluation."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewEvaluationService(tt.gen, &fakeTranscriber{}, &fakeQuestionSource{questions: placementBank()})

			result, err := svc.EvaluatePlacement(context.Background(), "A2", answers)
			require.NoError(t, err)

			// 模型失败不让请求失败，回退到选择题正确率
			assert.Equal(t, SubScores{Vocabulary: 40, Grammar: 40, Cohesion: 40}, result.Scores)
			assert.InDelta(t, 0.4, result.Confidence, 0.0001)
		})
	}
}

func TestEvaluatePlacementDetailsCarryContext(t *testing.T) {
	svc := NewEvaluationService(&fakeGenerator{response: "x"}, &fakeTranscriber{}, &fakeQuestionSource{questions: placementBank()})

	result, err := svc.EvaluatePlacement(context.Background(), "B1", []model.QuestionAnswer{{QuestionID: 1, Answer: "goes"}})
	require.NoError(t, err)

	details, ok := result.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "B1", details["claimedLevel"])

	grade, ok := details["choices"].(ChoiceGrade)
	require.True(t, ok)
	assert.Equal(t, 1, grade.CorrectCount)
}

func TestEvaluationRepositoryError(t *testing.T) {
	svc := NewEvaluationService(&fakeGenerator{}, &fakeTranscriber{}, &fakeQuestionSource{err: errors.New("db down")})

	_, err := svc.EvaluatePlacement(context.Background(), "", nil)
	assert.EqualError(t, err, "db down")
}

func TestAssessmentResultSerializesCleanly(t *testing.T) {
	result := &AssessmentResult{
		Level:      "B1",
		Confidence: 0.5,
		Scores:     SubScores{Vocabulary: 50, Grammar: 50, Cohesion: 50},
		Overall:    50,
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	// 空的可选字段不出现在序列化结果里
	assert.NotContains(t, string(data), "raw")
	assert.NotContains(t, string(data), "details")
	assert.NotContains(t, string(data), "explanation")
}
