package service

import (
	"context"
	"errors"
	"fmt"
	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/util"
	"lingo_edu_backend/pkg/logger"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextGenerator 生成式评估接口
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Transcriber 语音转写接口
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// QuestionSource 定级题库的读取边界
type QuestionSource interface {
	ListEnabled() ([]model.AssessmentQuestion, error)
}

// EvaluationService 将转写、模型评估、选择题判分合成为统一的评估结果
type EvaluationService struct {
	AI           TextGenerator
	Transcriber  Transcriber
	QuestionRepo QuestionSource
}

func NewEvaluationService(ai TextGenerator, transcriber Transcriber, questionRepo QuestionSource) *EvaluationService {
	return &EvaluationService{
		AI:           ai,
		Transcriber:  transcriber,
		QuestionRepo: questionRepo,
	}
}

const evaluationPromptTemplate = `You are an English proficiency examiner. Assess the following %s sample from a learner.

Sample:
"""
%s
"""

Respond with exactly one JSON object and nothing else, using this schema:
{
  "level": "A1|A2|B1|B2|C1|C2",
  "confidence": 0.0,
  "scores": {"vocabulary": 0, "grammar": 0, "cohesion": 0},
  "explanation": "one short paragraph",
  "improvements": "one short paragraph"
}
All scores are integers from 0 to 100. Confidence is between 0 and 1.`

// EvaluateWriting 评估书面文本。
// 模型网络失败中止请求；模型输出无法解析时降级为 Unknown 结果而非中止。
func (s *EvaluationService) EvaluateWriting(ctx context.Context, text string) (*AssessmentResult, error) {
	return s.evaluateText(ctx, "writing", text)
}

// EvaluateSpeaking 先转写口语样本再走文本评估。
// 返回转写文本供调用方存入历史记录。
func (s *EvaluationService) EvaluateSpeaking(ctx context.Context, audioPath string) (*AssessmentResult, string, error) {
	transcript, err := s.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, "", err
	}

	result, err := s.evaluateText(ctx, "spoken", transcript)
	if err != nil {
		return nil, "", err
	}
	return result, transcript, nil
}

func (s *EvaluationService) evaluateText(ctx context.Context, kind, text string) (*AssessmentResult, error) {
	prompt := fmt.Sprintf(evaluationPromptTemplate, kind, text)

	raw, err := s.AI.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	parse := ParseEvaluation(raw)
	if !parse.Usable() {
		// 解析失败不终止请求，降级为 Unknown
		logger.Log.Warn("model response not JSON-recoverable, degrading",
			zap.String("kind", kind))
		return &AssessmentResult{
			Level:      model.LevelUnknown,
			Confidence: 0,
			Raw:        parse.Raw,
		}, nil
	}

	return resultFromEvaluation(parse.Eval), nil
}

func resultFromEvaluation(eval *ModelEvaluation) *AssessmentResult {
	scores := SubScores{
		Vocabulary: clampScore(eval.Scores["vocabulary"]),
		Grammar:    clampScore(eval.Scores["grammar"]),
		Cohesion:   clampScore(eval.Scores["cohesion"]),
	}

	level, overall := MapLevel(scores)

	confidence := 0.0
	if eval.Confidence != nil {
		confidence = *eval.Confidence
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return &AssessmentResult{
		Level:        level,
		Confidence:   confidence,
		Scores:       scores,
		Overall:      overall,
		Explanation:  eval.Explanation,
		Improvements: eval.Improvements,
	}
}

// ChoiceGrade 选择题判分结果
type ChoiceGrade struct {
	CorrectCount int                 `json:"correctCount"`
	TotalGraded  int                 `json:"totalGraded"`
	Percent      float64             `json:"percent"`
	PerQuestion  []ChoiceGradeDetail `json:"perQuestion"`
}

type ChoiceGradeDetail struct {
	QuestionID uint   `json:"questionId"`
	Given      string `json:"given"`
	Correct    bool   `json:"correct"`
}

// gradeChoices 只对选择题判分，答案以服务端题库为准。
// 未作答一律计为错误，不会被跳过。
func gradeChoices(questions []model.AssessmentQuestion, answers []model.QuestionAnswer) ChoiceGrade {
	given := make(map[uint]string, len(answers))
	for _, a := range answers {
		given[a.QuestionID] = a.Answer
	}

	grade := ChoiceGrade{}
	for _, q := range questions {
		if q.QuestionType != model.QuestionMultipleChoice {
			continue
		}
		grade.TotalGraded++

		detail := ChoiceGradeDetail{QuestionID: q.ID, Given: given[q.ID]}
		if ans, ok := given[q.ID]; ok && ans == q.Answer {
			detail.Correct = true
			grade.CorrectCount++
		}
		grade.PerQuestion = append(grade.PerQuestion, detail)
	}

	// max(...,1) 防止题库无选择题时除零
	denom := grade.TotalGraded
	if denom < 1 {
		denom = 1
	}
	grade.Percent = math.Round(float64(grade.CorrectCount) / float64(denom) * 100)

	return grade
}

// 自由写作答案达到该长度（去空白后）才送模型评估
const minWritingSampleLen = 20

// EvaluatePlacement 定级测试：选择题判分，合格的自由写作答案再经模型评估。
// 模型给出的子分逐项覆盖选择题折算分；模型任何失败（网络或解析）
// 都不让整个请求失败，回退到选择题正确率。
func (s *EvaluationService) EvaluatePlacement(ctx context.Context, claimedLevel string, answers []model.QuestionAnswer) (*AssessmentResult, error) {
	questions, err := s.QuestionRepo.ListEnabled()
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrQuestionBankEmpty
	}

	grade := gradeChoices(questions, answers)

	accuracy := 0.0
	if grade.TotalGraded > 0 {
		accuracy = float64(grade.CorrectCount) / float64(grade.TotalGraded)
	}

	// 回退基线：三项子分都取选择题折算百分比
	scores := SubScores{
		Vocabulary: grade.Percent,
		Grammar:    grade.Percent,
		Cohesion:   grade.Percent,
	}
	confidence := accuracy
	explanation := fmt.Sprintf("Placement graded from %d/%d correct multiple-choice answers.", grade.CorrectCount, grade.TotalGraded)
	improvements := ""

	if writing := findWritingAnswer(questions, answers); utf8.RuneCountInString(writing) >= minWritingSampleLen {
		if eval, ok := s.evaluateWritingSample(ctx, writing); ok {
			// 模型提供的子分逐项覆盖，越界值截断到合法区间
			if v, exists := eval.Scores["vocabulary"]; exists {
				scores.Vocabulary = clampScore(v)
			}
			if v, exists := eval.Scores["grammar"]; exists {
				scores.Grammar = clampScore(v)
			}
			if v, exists := eval.Scores["cohesion"]; exists {
				scores.Cohesion = clampScore(v)
			}
			if eval.Confidence != nil {
				confidence = *eval.Confidence
				if confidence < 0 {
					confidence = 0
				} else if confidence > 1 {
					confidence = 1
				}
			}
			if eval.Explanation != "" {
				explanation = eval.Explanation
			}
			improvements = eval.Improvements
		}
	}

	level, overall := MapLevel(scores)

	return &AssessmentResult{
		Level:        level,
		Confidence:   confidence,
		Scores:       scores,
		Overall:      overall,
		Explanation:  explanation,
		Improvements: improvements,
		Details: map[string]interface{}{
			"claimedLevel": claimedLevel,
			"choices":      grade,
		},
	}, nil
}

// evaluateWritingSample 定级路径上的模型评估，失败只记日志不上抛
func (s *EvaluationService) evaluateWritingSample(ctx context.Context, text string) (*ModelEvaluation, bool) {
	prompt := fmt.Sprintf(evaluationPromptTemplate, "writing", text)

	raw, err := s.AI.GenerateText(ctx, prompt)
	if err != nil {
		logger.Log.Warn("placement model call failed, falling back to choice scores", zap.Error(err))
		return nil, false
	}

	parse := ParseEvaluation(raw)
	if !parse.Usable() {
		logger.Log.Warn("placement model response unparsable, falling back to choice scores")
		return nil, false
	}
	return parse.Eval, true
}

func findWritingAnswer(questions []model.AssessmentQuestion, answers []model.QuestionAnswer) string {
	writingIDs := make(map[uint]bool)
	for _, q := range questions {
		if q.QuestionType == model.QuestionFreeWriting {
			writingIDs[q.ID] = true
		}
	}
	for _, a := range answers {
		if writingIDs[a.QuestionID] {
			if text := strings.TrimSpace(a.Answer); text != "" {
				return text
			}
		}
	}
	return ""
}

// IsProviderError 判定是否为外部服务失败（网关错误语义）
func IsProviderError(err error) bool {
	return errors.Is(err, util.ErrProviderUnavailable) ||
		errors.Is(err, util.ErrTranscriptionFailed) ||
		errors.Is(err, util.ErrTranscribeTimeout)
}
