package controller

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lingo_edu_backend/internal/model"
	"lingo_edu_backend/internal/service"
	"lingo_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AssessmentController struct {
	AssessmentService *service.AssessmentService
	ProgressService   *service.ProgressService
}

func NewAssessmentController(assessmentService *service.AssessmentService, progressService *service.ProgressService) *AssessmentController {
	return &AssessmentController{
		AssessmentService: assessmentService,
		ProgressService:   progressService,
	}
}

// swagger:model WritingSubmitRequest
type WritingSubmitRequest struct {
	Text string `json:"text" binding:"required"`
}

// swagger:model PlacementSubmitRequest
type PlacementSubmitRequest struct {
	ClaimedLevel string                 `json:"claimedLevel"`
	Answers      []model.QuestionAnswer `json:"answers" binding:"required"`
}

// 按流水线错误分类映射HTTP状态，成功路径不经过这里
func (c *AssessmentController) writeAssessmentError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTranscribeTimeout):
		util.Error(ctx, 504, "语音转写超时，请稍后重试")
	case errors.Is(err, util.ErrTranscriptionFailed):
		util.BadGateway(ctx, "语音转写失败")
	case service.IsProviderError(err):
		util.BadGateway(ctx, "评估服务暂不可用")
	case errors.Is(err, util.ErrProgressConflict):
		util.Error(ctx, 409, "存在进行中的评估，请稍后重试")
	case errors.Is(err, util.ErrAudioTooShort):
		util.BadRequest(ctx, "音频时长过短")
	case errors.Is(err, util.ErrQuestionBankEmpty):
		util.Error(ctx, 503, "定级题库为空")
	case errors.Is(err, util.ErrUserNotFound):
		util.NotFound(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}

// SubmitWriting godoc
// @Summary 提交写作评估
// @Description 提交一段英文写作，调用模型评估并更新学习进度
// @Tags 评估
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body WritingSubmitRequest true "写作文本"
// @Success 200 {object} util.Response{result=object} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "评估进行中"
// @Failure 502 {object} util.Response "评估服务不可用"
// @Router /api/assessments/writing [post]
func (c *AssessmentController) SubmitWriting(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req WritingSubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.AssessmentService.SubmitWriting(ctx.Request.Context(), claims.UserID, req.Text)
	if err != nil {
		c.writeAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, outcome)
}

// SubmitSpeaking godoc
// @Summary 提交口语评估
// @Description 上传音频文件，转写后调用模型评估并更新学习进度
// @Tags 评估
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   audio formData file true "音频文件"
// @Success 200 {object} util.Response{result=object} "成功"
// @Failure 400 {object} util.Response "音频缺失或格式不支持"
// @Failure 502 {object} util.Response "转写或评估服务不可用"
// @Failure 504 {object} util.Response "转写超时"
// @Router /api/assessments/speaking [post]
func (c *AssessmentController) SubmitSpeaking(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	file, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "audio file is required")
		return
	}

	if !util.IsAllowedAudioExtension(file.Filename) {
		util.BadRequest(ctx, "unsupported audio format")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	_, err = util.ValidateMimeType(src, []string{util.MimeAudio, util.MimeVideo, util.MimeOgg, util.MimeOctetStream})
	src.Close()
	if err != nil {
		util.BadRequest(ctx, "unsupported audio format")
		return
	}

	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("speaking_%s%s", uuid.NewString(), filepath.Ext(file.Filename)))
	if err := ctx.SaveUploadedFile(file, tmpPath); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer os.Remove(tmpPath)

	outcome, err := c.AssessmentService.SubmitSpeaking(ctx.Request.Context(), claims.UserID, tmpPath)
	if err != nil {
		c.writeAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, outcome)
}

// SubmitPlacement godoc
// @Summary 提交定级测试
// @Description 提交选择题答案与可选写作样本，综合判定CEFR等级
// @Tags 评估
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body PlacementSubmitRequest true "定级测试答卷"
// @Success 200 {object} util.Response{result=object} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 503 {object} util.Response "题库为空"
// @Router /api/assessments/placement [post]
func (c *AssessmentController) SubmitPlacement(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req PlacementSubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	outcome, err := c.AssessmentService.SubmitPlacement(ctx.Request.Context(), claims.UserID, req.ClaimedLevel, req.Answers)
	if err != nil {
		c.writeAssessmentError(ctx, err)
		return
	}

	util.Success(ctx, outcome)
}

// GetQuestions godoc
// @Summary 获取定级测试题目
// @Description 获取启用中的定级题目，不含参考答案
// @Tags 评估
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{result=[]service.StudentQuestion} "成功"
// @Router /api/assessments/questions [get]
func (c *AssessmentController) GetQuestions(ctx *gin.Context) {
	questions, err := c.AssessmentService.ListStudentQuestions(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, questions)
}

// GetProgress godoc
// @Summary 获取学习进度
// @Description 获取当前用户的等级、连续打卡天数与徽章
// @Tags 评估
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{result=model.ProgressSnapshot} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/assessments/progress [get]
func (c *AssessmentController) GetProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	snapshot, err := c.ProgressService.GetSnapshot(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, snapshot)
}

// GetHistory godoc
// @Summary 获取评估历史
// @Description 分页获取当前用户的历史评估记录，按时间倒序
// @Tags 评估
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码，默认1"
// @Param   limit query int false "每页条数，默认20"
// @Success 200 {object} util.Response{result=util.PageResponse} "成功"
// @Router /api/assessments/history [get]
func (c *AssessmentController) GetHistory(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page := util.MustParseUint(ctx.DefaultQuery("page", "1"))
	limit := util.MustParseUint(ctx.DefaultQuery("limit", "20"))

	records, total, err := c.ProgressService.ListHistory(claims.UserID, int(page), int(limit))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  records,
		Total: total,
		Page:  int(page),
		Limit: int(limit),
	})
}
