package controller

import (
	"errors"
	"lingo_edu_backend/internal/service"
	"lingo_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// QuestionController 教师端题库管理
type QuestionController struct {
	QuestionService   *service.QuestionService
	AssessmentService *service.AssessmentService
}

func NewQuestionController(questionService *service.QuestionService, assessmentService *service.AssessmentService) *QuestionController {
	return &QuestionController{
		QuestionService:   questionService,
		AssessmentService: assessmentService,
	}
}

// CreateQuestion godoc
// @Summary 创建定级题目
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.QuestionRequest true "题目内容"
// @Success 201 {object} util.Response{result=model.AssessmentQuestion} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/teacher/questions [post]
func (c *QuestionController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.QuestionService.Create(req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	c.AssessmentService.InvalidateQuestionCache(ctx.Request.Context())
	util.Created(ctx, q)
}

// ListQuestions godoc
// @Summary 题目列表
// @Description 返回全部题目（含停用），带参考答案
// @Tags 题库
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{result=[]model.AssessmentQuestion} "成功"
// @Router /api/teacher/questions [get]
func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	questions, err := c.QuestionService.List()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, questions)
}

// GetQuestion godoc
// @Summary 题目详情
// @Tags 题库
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "题目ID"
// @Success 200 {object} util.Response{result=model.AssessmentQuestion} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/teacher/questions/{id} [get]
func (c *QuestionController) GetQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	q, err := c.QuestionService.Get(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, q)
}

// UpdateQuestion godoc
// @Summary 更新定级题目
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "题目ID"
// @Param   body body service.QuestionRequest true "题目内容"
// @Success 200 {object} util.Response{result=model.AssessmentQuestion} "成功"
// @Failure 404 {object} util.Response "题目不存在"
// @Router /api/teacher/questions/{id} [put]
func (c *QuestionController) UpdateQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	q, err := c.QuestionService.Update(id, req)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	c.AssessmentService.InvalidateQuestionCache(ctx.Request.Context())
	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary 删除定级题目
// @Tags 题库
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "题目ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/teacher/questions/{id} [delete]
func (c *QuestionController) DeleteQuestion(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))
	if err := c.QuestionService.Delete(id); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	c.AssessmentService.InvalidateQuestionCache(ctx.Request.Context())
	util.Success(ctx, gin.H{"id": id})
}
