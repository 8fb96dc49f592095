package util

import "errors"

var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrEmailRegistered = errors.New("该邮箱已被注册")

	// 评估流水线错误分类
	ErrProviderUnavailable = errors.New("external provider unavailable")
	ErrTranscriptionFailed = errors.New("transcription job failed")
	ErrTranscribeTimeout   = errors.New("transcription polling deadline exceeded")
	ErrProgressConflict    = errors.New("concurrent progress update conflict")
	ErrQuestionBankEmpty   = errors.New("placement question bank is empty")
	ErrAudioTooShort       = errors.New("audio sample too short to assess")
)
