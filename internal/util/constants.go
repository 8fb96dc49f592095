package util

const (
	DateFormat = "2006-01-02"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

// 文件上传相关常量
const (
	MimeAudio       = "audio/"
	MimeVideo       = "video/"
	MimeOgg         = "application/ogg"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedAudioExtensions = []string{".wav", ".mp3", ".m4a", ".aac", ".ogg", ".flac", ".webm"}
)
