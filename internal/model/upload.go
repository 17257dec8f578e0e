package model

import (
	"encoding/json"
	"time"
)

// UploadStatus 上传状态
type UploadStatus string

const (
	UploadIdle      UploadStatus = "idle"
	UploadUploading UploadStatus = "uploading"
	UploadSuccess   UploadStatus = "success"
	UploadError     UploadStatus = "error"
)

// UploadResult 后端返回的上传元数据
type UploadResult struct {
	Message string `json:"message"`

	// Raw keeps the whole reply since its shape belongs to the backend.
	Raw json.RawMessage `json:"-"`
}

// FileUploadItem 上传队列中的一个文件，仅存在于客户端
type FileUploadItem struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Size     int64        `json:"size"`
	Status   UploadStatus `json:"status"`
	Progress int          `json:"progress"` // 0-100
	Error    string       `json:"error,omitempty"`
	AddedAt  time.Time    `json:"added_at"`
}

// Done reports whether the item reached a terminal state.
func (f FileUploadItem) Done() bool {
	return f.Status == UploadSuccess || f.Status == UploadError
}
