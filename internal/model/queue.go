package model

import "time"

// ItemStatus 待识别图片的处理状态
type ItemStatus string

const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusDone       ItemStatus = "done"
	ItemStatusError      ItemStatus = "error"
)

// Runnable 是否可被（重新）处理：待处理或失败状态
func (s ItemStatus) Runnable() bool {
	return s == ItemStatusPending || s == ItemStatusError
}

// Image 上传的答题卡图片
type Image struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"-"`
}

// QueueItem 识别队列中的单项
type QueueItem struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     ItemStatus  `json:"status"`
	Progress   int         `json:"progress"`
	Error      string      `json:"error,omitempty"`
	Extraction *Extraction `json:"data,omitempty"`
	AddedAt    time.Time   `json:"addedAt"`

	Image Image `json:"-"`
}
