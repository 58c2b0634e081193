package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marksheet/internal/model"
	"marksheet/internal/ocr"
)

var (
	// ErrQueueBusy 队列正在处理中
	ErrQueueBusy = errors.New("worklist is already processing")
	// ErrItemNotFound 队列中不存在该项
	ErrItemNotFound = errors.New("queue item not found")
	// ErrItemBusy 该项正在识别，不能移除
	ErrItemBusy = errors.New("queue item is being processed")
	// ErrQueueFull 超出队列容量
	ErrQueueFull = errors.New("worklist is full")
)

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`             // start/item_start/item_done/item_error/stopped/done
	Message   string      `json:"message"`          // 事件消息
	ItemID    string      `json:"itemId,omitempty"` // 队列项
	Percent   int         `json:"percent"`          // 整体进度
	Data      interface{} `json:"data,omitempty"`   // 附加数据
	Timestamp time.Time   `json:"timestamp"`        // 时间戳
}

// Summary 一次处理的统计
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Stopped   bool          `json:"stopped"`
	Duration  time.Duration `json:"duration"`
}

// Rejection 被拒收的上传文件
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Worklist 待识别图片队列：顺序处理，同一时刻最多一个识别调用
type Worklist struct {
	engine   ocr.Engine
	logger   *zap.Logger
	maxItems int
	listener func(model.QueueItem)

	mu       sync.Mutex
	items    []*model.QueueItem
	seq      int
	running  bool
	stopping bool
}

// WorklistOption 队列选项
type WorklistOption func(*Worklist)

// WithMaxItems 队列容量（<=0 表示不限）
func WithMaxItems(n int) WorklistOption {
	return func(w *Worklist) { w.maxItems = n }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) WorklistOption {
	return func(w *Worklist) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWorklist 创建队列
func NewWorklist(engine ocr.Engine, opts ...WorklistOption) *Worklist {
	w := &Worklist{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetListener 注册识别成功回调（在队列锁之外调用）
func (w *Worklist) SetListener(fn func(model.QueueItem)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listener = fn
}

// Add 加入图片；非图片文件被拒收，不影响其他文件
func (w *Worklist) Add(images ...model.Image) ([]model.QueueItem, []Rejection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	added := make([]model.QueueItem, 0, len(images))
	rejected := []Rejection{}
	for _, img := range images {
		mime, err := ocr.DetectMIME(img.MIME, img.Data)
		if err != nil {
			rejected = append(rejected, Rejection{Name: img.Name, Reason: err.Error()})
			continue
		}
		if w.maxItems > 0 && len(w.items) >= w.maxItems {
			return added, rejected, fmt.Errorf("%w: max %d items", ErrQueueFull, w.maxItems)
		}
		w.seq++
		img.MIME = mime
		if img.Name == "" {
			img.Name = fmt.Sprintf("Image %d", w.seq)
		}
		item := &model.QueueItem{
			ID:      uuid.NewString(),
			Name:    img.Name,
			Status:  model.ItemStatusPending,
			AddedAt: time.Now(),
			Image:   img,
		}
		w.items = append(w.items, item)
		added = append(added, *item)
	}
	return added, rejected, nil
}

// Remove 移除队列项（正在识别的项不可移除）
func (w *Worklist) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, item := range w.items {
		if item.ID != id {
			continue
		}
		if item.Status == model.ItemStatusProcessing {
			return ErrItemBusy
		}
		w.items = append(w.items[:i], w.items[i+1:]...)
		return nil
	}
	return ErrItemNotFound
}

// Items 队列快照
func (w *Worklist) Items() []model.QueueItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.QueueItem, len(w.items))
	for i, item := range w.items {
		out[i] = *item
	}
	return out
}

// Done 识别成功的项（按入队顺序）
func (w *Worklist) Done() []model.QueueItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := []model.QueueItem{}
	for _, item := range w.items {
		if item.Status == model.ItemStatusDone && item.Extraction != nil {
			out = append(out, *item)
		}
	}
	return out
}

// Running 是否正在处理
func (w *Worklist) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stop 不再启动后续项；正在进行的识别调用不会被中断
func (w *Worklist) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.stopping = true
	}
}

// Process 依次处理全部待处理与失败项，返回进度通道
func (w *Worklist) Process(ctx context.Context) (<-chan ProgressEvent, error) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil, ErrQueueBusy
	}
	ids := make([]string, 0, len(w.items))
	for _, item := range w.items {
		if item.Status.Runnable() {
			ids = append(ids, item.ID)
		}
	}
	w.running = true
	w.stopping = false
	w.mu.Unlock()

	// 容量覆盖全部事件：start + 每项两条 + stopped + done
	progressChan := make(chan ProgressEvent, 2*len(ids)+3)
	go func() {
		defer close(progressChan)
		defer func() {
			w.mu.Lock()
			w.running = false
			w.stopping = false
			w.mu.Unlock()
		}()
		w.doProcess(ctx, ids, progressChan)
	}()
	return progressChan, nil
}

func (w *Worklist) doProcess(ctx context.Context, ids []string, ch chan ProgressEvent) {
	startTime := time.Now()
	summary := &Summary{Total: len(ids)}

	w.sendProgress(ch, ProgressEvent{
		Type:      "start",
		Message:   fmt.Sprintf("开始识别 %d 张图片", len(ids)),
		Data:      map[string]int{"total": len(ids)},
		Timestamp: time.Now(),
	})

	for i, id := range ids {
		if ctx.Err() != nil || w.stopRequested() {
			summary.Stopped = true
			w.sendProgress(ch, ProgressEvent{
				Type:      "stopped",
				Message:   fmt.Sprintf("已停止，剩余 %d 张未处理", len(ids)-i),
				Percent:   percent(i, len(ids)),
				Timestamp: time.Now(),
			})
			break
		}

		img, name, ok := w.begin(id)
		if !ok {
			// 处理开始前已被移除
			continue
		}
		w.sendProgress(ch, ProgressEvent{
			Type:      "item_start",
			Message:   fmt.Sprintf("正在识别: %s", name),
			ItemID:    id,
			Percent:   percent(i, len(ids)),
			Timestamp: time.Now(),
		})

		extraction, err := w.extract(ctx, img)
		item, listener := w.finish(id, extraction, err)
		if err != nil {
			summary.Failed++
			w.logger.Warn("extraction failed", zap.String("item", name), zap.Error(err))
			w.sendProgress(ch, ProgressEvent{
				Type:      "item_error",
				Message:   fmt.Sprintf("识别失败: %s: %v", name, err),
				ItemID:    id,
				Percent:   percent(i+1, len(ids)),
				Data:      item,
				Timestamp: time.Now(),
			})
			continue
		}

		summary.Succeeded++
		w.logger.Info("extraction succeeded",
			zap.String("item", name),
			zap.String("reg_no", extraction.RegNo),
			zap.Int("sub_parts", extraction.SubPartCount()),
		)
		if listener != nil {
			listener(item)
		}
		w.sendProgress(ch, ProgressEvent{
			Type:      "item_done",
			Message:   fmt.Sprintf("识别成功: %s (Reg No: %s)", name, extraction.RegNo),
			ItemID:    id,
			Percent:   percent(i+1, len(ids)),
			Data:      item,
			Timestamp: time.Now(),
		})
	}

	summary.Duration = time.Since(startTime)
	w.sendProgress(ch, ProgressEvent{
		Type:      "done",
		Message:   "识别完成",
		Percent:   100,
		Data:      summary,
		Timestamp: time.Now(),
	})
}

func (w *Worklist) extract(ctx context.Context, img model.Image) (model.Extraction, error) {
	if w.engine == nil {
		return model.Extraction{}, errors.New("no ocr engine configured")
	}
	extraction, err := w.engine.Extract(ctx, img)
	if err != nil {
		return model.Extraction{}, err
	}
	extraction = ocr.Normalize(extraction)
	if err := ocr.Validate(extraction); err != nil {
		return model.Extraction{}, err
	}
	return extraction, nil
}

// begin 标记为处理中
func (w *Worklist) begin(id string) (model.Image, string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item := w.find(id)
	if item == nil {
		return model.Image{}, "", false
	}
	item.Status = model.ItemStatusProcessing
	item.Progress = 10
	item.Error = ""
	return item.Image, item.Name, true
}

// finish 记录识别结果
func (w *Worklist) finish(id string, extraction model.Extraction, err error) (model.QueueItem, func(model.QueueItem)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item := w.find(id)
	if item == nil {
		return model.QueueItem{ID: id}, nil
	}
	item.Progress = 100
	if err != nil {
		item.Status = model.ItemStatusError
		item.Error = err.Error()
		item.Extraction = nil
		return *item, nil
	}
	item.Status = model.ItemStatusDone
	item.Extraction = &extraction
	return *item, w.listener
}

func (w *Worklist) find(id string) *model.QueueItem {
	for _, item := range w.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

func (w *Worklist) stopRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopping
}

// sendProgress 发送进度事件
func (w *Worklist) sendProgress(ch chan ProgressEvent, event ProgressEvent) {
	select {
	case ch <- event:
	default:
		// 通道已满，丢弃事件
	}
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return done * 100 / total
}
