package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xiaopang/insight/internal/config"
	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/metrics"
	"github.com/xiaopang/insight/internal/model"
)

// Upload queue errors.
var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrUploadNotIdle  = errors.New("upload already started")
	ErrQueueClosed    = errors.New("upload queue closed")
)

// uploadStartProgress is shown as soon as an upload starts.
const uploadStartProgress = 10

// UploadOptions tunes the progress display.
type UploadOptions struct {
	Interval time.Duration // fallback tick
	Step     int           // fallback increment per tick
	Cap      int           // progress ceiling until the server confirms
	Keep     int           // finished items kept; older ones are dropped
}

const defaultKeepFinished = 50

// UploadOptionsFromConfig converts the upload config section.
func UploadOptionsFromConfig(cfg config.UploadConfig) UploadOptions {
	return UploadOptions{
		Interval: time.Duration(cfg.ProgressInterval) * time.Millisecond,
		Step:     cfg.ProgressStep,
		Cap:      cfg.ProgressCap,
		Keep:     cfg.KeepFinished,
	}
}

func (o UploadOptions) withDefaults() UploadOptions {
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Step <= 0 {
		o.Step = 10
	}
	if o.Cap <= uploadStartProgress || o.Cap >= 100 {
		o.Cap = 90
	}
	if o.Keep <= 0 {
		o.Keep = defaultKeepFinished
	}
	return o
}

// OpenFunc opens the content of a queued file.
type OpenFunc func() (io.ReadCloser, error)

type uploadEntry struct {
	item    model.FileUploadItem
	open    OpenFunc
	ctx     context.Context
	cancel  context.CancelFunc
	stop    chan struct{}
	ticking bool
	real    bool // transport reported byte progress
	removed bool
	started time.Time
}

// UploadQueue holds files waiting for, or going through, upload. Each file
// moves idle → uploading → success | error independently of the others.
type UploadQueue struct {
	fetcher  *Fetcher
	notifier *Notifier
	opts     UploadOptions
	log      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entries  []*uploadEntry
	tickers  int
	closed   bool
	onChange func(model.FileUploadItem)
	recorder ActivityRecorder
	now      func() time.Time
}

// NewUploadQueue creates an empty queue.
func NewUploadQueue(f *Fetcher, n *Notifier, opts UploadOptions, log *logger.Logger) *UploadQueue {
	if log == nil {
		log = logger.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &UploadQueue{
		fetcher:  f,
		notifier: n,
		opts:     opts.withDefaults(),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// OnChange registers fn to receive every item update. fn runs outside the
// queue lock, possibly from a background goroutine.
func (q *UploadQueue) OnChange(fn func(model.FileUploadItem)) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

// SetRecorder persists every finished upload to r.
func (q *UploadQueue) SetRecorder(r ActivityRecorder) {
	q.mu.Lock()
	q.recorder = r
	q.mu.Unlock()
}

// Add queues a file in the idle state.
func (q *UploadQueue) Add(name string, size int64, open OpenFunc) model.FileUploadItem {
	e := &uploadEntry{
		item: model.FileUploadItem{
			ID:      generateID(),
			Name:    filepath.Base(name),
			Size:    size,
			Status:  model.UploadIdle,
			AddedAt: q.now(),
		},
		open: open,
	}
	q.mu.Lock()
	q.entries = append(q.entries, e)
	item := e.item
	q.mu.Unlock()
	q.emit(item)
	return item
}

// AddBytes queues in-memory content.
func (q *UploadQueue) AddBytes(name string, data []byte) model.FileUploadItem {
	return q.Add(name, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// AddFile queues a file from disk. The file is opened when the upload starts.
func (q *UploadQueue) AddFile(path string) (model.FileUploadItem, error) {
	st, err := os.Stat(path)
	if err != nil {
		return model.FileUploadItem{}, err
	}
	if st.IsDir() {
		return model.FileUploadItem{}, fmt.Errorf("%s is a directory", path)
	}
	return q.Add(path, st.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

// Items returns the queue in insertion order.
func (q *UploadQueue) Items() []model.FileUploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]model.FileUploadItem, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, e.item)
	}
	return out
}

// Get returns one item.
func (q *UploadQueue) Get(id string) (model.FileUploadItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if e := q.findLocked(id); e != nil {
		return e.item, true
	}
	return model.FileUploadItem{}, false
}

// Remove drops an item, canceling its upload and stopping its ticker.
func (q *UploadQueue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.item.ID != id {
			continue
		}
		e.removed = true
		q.stopTickerLocked(e)
		if e.cancel != nil {
			e.cancel()
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return true
	}
	return false
}

// ActiveTickers reports how many fallback progress tickers are running.
func (q *UploadQueue) ActiveTickers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tickers
}

// Start uploads id in the background.
func (q *UploadQueue) Start(id string) error {
	e, err := q.begin(context.Background(), id)
	if err != nil {
		return err
	}
	go func() {
		defer q.wg.Done()
		_ = q.run(e)
	}()
	return nil
}

// Upload uploads id and waits for the outcome.
func (q *UploadQueue) Upload(ctx context.Context, id string) (model.FileUploadItem, error) {
	e, err := q.begin(ctx, id)
	if err != nil {
		return model.FileUploadItem{}, err
	}
	defer q.wg.Done()
	err = q.run(e)

	q.mu.Lock()
	item := e.item
	q.mu.Unlock()
	return item, err
}

// Close cancels running uploads, stops every ticker and waits for the
// background goroutines.
func (q *UploadQueue) Close() {
	q.mu.Lock()
	q.closed = true
	for _, e := range q.entries {
		q.stopTickerLocked(e)
	}
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}

func (q *UploadQueue) findLocked(id string) *uploadEntry {
	for _, e := range q.entries {
		if e.item.ID == id {
			return e
		}
	}
	return nil
}

// begin moves an idle item to uploading and arms its fallback ticker. The
// caller must run the upload and then call q.wg.Done.
func (q *UploadQueue) begin(ctx context.Context, id string) (*uploadEntry, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	e := q.findLocked(id)
	if e == nil {
		q.mu.Unlock()
		return nil, ErrUploadNotFound
	}
	if e.item.Status != model.UploadIdle {
		q.mu.Unlock()
		return nil, ErrUploadNotIdle
	}

	uctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(q.ctx, cancel)
	e.cancel = func() {
		stopAfter()
		cancel()
	}
	e.item.Status = model.UploadUploading
	e.item.Progress = uploadStartProgress
	e.item.Error = ""
	e.ctx = uctx
	e.started = q.now()
	e.stop = make(chan struct{})
	e.ticking = true
	q.tickers++
	stop := e.stop
	item := e.item
	// one for the ticker, one for the caller's run
	q.wg.Add(2)
	q.mu.Unlock()

	go q.tick(uctx, e, stop)

	q.emit(item)
	q.log.Info("upload started", "id", item.ID, "name", item.Name, "size", item.Size)
	return e, nil
}

// run performs the transfer and settles the item.
func (q *UploadQueue) run(e *uploadEntry) error {
	defer e.cancel()

	rc, err := e.open()
	if err != nil {
		q.settle(e, nil, err)
		return err
	}
	defer rc.Close()

	q.mu.Lock()
	name, size := e.item.Name, e.item.Size
	q.mu.Unlock()

	res, err := q.fetcher.Backend().UploadFile(e.ctx, name, rc, size, func(sent, total int64) {
		q.progress(e, sent, total)
	})
	q.settle(e, res, err)
	return err
}

// tick advances simulated progress until real progress shows up or the
// upload settles.
func (q *UploadQueue) tick(ctx context.Context, e *uploadEntry, stop <-chan struct{}) {
	defer q.wg.Done()
	t := time.NewTicker(q.opts.Interval)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			q.mu.Lock()
			if e.real || e.item.Status != model.UploadUploading || e.item.Progress >= q.opts.Cap {
				q.mu.Unlock()
				continue
			}
			e.item.Progress = min(e.item.Progress+q.opts.Step, q.opts.Cap)
			item := e.item
			q.mu.Unlock()
			q.emit(item)
		}
	}
}

// progress maps transferred bytes onto [10, cap]. Progress never goes back.
func (q *UploadQueue) progress(e *uploadEntry, sent, total int64) {
	if total <= 0 {
		return
	}
	q.mu.Lock()
	if e.item.Status != model.UploadUploading {
		q.mu.Unlock()
		return
	}
	if !e.real {
		e.real = true
		q.stopTickerLocked(e)
	}
	span := int64(q.opts.Cap - uploadStartProgress)
	p := uploadStartProgress + int(sent*span/total)
	if p > q.opts.Cap {
		p = q.opts.Cap
	}
	changed := p > e.item.Progress
	if changed {
		e.item.Progress = p
	}
	item := e.item
	q.mu.Unlock()
	if changed {
		q.emit(item)
	}
}

func (q *UploadQueue) settle(e *uploadEntry, res *model.UploadResult, err error) {
	q.mu.Lock()
	q.stopTickerLocked(e)
	if e.removed {
		q.mu.Unlock()
		q.log.Debug("upload removed before completion", "id", e.item.ID)
		return
	}
	if err != nil {
		e.item.Status = model.UploadError
		e.item.Error = err.Error()
	} else {
		e.item.Status = model.UploadSuccess
		e.item.Progress = 100
		e.item.Error = ""
	}
	item := e.item
	recorder := q.recorder
	dropped := q.pruneFinishedLocked()
	q.mu.Unlock()

	if dropped > 0 {
		q.log.Debug("finished uploads dropped", "count", dropped)
	}
	recordActivity(recorder, q.log, model.ActivityUpload, item.Name, e.started, err)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(model.UploadError)).Inc()
		q.log.Warn("upload failed", "id", item.ID, "name", item.Name, "error", err)
		q.notifier.Error(fmt.Sprintf("Failed to upload %s", item.Name))
	} else {
		metrics.UploadsTotal.WithLabelValues(string(model.UploadSuccess)).Inc()
		msg := ""
		if res != nil {
			msg = res.Message
		}
		q.log.Info("upload finished", "id", item.ID, "name", item.Name, "message", msg)
		q.fetcher.InvalidateAggregates()
		q.notifier.Success(fmt.Sprintf("%s uploaded successfully", item.Name))
	}
	q.emit(item)
}

// pruneFinishedLocked drops the oldest finished items beyond opts.Keep.
// Idle and uploading items are never dropped.
func (q *UploadQueue) pruneFinishedLocked() int {
	finished := 0
	for _, e := range q.entries {
		if e.item.Done() {
			finished++
		}
	}
	excess := finished - q.opts.Keep
	if excess <= 0 {
		return 0
	}
	kept := q.entries[:0]
	for _, e := range q.entries {
		if excess > 0 && e.item.Done() {
			e.removed = true
			excess--
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = nil
	}
	dropped := len(q.entries) - len(kept)
	q.entries = kept
	return dropped
}

func (q *UploadQueue) stopTickerLocked(e *uploadEntry) {
	if !e.ticking {
		return
	}
	e.ticking = false
	close(e.stop)
	q.tickers--
}

func (q *UploadQueue) emit(item model.FileUploadItem) {
	q.mu.Lock()
	fn := q.onChange
	q.mu.Unlock()
	if fn != nil {
		fn(item)
	}
}
