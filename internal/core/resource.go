package core

import (
	"context"
	"errors"
	"sync"

	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/metrics"
)

// FetchState is the lifecycle of one fetch.
type FetchState string

const (
	StateIdle    FetchState = "idle"
	StateLoading FetchState = "loading"
	StateSuccess FetchState = "success"
	StateError   FetchState = "error"
)

// ErrSuperseded is returned by Load when a newer load, or a Discard, started
// before this one finished. Its result was not applied.
var ErrSuperseded = errors.New("fetch superseded by a newer request")

// Snapshot is a consistent copy of a Resource.
type Snapshot[T any] struct {
	State      FetchState
	Data       T
	HasData    bool
	Err        error
	Key        string
	Generation uint64
}

// Resource tracks fetches of one logical resource. Every Load takes a new
// generation and only the newest generation may apply its result, so a slow
// older response can never overwrite a newer one.
type Resource[T any] struct {
	name string
	log  *logger.Logger

	mu       sync.Mutex
	gen      uint64
	state    FetchState
	data     T
	hasData  bool
	err      error
	key      string
	inflight map[uint64]context.CancelFunc
}

// NewResource creates an idle resource. name labels logs and metrics.
func NewResource[T any](name string, log *logger.Logger) *Resource[T] {
	if log == nil {
		log = logger.Default()
	}
	return &Resource[T]{
		name:     name,
		log:      log,
		state:    StateIdle,
		inflight: make(map[uint64]context.CancelFunc),
	}
}

// Load runs fn for key and applies its result if no newer Load or Discard
// happened meanwhile. Previously loaded data stays visible while loading.
func (r *Resource[T]) Load(ctx context.Context, key string, fn func(context.Context) (T, error)) (Snapshot[T], error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.gen++
	gen := r.gen
	r.state = StateLoading
	r.key = key
	r.err = nil
	r.inflight[gen] = cancel
	r.mu.Unlock()

	data, err := fn(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, gen)

	if gen != r.gen {
		metrics.StaleResultsDropped.WithLabelValues(r.name).Inc()
		r.log.Debug("dropping stale fetch result", "resource", r.name, "key", key, "generation", gen, "current", r.gen)
		return r.snapshotLocked(), ErrSuperseded
	}

	if err != nil {
		r.state = StateError
		r.err = err
		return r.snapshotLocked(), err
	}
	r.state = StateSuccess
	r.data = data
	r.hasData = true
	return r.snapshotLocked(), nil
}

// Discard forgets the resource: in-flight requests are canceled, their
// results ignored, and the state returns to idle.
func (r *Resource[T]) Discard() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	for g, cancel := range r.inflight {
		cancel()
		delete(r.inflight, g)
	}
	var zero T
	r.data = zero
	r.hasData = false
	r.err = nil
	r.key = ""
	r.state = StateIdle
}

// Snapshot returns the current state.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Name returns the resource label.
func (r *Resource[T]) Name() string { return r.name }

func (r *Resource[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		State:      r.state,
		Data:       r.data,
		HasData:    r.hasData,
		Err:        r.err,
		Key:        r.key,
		Generation: r.gen,
	}
}

// PageStatus summarises the fetch state of a page for presenters.
type PageStatus struct {
	State FetchState `json:"state"`
	Error string     `json:"error,omitempty"`
}

// combineStatus folds several resource states into one page status: any
// error wins, then loading, then idle, and success once everything succeeded.
func combineStatus(states []FetchState, errs []error) PageStatus {
	var failed []error
	loading, idle := false, false
	for i, s := range states {
		switch s {
		case StateError:
			if errs[i] != nil {
				failed = append(failed, errs[i])
			}
		case StateLoading:
			loading = true
		case StateIdle:
			idle = true
		}
	}
	switch {
	case len(failed) > 0:
		return PageStatus{State: StateError, Error: errors.Join(failed...).Error()}
	case loading:
		return PageStatus{State: StateLoading}
	case idle:
		return PageStatus{State: StateIdle}
	default:
		return PageStatus{State: StateSuccess}
	}
}
