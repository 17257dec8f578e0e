package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/xiaopang/insight/internal/client"
	"github.com/xiaopang/insight/internal/model"
	"github.com/xiaopang/insight/internal/view"
)

// User-facing query messages.
const (
	MsgEmptyQuery   = "Please enter a question"
	MsgQuerySuccess = "Query processed successfully"
	MsgQueryFailed  = "Error processing query"
)

// ErrQueryPending is returned when a question is submitted while another is
// still being answered.
var ErrQueryPending = errors.New("a query is already in progress")

// QuerySession holds the question/answer state of the query page.
type QuerySession struct {
	fetcher  *Fetcher
	notifier *Notifier
	recorder ActivityRecorder

	mu      sync.Mutex
	pending bool
	query   string
	answer  *model.QueryResponse
}

// NewQuerySession creates an empty session.
func NewQuerySession(f *Fetcher, n *Notifier) *QuerySession {
	return &QuerySession{fetcher: f, notifier: n}
}

// SetRecorder persists every answered or failed question to r.
func (s *QuerySession) SetRecorder(r ActivityRecorder) {
	s.mu.Lock()
	s.recorder = r
	s.mu.Unlock()
}

// Submit asks the backend. On failure the previous answer stays visible and
// an error notification is published.
func (s *QuerySession) Submit(ctx context.Context, text string) (*model.QueryResponse, error) {
	if strings.TrimSpace(text) == "" {
		s.notifier.Error(MsgEmptyQuery)
		return nil, client.ErrEmptyQuery
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrQueryPending
	}
	s.pending = true
	recorder := s.recorder
	s.mu.Unlock()

	started := time.Now()
	resp, err := s.fetcher.Backend().QueryKnowledge(ctx, text)

	s.mu.Lock()
	s.pending = false
	if err == nil {
		s.query = text
		s.answer = resp
	}
	s.mu.Unlock()
	recordActivity(recorder, nil, model.ActivityQuery, text, started, err)

	if err != nil {
		s.notifier.Error(MsgQueryFailed)
		return nil, err
	}
	// 新的查询会改变统计与历史
	s.fetcher.InvalidateAggregates()
	s.notifier.Success(MsgQuerySuccess)
	return resp, nil
}

// Pending reports whether a submission is in flight.
func (s *QuerySession) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Answer returns the last successful question and reply.
func (s *QuerySession) Answer() (string, *model.QueryResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.answer
}

// View renders the answer panel. ok is false before the first answer.
func (s *QuerySession) View() (v view.QueryAnswerView, ok bool) {
	q, resp := s.Answer()
	if resp == nil {
		return view.QueryAnswerView{}, false
	}
	return view.BuildQueryAnswer(q, resp), true
}
