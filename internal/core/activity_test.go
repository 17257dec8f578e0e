package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaopang/insight/internal/model"
)

type memRecorder struct {
	mu   sync.Mutex
	rows []model.Activity
	err  error
}

func (m *memRecorder) RecordActivity(a model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, a)
	return nil
}

func (m *memRecorder) all() []model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Activity(nil), m.rows...)
}

func TestQuerySession_RecordsActivity(t *testing.T) {
	calls := 0
	b := &fakeBackend{
		query: func(_ context.Context, text string) (*model.QueryResponse, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("backend down")
			}
			return &model.QueryResponse{Response: "ok"}, nil
		},
	}
	rec := &memRecorder{}
	s := NewQuerySession(NewFetcher(b, nil), NewNotifier(10, testLogger()))
	s.SetRecorder(rec)

	_, err := s.Submit(context.Background(), "first")
	require.NoError(t, err)
	_, err = s.Submit(context.Background(), "second")
	require.Error(t, err)
	// blank questions never reach the backend and are not recorded
	_, _ = s.Submit(context.Background(), " ")

	rows := rec.all()
	require.Len(t, rows, 2)
	assert.Equal(t, model.ActivityQuery, rows[0].Kind)
	assert.Equal(t, "first", rows[0].Subject)
	assert.True(t, rows[0].Success)
	assert.NotEmpty(t, rows[0].ID)
	assert.False(t, rows[1].Success)
	assert.Equal(t, "backend down", rows[1].Error)
}

func TestUploadQueue_RecordsActivity(t *testing.T) {
	q, _, _ := newTestQueue(t, &fakeBackend{}, UploadOptions{Interval: time.Hour})
	rec := &memRecorder{}
	q.SetRecorder(rec)

	item := q.AddBytes("notes.md", []byte("# notes"))
	_, err := q.Upload(context.Background(), item.ID)
	require.NoError(t, err)

	rows := rec.all()
	require.Len(t, rows, 1)
	assert.Equal(t, model.ActivityUpload, rows[0].Kind)
	assert.Equal(t, "notes.md", rows[0].Subject)
	assert.True(t, rows[0].Success)
}

func TestRecordActivity_StoreErrorIsSwallowed(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	s := NewQuerySession(NewFetcher(&fakeBackend{}, nil), NewNotifier(10, testLogger()))
	s.SetRecorder(rec)

	_, err := s.Submit(context.Background(), "still answered")
	assert.NoError(t, err)
	assert.Empty(t, rec.all())
}
