package core

import (
	"time"

	"github.com/xiaopang/insight/internal/logger"
	"github.com/xiaopang/insight/internal/model"
)

// ActivityRecorder persists query and upload outcomes.
type ActivityRecorder interface {
	RecordActivity(model.Activity) error
}

// recordActivity is best effort: a failing store never fails the operation.
func recordActivity(r ActivityRecorder, log *logger.Logger, kind model.ActivityKind, subject string, started time.Time, err error) {
	if r == nil {
		return
	}
	a := model.Activity{
		ID:        generateID(),
		Kind:      kind,
		Subject:   subject,
		Success:   err == nil,
		LatencyMs: time.Since(started).Milliseconds(),
		Timestamp: started,
	}
	if err != nil {
		a.Error = err.Error()
	}
	if rerr := r.RecordActivity(a); rerr != nil {
		if log == nil {
			log = logger.Default()
		}
		log.Warn("record activity failed", "kind", kind, "error", rerr)
	}
}
