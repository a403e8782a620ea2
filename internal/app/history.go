package app

import (
	"context"
	"time"

	"notifykit/internal/notify"
	"notifykit/internal/storage"
	logx "notifykit/pkg/logx"
)

const recordTimeout = 2 * time.Second

// historyRecorder appends every dispatch result to the store. A failed
// append is logged and never changes the result.
type historyRecorder struct {
	store storage.Store
	log   logx.Logger
}

func (h *historyRecorder) Record(ctx context.Context, res notify.Result) {
	rec := storage.Record{
		At:      time.Now().UTC(),
		Channel: string(res.Channel),
		OK:      res.OK,
		Status:  res.Status,
		Message: res.Message,
		TookMS:  res.Took.Milliseconds(),
		Origin:  notify.OriginFrom(ctx),
	}
	if !res.OK {
		rec.Kind = res.Kind.String()
	}

	// The caller may already be done; the record still gets written.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := h.store.Append(rctx, rec); err != nil {
		h.log.Warn("history append failed", logx.String("channel", rec.Channel), logx.Err(err))
	}
}
