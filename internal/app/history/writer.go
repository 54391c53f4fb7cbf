package history

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
)

// appendTimeout bounds a single Append call made by the worker.
const appendTimeout = 5 * time.Second

// Writer queues records for an Appender and writes them on a single worker goroutine.
// Record never blocks: when the queue is full the record is dropped and counted.
type Writer struct {
	appender Appender
	queue    chan Record

	// mu guards closed so Record never sends on a closed queue.
	mu     sync.RWMutex
	closed bool

	done   chan struct{}
	logger zerolog.Logger
}

// NewWriter starts a Writer with room for buffer pending records.
func NewWriter(appender Appender, buffer int) *Writer {
	if buffer < 1 {
		buffer = 1
	}

	w := &Writer{
		appender: appender,
		queue:    make(chan Record, buffer),
		done:     make(chan struct{}),
		logger:   logx.Component("history"),
	}

	go w.run()

	return w
}

// Record queues rec for storage. It reports whether the record was accepted.
func (w *Writer) Record(rec Record) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		metrics.HistoryDropped.Inc()
		return false
	}

	select {
	case w.queue <- rec:
		return true
	default:
		metrics.HistoryDropped.Inc()
		w.logger.Warn().
			Str("message_id", rec.ID).
			Int("queue_len", len(w.queue)).
			Msg("History queue full, dropping record")
		return false
	}
}

func (w *Writer) run() {
	defer close(w.done)

	for rec := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		err := w.appender.Append(ctx, rec)
		cancel()

		if err != nil {
			metrics.HistoryDropped.Inc()
			w.logger.Error().Err(err).
				Str("message_id", rec.ID).
				Str("room", rec.Room).
				Msg("Failed to append message record")
		}
	}
}

// Close stops accepting records and waits until queued ones are written or ctx ends.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn().Int("pending", len(w.queue)).Msg("History writer closed before draining")
		return ctx.Err()
	}
}
