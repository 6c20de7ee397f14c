package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/takkar/roomchat/internal/observability"
	"github.com/takkar/roomchat/internal/storage"
)

// MemoryPersister is the vector-memory side of the writer.
type MemoryPersister interface {
	Persist(ctx context.Context, username, message, reply string, ts time.Time) error
}

// InteractionLog is the durable audit side of the writer.
type InteractionLog interface {
	SaveInteraction(storage.Interaction) error
}

// Writer records a completed exchange after the reply has already been handed
// to the user: everything here is best effort, failures are logged and
// swallowed.
//
// Genuine completions go to both the vector memory and the interaction log.
// Sentinel replies (status != ok) are kept OUT of the vector memory so apology
// text never pollutes future retrieval, but still land in the log where the
// degradation stays visible.
type Writer struct {
	memory  MemoryPersister
	log     InteractionLog
	metrics *observability.Metrics
	now     func() time.Time
}

// NewWriter builds a Writer. log and metrics may be nil.
func NewWriter(memory MemoryPersister, log InteractionLog, metrics *observability.Metrics) *Writer {
	return &Writer{
		memory:  memory,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Write persists one exchange. The timestamp is captured here, once, so both
// sinks agree on when the exchange happened.
func (w *Writer) Write(ctx context.Context, username, message, reply, status string) {
	ts := w.now().UTC()

	if status == storage.StatusOK {
		if err := w.memory.Persist(ctx, username, message, reply, ts); err != nil {
			slog.Warn("memory persist failed", "username", username, "error", err)
			w.countWrite("vector", "error")
		} else {
			w.countWrite("vector", "ok")
		}
	} else {
		w.countWrite("vector", "skipped")
	}

	if w.log == nil {
		return
	}
	err := w.log.SaveInteraction(storage.Interaction{
		ID:        uuid.NewString(),
		CreatedAt: ts,
		Username:  username,
		Message:   message,
		Reply:     reply,
		Status:    status,
	})
	if err != nil {
		slog.Warn("interaction log write failed", "username", username, "error", err)
		w.countWrite("log", "error")
		return
	}
	w.countWrite("log", "ok")
}

func (w *Writer) countWrite(sink, status string) {
	if w.metrics != nil {
		w.metrics.MemoryWrites.WithLabelValues(sink, status).Inc()
	}
}
