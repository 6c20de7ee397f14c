package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/takkar/roomchat/internal/composer"
	"github.com/takkar/roomchat/internal/llm"
	"github.com/takkar/roomchat/internal/observability"
	"github.com/takkar/roomchat/internal/storage"
)

// Replies surfaced instead of an error. Callers always receive text; the
// degradation is visible in the interaction log and metrics, never as an HTTP
// failure.
const (
	UnavailableReply = "I'm sorry, AI service is not available right now."
	ErrorReply       = "I'm sorry, I encountered an error processing your request."
)

const defaultTopK = 3

// Retriever finds past exchanges relevant to the current message.
type Retriever interface {
	Retrieve(ctx context.Context, username, query string, k int) ([]string, error)
}

// Generator produces a reply from a composed system prompt and the user
// message.
type Generator interface {
	Enabled() bool
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Responder runs one user message through the retrieve, compose, generate,
// persist cycle.
type Responder struct {
	retriever Retriever
	generator Generator
	writer    *Writer
	metrics   *observability.Metrics
	topK      int
}

func NewResponder(retriever Retriever, generator Generator, writer *Writer, metrics *observability.Metrics, topK int) *Responder {
	if topK < 1 {
		topK = defaultTopK
	}
	return &Responder{
		retriever: retriever,
		generator: generator,
		writer:    writer,
		metrics:   metrics,
		topK:      topK,
	}
}

// Respond never returns an error: generation failures collapse to a sentinel
// reply so the chat surface always has something to say.
func (r *Responder) Respond(ctx context.Context, username, message string) string {
	start := time.Now()
	defer func() {
		if r.metrics != nil {
			r.metrics.RespondLatency.Observe(time.Since(start).Seconds())
		}
	}()

	if !r.generator.Enabled() {
		r.countRequest(observability.OutcomeUnavailable)
		if r.writer != nil {
			r.writer.Write(ctx, username, message, UnavailableReply, storage.StatusUnavailable)
		}
		return UnavailableReply
	}

	retrieved, err := r.retriever.Retrieve(ctx, username, message, r.topK)
	if err != nil {
		slog.Warn("memory retrieval failed, answering without history",
			"username", username, "error", err)
		retrieved = nil
	}
	if r.metrics != nil {
		r.metrics.RetrievedSnippets.Observe(float64(len(retrieved)))
	}

	systemPrompt := composer.Compose(username, retrieved)

	reply, err := r.generator.Generate(ctx, systemPrompt, message)
	status := storage.StatusOK
	switch {
	case errors.Is(err, llm.ErrUnavailable):
		reply = UnavailableReply
		status = storage.StatusUnavailable
	case err != nil:
		slog.Error("generation failed", "username", username, "error", err)
		reply = ErrorReply
		status = storage.StatusError
	}

	if r.writer != nil {
		r.writer.Write(ctx, username, message, reply, status)
	}
	r.countRequest(outcomeForStatus(status))
	return reply
}

func (r *Responder) countRequest(outcome string) {
	if r.metrics != nil {
		r.metrics.ChatRequests.WithLabelValues(outcome).Inc()
	}
}

func outcomeForStatus(status string) string {
	switch status {
	case storage.StatusUnavailable:
		return observability.OutcomeUnavailable
	case storage.StatusError:
		return observability.OutcomeError
	default:
		return observability.OutcomeOK
	}
}
