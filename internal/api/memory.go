package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/takkar/roomchat/internal/storage"
)

const defaultMemoryLimit = 10

type interactionSummary struct {
	Message   string `json:"message"`
	Reply     string `json:"reply"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":         "running",
			"service":        serviceName,
			"active_rooms":   deps.Rooms.Names(),
			"memory_enabled": deps.Memory != nil && deps.Memory.Enabled(),
			"ai_enabled":     deps.AIEnabled,
		})
	}
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		memoryState := "unavailable"
		if deps.Memory != nil && deps.Memory.Enabled() {
			memoryState = "available"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "healthy",
			"token_configured": deps.Tokens != nil && deps.Tokens.Enabled(),
			"memory_store":     memoryState,
			"log_configured":   deps.Log != nil,
		})
	}
}

func handleUserMemory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Log == nil {
			httpError(w, http.StatusServiceUnavailable, "Memory store not available")
			return
		}

		username := chi.URLParam(r, "username")
		limit := defaultMemoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				httpError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		var (
			recent []storage.Interaction
			stored int
		)
		var g errgroup.Group
		g.Go(func() error {
			var err error
			recent, err = deps.Log.RecentByUser(username, limit)
			return err
		})
		g.Go(func() error {
			if deps.Memory != nil {
				stored = deps.Memory.Count()
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			httpError(w, http.StatusInternalServerError, "retrieving user memory: %v", err)
			return
		}

		interactions := make([]interactionSummary, 0, len(recent))
		for _, in := range recent {
			interactions = append(interactions, interactionSummary{
				Message:   in.Message,
				Reply:     in.Reply,
				Status:    in.Status,
				Timestamp: in.CreatedAt.Format(time.RFC3339Nano),
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"username":        username,
			"interactions":    interactions,
			"stored_memories": stored,
		})
	}
}
