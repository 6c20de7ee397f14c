package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/takkar/roomchat/internal/observability"
	"github.com/takkar/roomchat/internal/rooms"
	"github.com/takkar/roomchat/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

const serviceName = "Memory-Enhanced AI Chat Agent"

// Responder turns a user message into a reply. It never fails; degraded
// backends surface as sentinel reply text.
type Responder interface {
	Respond(ctx context.Context, username, message string) string
}

// TokenMinter issues signed room-join tokens.
type TokenMinter interface {
	Enabled() bool
	Mint(identity, room string) (string, error)
}

// InteractionReader reads the durable interaction log.
type InteractionReader interface {
	RecentByUser(username string, limit int) ([]storage.Interaction, error)
}

// MemoryCounter reports on the vector memory store.
type MemoryCounter interface {
	Enabled() bool
	Count() int
}

// Deps carries everything the HTTP surface needs. Responder and Rooms are
// required; Tokens, Log, Memory and Metrics may be nil, degrading their
// endpoints instead of panicking.
type Deps struct {
	Responder Responder
	Tokens    TokenMinter
	Rooms     *rooms.Registry
	Log       InteractionReader
	Memory    MemoryCounter
	AIEnabled bool
	ServerURL string
	Metrics   *observability.Metrics
}

// NewHandler returns the REST API for the chat backend.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(allowAllCORS)

	r.Get("/", handleStatus(deps))
	r.Get("/health", handleHealth(deps))
	r.Get("/metrics", observability.MetricsHandler().ServeHTTP)

	r.Post("/chat", handleChat(deps))
	r.Post("/token", handleToken(deps))

	r.Post("/create-room/{roomName}", handleCreateRoom(deps))
	r.Delete("/close-room/{roomName}", handleCloseRoom(deps))
	r.Get("/rooms", handleListRooms(deps))

	r.Get("/memory/{username}", handleUserMemory(deps))

	return r
}

// allowAllCORS mirrors the permissive policy browsers need for a local dev
// frontend on another port.
func allowAllCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"detail": fmt.Sprintf(format, args...),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}
