package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/takkar/roomchat/internal/rooms"
	"github.com/takkar/roomchat/internal/storage"
)

type fakeResponder struct {
	respondFunc func(ctx context.Context, username, message string) string
	calls       int
}

func (f *fakeResponder) Respond(ctx context.Context, username, message string) string {
	f.calls++
	if f.respondFunc != nil {
		return f.respondFunc(ctx, username, message)
	}
	return "ok"
}

type fakeMinter struct {
	enabled  bool
	mintFunc func(identity, room string) (string, error)
}

func (f *fakeMinter) Enabled() bool { return f.enabled }

func (f *fakeMinter) Mint(identity, room string) (string, error) {
	if f.mintFunc != nil {
		return f.mintFunc(identity, room)
	}
	return "signed-jwt", nil
}

type fakeReader struct {
	recentFunc func(username string, limit int) ([]storage.Interaction, error)
}

func (f *fakeReader) RecentByUser(username string, limit int) ([]storage.Interaction, error) {
	if f.recentFunc != nil {
		return f.recentFunc(username, limit)
	}
	return nil, nil
}

type fakeCounter struct {
	enabled bool
	count   int
}

func (f *fakeCounter) Enabled() bool { return f.enabled }
func (f *fakeCounter) Count() int    { return f.count }

func testDeps() Deps {
	return Deps{
		Responder: &fakeResponder{},
		Tokens:    &fakeMinter{enabled: true},
		Rooms:     rooms.NewRegistry(),
		Log:       &fakeReader{},
		Memory:    &fakeCounter{enabled: true, count: 2},
		AIEnabled: true,
		ServerURL: "ws://localhost:7880",
	}
}

func doRequest(t *testing.T, deps Deps, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(deps)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func TestStatusEndpoint(t *testing.T) {
	deps := testDeps()
	deps.Rooms.Create("lobby")

	rr := doRequest(t, deps, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	body := decode(t, rr)
	if body["status"] != "running" {
		t.Errorf("status = %v, want running", body["status"])
	}
	if body["memory_enabled"] != true || body["ai_enabled"] != true {
		t.Errorf("capability flags wrong: %v", body)
	}
	names, ok := body["active_rooms"].([]any)
	if !ok || len(names) != 1 || names[0] != "lobby" {
		t.Errorf("active_rooms = %v, want [lobby]", body["active_rooms"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	rr := doRequest(t, testDeps(), http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decode(t, rr)
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["memory_store"] != "available" {
		t.Errorf("memory_store = %v, want available", body["memory_store"])
	}
}

func TestChatEndpoint(t *testing.T) {
	deps := testDeps()
	responder := &fakeResponder{respondFunc: func(_ context.Context, username, message string) string {
		if username != "alice" || message != "hi" {
			t.Errorf("responder got %q/%q", username, message)
		}
		return "hello alice"
	}}
	deps.Responder = responder
	deps.Rooms.Create("lobby")

	rr := doRequest(t, deps, http.MethodPost, "/chat", `{"room":"lobby","username":"alice","message":"hi"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	body := decode(t, rr)
	if body["status"] != "success" || body["response"] != "hello alice" {
		t.Errorf("body = %v", body)
	}
	if body["username"] != "alice" || body["room"] != "lobby" {
		t.Errorf("echo fields wrong: %v", body)
	}

	room, err := deps.Rooms.Get("lobby")
	if err != nil {
		t.Fatalf("room lookup: %v", err)
	}
	if len(room.Participants) != 1 || room.Participants[0] != "alice" {
		t.Errorf("participants = %v, want [alice]", room.Participants)
	}
}

func TestChatEndpointValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{"room":"lobby","username":"alice"}`},
		{"missing username", `{"room":"lobby","message":"hi"}`},
		{"missing room", `{"username":"alice","message":"hi"}`},
		{"malformed json", `{"room":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps()
			rr := doRequest(t, deps, http.MethodPost, "/chat", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			if deps.Responder.(*fakeResponder).calls != 0 {
				t.Errorf("responder was called on invalid input")
			}
		})
	}
}

func TestTokenEndpoint(t *testing.T) {
	deps := testDeps()
	deps.Tokens = &fakeMinter{enabled: true, mintFunc: func(identity, room string) (string, error) {
		if identity != "alice" || room != "lobby" {
			t.Errorf("mint got %q/%q", identity, room)
		}
		return "signed-jwt", nil
	}}

	rr := doRequest(t, deps, http.MethodPost, "/token", `{"room":"lobby","username":"alice"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	body := decode(t, rr)
	if body["token"] != "signed-jwt" {
		t.Errorf("token = %v", body["token"])
	}
	if body["server_url"] != "ws://localhost:7880" {
		t.Errorf("server_url = %v", body["server_url"])
	}
}

func TestTokenEndpointNotConfigured(t *testing.T) {
	deps := testDeps()
	deps.Tokens = &fakeMinter{enabled: false}

	rr := doRequest(t, deps, http.MethodPost, "/token", `{"room":"lobby","username":"alice"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestTokenEndpointMintFailure(t *testing.T) {
	deps := testDeps()
	deps.Tokens = &fakeMinter{enabled: true, mintFunc: func(string, string) (string, error) {
		return "", errors.New("signing failed")
	}}

	rr := doRequest(t, deps, http.MethodPost, "/token", `{"room":"lobby","username":"alice"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRoomLifecycle(t *testing.T) {
	deps := testDeps()

	rr := doRequest(t, deps, http.MethodPost, "/create-room/lobby", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("create status = %d", rr.Code)
	}
	if body := decode(t, rr); body["status"] != "success" {
		t.Errorf("create body = %v", body)
	}

	rr = doRequest(t, deps, http.MethodPost, "/create-room/lobby", "")
	if body := decode(t, rr); body["status"] != "info" {
		t.Errorf("duplicate create body = %v", body)
	}

	rr = doRequest(t, deps, http.MethodGet, "/rooms", "")
	listBody := decode(t, rr)
	listed, ok := listBody["active_rooms"].([]any)
	if !ok || len(listed) != 1 {
		t.Fatalf("active_rooms = %v, want one room", listBody["active_rooms"])
	}

	rr = doRequest(t, deps, http.MethodDelete, "/close-room/lobby", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("close status = %d", rr.Code)
	}

	rr = doRequest(t, deps, http.MethodDelete, "/close-room/lobby", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second close status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUserMemoryEndpoint(t *testing.T) {
	deps := testDeps()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	deps.Log = &fakeReader{recentFunc: func(username string, limit int) ([]storage.Interaction, error) {
		if username != "alice" {
			t.Errorf("username = %q, want alice", username)
		}
		if limit != 5 {
			t.Errorf("limit = %d, want 5", limit)
		}
		return []storage.Interaction{
			{Username: "alice", Message: "hi", Reply: "hello", Status: storage.StatusOK, CreatedAt: created},
		}, nil
	}}

	rr := doRequest(t, deps, http.MethodGet, "/memory/alice?limit=5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	body := decode(t, rr)
	if body["username"] != "alice" {
		t.Errorf("username = %v", body["username"])
	}
	if body["stored_memories"] != float64(2) {
		t.Errorf("stored_memories = %v, want 2", body["stored_memories"])
	}
	interactions, ok := body["interactions"].([]any)
	if !ok || len(interactions) != 1 {
		t.Fatalf("interactions = %v", body["interactions"])
	}
	first := interactions[0].(map[string]any)
	if first["message"] != "hi" || first["reply"] != "hello" {
		t.Errorf("interaction = %v", first)
	}
}

func TestUserMemoryEndpointBadLimit(t *testing.T) {
	rr := doRequest(t, testDeps(), http.MethodGet, "/memory/alice?limit=zero", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUserMemoryEndpointUnavailable(t *testing.T) {
	deps := testDeps()
	deps.Log = nil

	rr := doRequest(t, deps, http.MethodGet, "/memory/alice", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestUserMemoryEndpointLogFailure(t *testing.T) {
	deps := testDeps()
	deps.Log = &fakeReader{recentFunc: func(string, int) ([]storage.Interaction, error) {
		return nil, errors.New("db locked")
	}}

	rr := doRequest(t, deps, http.MethodGet, "/memory/alice", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestOptionalDepsNil(t *testing.T) {
	deps := Deps{
		Responder: &fakeResponder{},
		Rooms:     rooms.NewRegistry(),
	}

	rr := doRequest(t, deps, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want %d", rr.Code, http.StatusOK)
	}
	if body := decode(t, rr); body["memory_enabled"] != false {
		t.Errorf("memory_enabled = %v, want false", body["memory_enabled"])
	}

	rr = doRequest(t, deps, http.MethodPost, "/token", `{"room":"lobby","username":"alice"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("token with nil issuer = %d, want %d", rr.Code, http.StatusInternalServerError)
	}

	rr = doRequest(t, deps, http.MethodGet, "/memory/alice", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("memory with nil log = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	rr = doRequest(t, deps, http.MethodPost, "/create-room/lobby", "")
	if rr.Code != http.StatusOK {
		t.Errorf("create room with nil metrics = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestCORSPreflight(t *testing.T) {
	rr := doRequest(t, testDeps(), http.MethodOptions, "/chat", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
