package api

import (
	"net/http"
)

type chatRequest struct {
	Room     string `json:"room"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type tokenRequest struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Room == "" || req.Username == "" || req.Message == "" {
			httpError(w, http.StatusBadRequest, "room, username and message are required")
			return
		}

		if deps.Rooms != nil {
			// Track the sender as a participant; unknown rooms are fine,
			// the frontend may chat before registering one.
			deps.Rooms.Join(req.Room, req.Username)
		}

		reply := deps.Responder.Respond(r.Context(), req.Username, req.Message)

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "success",
			"response": reply,
			"username": req.Username,
			"room":     req.Room,
		})
	}
}

func handleToken(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Tokens == nil || !deps.Tokens.Enabled() {
			httpError(w, http.StatusInternalServerError, "room server not configured")
			return
		}

		var req tokenRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Room == "" || req.Username == "" {
			httpError(w, http.StatusBadRequest, "room and username are required")
			return
		}

		signed, err := deps.Tokens.Mint(req.Username, req.Room)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "generating token: %v", err)
			return
		}
		if deps.Metrics != nil {
			deps.Metrics.TokensIssued.Inc()
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"token":      signed,
			"room":       req.Room,
			"username":   req.Username,
			"server_url": deps.ServerURL,
		})
	}
}
