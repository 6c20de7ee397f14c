package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takkar/roomchat/internal/rooms"
)

type roomSummary struct {
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	Participants int       `json:"participants"`
}

func handleCreateRoom(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "roomName")
		if name == "" {
			httpError(w, http.StatusBadRequest, "room name is required")
			return
		}

		_, created := deps.Rooms.Create(name)
		setActiveRooms(deps)
		if created {
			slog.Info("registered room", "room", name)
			writeJSON(w, http.StatusOK, map[string]any{
				"status":    "success",
				"message":   "Room " + name + " created",
				"room_name": name,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "info",
			"message":   "Room " + name + " already exists",
			"room_name": name,
		})
	}
}

func handleCloseRoom(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "roomName")
		if err := deps.Rooms.Close(name); err != nil {
			if errors.Is(err, rooms.ErrNotFound) {
				httpError(w, http.StatusNotFound, "Room %s not found", name)
				return
			}
			httpError(w, http.StatusInternalServerError, "closing room: %v", err)
			return
		}
		setActiveRooms(deps)
		slog.Info("closed room", "room", name)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "Room " + name + " closed",
		})
	}
}

func handleListRooms(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listed := deps.Rooms.List()
		summaries := make([]roomSummary, 0, len(listed))
		for _, room := range listed {
			summaries = append(summaries, roomSummary{
				Name:         room.Name,
				CreatedAt:    room.CreatedAt,
				Participants: len(room.Participants),
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"active_rooms": summaries,
		})
	}
}

func setActiveRooms(deps Deps) {
	if deps.Metrics != nil {
		deps.Metrics.ActiveRooms.Set(float64(deps.Rooms.Len()))
	}
}
