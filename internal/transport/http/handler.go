package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"cs-quiz-bot/internal/app"
	"cs-quiz-bot/internal/charts"

	"github.com/gorilla/websocket"
)

// Handler is the small web surface next to the bot: health, leaderboard
// JSON/PNG, and a websocket feed of leaderboard updates.
type Handler struct {
	rounds   *app.RoundService
	renderer *charts.Renderer
	upgrader websocket.Upgrader
}

func NewHandler(rounds *app.RoundService, renderer *charts.Renderer) *Handler {
	return &Handler{
		rounds:   rounds,
		renderer: renderer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Mux returns the ready-to-serve route table.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Healthz)
	mux.HandleFunc("/leaderboard", h.Leaderboard)
	mux.HandleFunc("/leaderboard.png", h.LeaderboardChart)
	mux.HandleFunc("/ws", h.ServeWS)
	return mux
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	lb, err := h.rounds.Leaderboard(r.Context(), limit)
	if err != nil {
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(lb); err != nil {
		log.Printf("encode leaderboard: %v", err)
	}
}

func (h *Handler) LeaderboardChart(w http.ResponseWriter, r *http.Request) {
	lb, err := h.rounds.Leaderboard(r.Context(), 10)
	if err != nil {
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	png, err := h.renderer.Leaderboard(lb)
	if err != nil {
		http.Error(w, "no chart available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// ServeWS streams leaderboard snapshots: the current state on connect, then
// every update published when a round resolves.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.rounds.Hub().Subscribe()
	defer cancel()

	if lb, err := h.rounds.Leaderboard(r.Context(), 10); err == nil {
		if err := conn.WriteJSON(lb); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain reads to notice the peer hanging up.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case lb, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(lb); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
