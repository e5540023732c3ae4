package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cs-quiz-bot/internal/app"
	"cs-quiz-bot/internal/charts"
	"cs-quiz-bot/internal/domain"
	"cs-quiz-bot/internal/infra/memory"

	"github.com/gorilla/websocket"
)

func testHandler(t *testing.T) (*app.RoundService, *httptest.Server) {
	t.Helper()
	svc := app.NewRoundService(memory.NewRoundStore(), memory.NewScoreStore(), app.Policy{Points: 10})
	srv := httptest.NewServer(NewHandler(svc, charts.NewRenderer()).Mux())
	t.Cleanup(srv.Close)
	return svc, srv
}

func winRound(t *testing.T, svc *app.RoundService, channelID, userID string) {
	t.Helper()
	round, err := svc.OpenRound(context.Background(), channelID, domain.Question{
		ID:      "q-1",
		Topic:   "Operating Systems",
		Prompt:  "p",
		Options: map[string]string{"A": "1", "B": "2", "C": "3", "D": "4"},
		Correct: "B",
	})
	if err != nil {
		t.Fatalf("open round: %v", err)
	}
	res, err := svc.SubmitAnswer(context.Background(), round.ID, userID, userID, "B")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Outcome != domain.AcceptedCorrect {
		t.Fatalf("unexpected outcome %q", res.Outcome)
	}
}

func TestHealthz(t *testing.T) {
	_, srv := testHandler(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestLeaderboardJSON(t *testing.T) {
	svc, srv := testHandler(t)
	winRound(t, svc, "c1", "u1")

	resp, err := http.Get(srv.URL + "/leaderboard")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q", got)
	}

	var lb domain.Leaderboard
	if err := json.NewDecoder(resp.Body).Decode(&lb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].Score != 10 {
		t.Fatalf("unexpected leaderboard: %+v", lb.Entries)
	}
}

func TestLeaderboardChartPNG(t *testing.T) {
	svc, srv := testHandler(t)

	// No entries yet: no chart to serve.
	resp, err := http.Get(srv.URL + "/leaderboard.png")
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty chart status = %d", resp.StatusCode)
	}

	winRound(t, svc, "c1", "u1")
	resp, err = http.Get(srv.URL + "/leaderboard.png")
	if err != nil {
		t.Fatalf("get chart: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chart status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type = %q", got)
	}
}

func TestWebsocketLeaderboardFeed(t *testing.T) {
	svc, srv := testHandler(t)
	winRound(t, svc, "c1", "u1")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var initial domain.Leaderboard
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if len(initial.Entries) != 1 || initial.Entries[0].Score != 10 {
		t.Fatalf("unexpected initial snapshot: %+v", initial.Entries)
	}

	// A second solved round must stream an update.
	winRound(t, svc, "c2", "u2")
	var update domain.Leaderboard
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update.Entries) != 2 {
		t.Fatalf("unexpected update: %+v", update.Entries)
	}
}
