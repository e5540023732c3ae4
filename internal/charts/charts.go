// Package charts renders score history and leaderboard images. Everything
// here is a pure function over snapshots; a render failure never blocks
// score updates already committed.
package charts

import (
	"bytes"
	"fmt"
	"strconv"

	"cs-quiz-bot/internal/domain"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/singleflight"
)

var (
	barFill   = drawing.ColorFromHex("4776e6")
	lineFill  = drawing.ColorFromHex("00b09b")
	wrongFill = drawing.ColorFromHex("e05252")
)

// Renderer produces PNG chart artifacts. Concurrent requests for the same
// leaderboard snapshot are collapsed into one render.
type Renderer struct {
	sf singleflight.Group
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Leaderboard renders a bar chart of the top scorers.
func (r *Renderer) Leaderboard(lb domain.Leaderboard) ([]byte, error) {
	if len(lb.Entries) == 0 {
		return nil, fmt.Errorf("empty leaderboard")
	}

	key := "leaderboard:" + strconv.FormatInt(lb.UpdatedAt.UnixNano(), 10)
	png, err, _ := r.sf.Do(key, func() (interface{}, error) {
		values := make([]chart.Value, 0, len(lb.Entries))
		for _, entry := range lb.Entries {
			values = append(values, chart.Value{
				Label: entry.Username,
				Value: float64(entry.Score),
				Style: chart.Style{FillColor: barFill, StrokeColor: barFill},
			})
		}
		graph := chart.BarChart{
			Title:    "Global Leaderboard",
			Height:   420,
			BarWidth: 48,
			Bars:     values,
			XAxis:    chart.Style{TextRotationDegrees: 45},
		}
		var buf bytes.Buffer
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("render leaderboard: %w", err)
		}
		return buf.Bytes(), nil
	})
	if err != nil {
		return nil, err
	}
	return png.([]byte), nil
}

// UserHistory renders a cumulative score line over a user's attempts,
// which must be ordered oldest first.
func (r *Renderer) UserHistory(username string, history []domain.Attempt, points int) ([]byte, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("no history for %s", username)
	}
	if points <= 0 {
		points = 10
	}

	series := chart.TimeSeries{
		Style: chart.Style{
			StrokeColor: lineFill,
			FillColor:   lineFill.WithAlpha(40),
		},
	}
	score := 0
	for _, attempt := range history {
		if attempt.Correct {
			score += points
		}
		series.XValues = append(series.XValues, attempt.SubmittedAt)
		series.YValues = append(series.YValues, float64(score))
	}

	graph := chart.Chart{
		Title:  "Performance Trend - " + username,
		Height: 360,
		XAxis:  chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		Series: []chart.Series{series},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render history: %w", err)
	}
	return buf.Bytes(), nil
}

// Accuracy renders a correct/wrong donut for one user.
func (r *Renderer) Accuracy(stats domain.UserStats) ([]byte, error) {
	if stats.Correct+stats.Wrong == 0 {
		return nil, fmt.Errorf("no attempts for %s", stats.UserID)
	}

	graph := chart.DonutChart{
		Title:  "Answer Accuracy - " + stats.Username,
		Height: 360,
		Width:  360,
		Values: []chart.Value{
			{Value: float64(stats.Correct), Label: fmt.Sprintf("Correct (%d)", stats.Correct), Style: chart.Style{FillColor: lineFill}},
			{Value: float64(stats.Wrong), Label: fmt.Sprintf("Wrong (%d)", stats.Wrong), Style: chart.Style{FillColor: wrongFill}},
		},
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render accuracy: %w", err)
	}
	return buf.Bytes(), nil
}
