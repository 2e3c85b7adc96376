package lifecycle

import (
	"testing"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestFallbackProgress_Ladder(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		expected int
	}{
		{"Just started", 10 * time.Second, 5},
		{"Under a minute", 45 * time.Second, 15},
		{"Under two minutes", 90 * time.Second, 25},
		{"Under three minutes", 150 * time.Second, 50},
		{"Under four minutes", 210 * time.Second, 70},
		{"Under five minutes", 270 * time.Second, 85},
		{"Beyond five minutes", 20 * time.Minute, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, fallbackProgress(tt.elapsed))
		})
	}
}

func TestFallbackProgress_MonotoneAndCapped(t *testing.T) {
	previous := 0
	for elapsed := time.Duration(0); elapsed <= 10*time.Minute; elapsed += 5 * time.Second {
		value := fallbackProgress(elapsed)
		assert.GreaterOrEqual(t, value, previous, "ladder decreased at %v", elapsed)
		assert.Less(t, value, 100, "ladder reached 100 at %v", elapsed)
		previous = value
	}
}

func TestEstimator_ServerProgressWins(t *testing.T) {
	estimator := NewEstimator()
	progress := 42
	campaign := models.Campaign{
		ID:        "c1",
		Progress:  &progress,
		CreatedAt: time.Now().Add(-10 * time.Minute),
	}

	assert.Equal(t, 42, estimator.Estimate(&campaign, time.Now()))
}

func TestEstimator_EpisodeStartCached(t *testing.T) {
	estimator := NewEstimator()
	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	updated := created.Add(1 * time.Minute)
	campaign := models.Campaign{ID: "c1", CreatedAt: created, UpdatedAt: updated}

	start := estimator.EpisodeStart(&campaign)
	assert.Equal(t, updated, start, "start should be the later of createdAt/updatedAt")

	// A later server update must not shift the cached start
	campaign.UpdatedAt = updated.Add(30 * time.Second)
	assert.Equal(t, start, estimator.EpisodeStart(&campaign))

	// Clearing begins a fresh episode
	estimator.Clear("c1")
	assert.Equal(t, campaign.UpdatedAt, estimator.EpisodeStart(&campaign))
}

func TestEstimator_RetainDropsDepartedCampaigns(t *testing.T) {
	estimator := NewEstimator()
	created := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	kept := models.Campaign{ID: "c1", CreatedAt: created, UpdatedAt: created}
	departed := models.Campaign{ID: "c2", CreatedAt: created, UpdatedAt: created}

	keptStart := estimator.EpisodeStart(&kept)
	estimator.EpisodeStart(&departed)

	estimator.Retain(map[string]bool{"c1": true})

	assert.Equal(t, keptStart, estimator.EpisodeStart(&kept))

	// The departed campaign's clock restarts if it ever reappears
	departed.UpdatedAt = created.Add(time.Minute)
	assert.Equal(t, departed.UpdatedAt, estimator.EpisodeStart(&departed))
}

func TestEstimator_FallbackFromEpisodeStart(t *testing.T) {
	estimator := NewEstimator()
	now := time.Now()
	campaign := models.Campaign{
		ID:        "c1",
		CreatedAt: now.Add(-90 * time.Second),
		UpdatedAt: now.Add(-90 * time.Second),
	}

	assert.Equal(t, 25, estimator.Estimate(&campaign, now))
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"Seconds only", 42 * time.Second, "42s"},
		{"Minutes and seconds", 3*time.Minute + 24*time.Second, "3m 24s"},
		{"Exact minute", time.Minute, "1m 0s"},
		{"Negative clamps to zero", -5 * time.Second, "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatElapsed(tt.duration))
		})
	}
}
