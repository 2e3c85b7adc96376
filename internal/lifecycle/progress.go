package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
)

// Estimator produces display-only progress figures for PROCESSING campaigns.
// It remembers when each campaign's current processing episode began so the
// elapsed clock does not reset on every list refresh.
type Estimator struct {
	mu     sync.Mutex
	starts map[string]time.Time
}

// NewEstimator creates an empty estimator
func NewEstimator() *Estimator {
	return &Estimator{starts: make(map[string]time.Time)}
}

// EpisodeStart returns the cached start of the campaign's processing episode,
// capturing it on first sight as the later of UpdatedAt and CreatedAt.
func (e *Estimator) EpisodeStart(c *models.Campaign) time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	if start, ok := e.starts[c.ID]; ok {
		return start
	}

	start := c.CreatedAt
	if c.UpdatedAt.After(start) {
		start = c.UpdatedAt
	}
	e.starts[c.ID] = start
	return start
}

// Clear drops the cached episode start, to be called when a campaign leaves
// PROCESSING so a later retry starts a fresh clock.
func (e *Estimator) Clear(campaignID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.starts, campaignID)
}

// Retain drops cached starts for campaigns no longer in the known id set, so
// server-side deletions do not accumulate entries in a long-running process.
func (e *Estimator) Retain(known map[string]bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.starts {
		if !known[id] {
			delete(e.starts, id)
		}
	}
}

// Estimate returns the progress percentage to display. A server-reported
// value is the source of truth; without one, a coarse elapsed-time ladder is
// used. The ladder caps at 90 so the UI never claims completion before the
// server confirms it.
func (e *Estimator) Estimate(c *models.Campaign, now time.Time) int {
	if c.Progress != nil {
		return *c.Progress
	}
	return fallbackProgress(now.Sub(e.EpisodeStart(c)))
}

// Elapsed returns how long the campaign's processing episode has been running
func (e *Estimator) Elapsed(c *models.Campaign, now time.Time) time.Duration {
	return now.Sub(e.EpisodeStart(c))
}

func fallbackProgress(elapsed time.Duration) int {
	switch {
	case elapsed < 30*time.Second:
		return 5
	case elapsed < time.Minute:
		return 15
	case elapsed < 2*time.Minute:
		return 25
	case elapsed < 3*time.Minute:
		return 50
	case elapsed < 4*time.Minute:
		return 70
	case elapsed < 5*time.Minute:
		return 85
	default:
		return 90
	}
}

// FormatElapsed renders a duration as "3m 24s" or "42s" for display
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	if total < 60 {
		return fmt.Sprintf("%ds", total)
	}
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}
