package lifecycle

import (
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
)

// DefaultStaleTimeout is the watchdog window after which a PROCESSING
// campaign with no server update is treated as abandoned.
const DefaultStaleTimeout = 5 * time.Minute

// DeriveStatus computes the displayed lifecycle stage of a campaign from its
// stored fields. It is a pure projection: never persisted, never fed back to
// the server as authoritative.
//
// Rules, first match wins:
//  1. Non-empty topics mean the pipeline finished, overriding any stale
//     stored status.
//  2. A stored PROCESSING older than staleAfter is treated as a silently
//     failed job. The backend does not reliably push a terminal failure
//     signal, so this is a policy inference, not an error signal.
//  3. A stored ACTIVE stays ACTIVE; it is set only by explicit user action.
func DeriveStatus(c *models.Campaign, now time.Time, staleAfter time.Duration) string {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleTimeout
	}

	if len(c.Topics) > 0 {
		return models.StatusReadyToActivate
	}

	if c.Status == models.StatusProcessing {
		if now.Sub(c.UpdatedAt) > staleAfter {
			return models.StatusIncomplete
		}
		return models.StatusProcessing
	}

	if c.Status == models.StatusActive {
		return models.StatusActive
	}

	return models.StatusIncomplete
}
