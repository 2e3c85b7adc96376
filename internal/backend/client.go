package backend

import (
	"fmt"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/go-resty/resty/v2"
)

const userAgent = "ContentPulse-Controller/1.0"

// envelope is the backend's uniform response wrapper. Exactly one of the
// payload fields is set depending on the endpoint.
type envelope struct {
	Status    string            `json:"status"` // "success" or "error"
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	Campaign  *models.Campaign  `json:"campaign,omitempty"`
	Campaigns []models.Campaign `json:"campaigns,omitempty"`
}

// apiError folds a non-success response into a single error value so callers
// never see a raw error envelope.
func apiError(op string, resp *resty.Response, env *envelope) error {
	if env != nil && env.Status == "error" {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return fmt.Errorf("%s: backend error: %s", op, msg)
	}
	return fmt.Errorf("%s: backend returned status %d", op, resp.StatusCode())
}

func newHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Content-Type", "application/json")
}
