package lifecycle

import (
	"testing"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		campaign models.Campaign
		expected string
	}{
		{
			name: "Topics present override stored status",
			campaign: models.Campaign{
				Status:    models.StatusProcessing,
				Topics:    []string{"ai", "marketing"},
				UpdatedAt: now.Add(-10 * time.Minute),
			},
			expected: models.StatusReadyToActivate,
		},
		{
			name: "Topics present on incomplete campaign",
			campaign: models.Campaign{
				Status: models.StatusIncomplete,
				Topics: []string{"ai"},
			},
			expected: models.StatusReadyToActivate,
		},
		{
			name: "Fresh processing stays processing",
			campaign: models.Campaign{
				Status:    models.StatusProcessing,
				UpdatedAt: now.Add(-2 * time.Minute),
			},
			expected: models.StatusProcessing,
		},
		{
			name: "Processing at exactly the staleness boundary",
			campaign: models.Campaign{
				Status:    models.StatusProcessing,
				UpdatedAt: now.Add(-5 * time.Minute),
			},
			expected: models.StatusProcessing,
		},
		{
			name: "Stale processing becomes incomplete",
			campaign: models.Campaign{
				Status:    models.StatusProcessing,
				UpdatedAt: now.Add(-5*time.Minute - time.Second),
			},
			expected: models.StatusIncomplete,
		},
		{
			name: "Active stays active",
			campaign: models.Campaign{
				Status: models.StatusActive,
				Topics: nil,
			},
			expected: models.StatusActive,
		},
		{
			name:     "Empty campaign is incomplete",
			campaign: models.Campaign{},
			expected: models.StatusIncomplete,
		},
		{
			name: "Ready stored status without topics falls back to incomplete",
			campaign: models.Campaign{
				Status: models.StatusReadyToActivate,
			},
			expected: models.StatusIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DeriveStatus(&tt.campaign, now, DefaultStaleTimeout)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDeriveStatus_Idempotent(t *testing.T) {
	now := time.Now()
	campaign := models.Campaign{
		Status:    models.StatusProcessing,
		UpdatedAt: now.Add(-1 * time.Minute),
	}

	first := DeriveStatus(&campaign, now, DefaultStaleTimeout)
	second := DeriveStatus(&campaign, now, DefaultStaleTimeout)
	assert.Equal(t, first, second)
}

func TestDeriveStatus_ConfigurableTimeout(t *testing.T) {
	now := time.Now()
	campaign := models.Campaign{
		Status:    models.StatusProcessing,
		UpdatedAt: now.Add(-8 * time.Minute),
	}

	assert.Equal(t, models.StatusIncomplete, DeriveStatus(&campaign, now, 5*time.Minute))
	assert.Equal(t, models.StatusProcessing, DeriveStatus(&campaign, now, 10*time.Minute))
}
