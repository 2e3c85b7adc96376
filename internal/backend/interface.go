package backend

import (
	"context"

	"github.com/contentpulse/campaign-controller/internal/models"
)

// CampaignAPI defines the contract for campaign persistence operations
type CampaignAPI interface {
	List(ctx context.Context) ([]models.Campaign, error)
	Get(ctx context.Context, id string) (*models.Campaign, error)
	Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

// AnalysisAPI defines the contract for the analysis pipeline
type AnalysisAPI interface {
	Start(ctx context.Context, campaign *models.Campaign) (string, error)
	Status(ctx context.Context, taskID string) (*models.TaskStatus, error)
}

// ContentAPI defines the contract for content generation and publishing
type ContentAPI interface {
	GenerateContent(ctx context.Context, campaignID, contentType, tone string) (*models.GeneratedContent, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Publish(ctx context.Context, item *models.QueueItem) error
}
