package notifications

import "github.com/contentpulse/campaign-controller/internal/models"

// NotificationInterface defines the contract for lifecycle notifications
type NotificationInterface interface {
	SendCampaignReady(campaign *models.Campaign) error
	SendAnalysisFailed(campaign *models.Campaign, reason string) error
}
