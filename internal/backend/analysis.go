package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/go-resty/resty/v2"
)

// AnalysisClient talks to the remote analysis pipeline
type AnalysisClient struct {
	baseURL string
	client  *resty.Client
}

// Ensure AnalysisClient implements AnalysisAPI
var _ AnalysisAPI = (*AnalysisClient)(nil)

type startAnalysisRequest struct {
	CampaignID            string                       `json:"campaign_id"`
	Type                  string                       `json:"type"`
	Keywords              []string                     `json:"keywords,omitempty"`
	URLs                  []string                     `json:"urls,omitempty"`
	TrendingTopics        []string                     `json:"trending_topics,omitempty"`
	ExtractionSettings    models.ExtractionSettings    `json:"extraction_settings"`
	PreprocessingSettings models.PreprocessingSettings `json:"preprocessing_settings"`
	EntitySettings        models.EntitySettings        `json:"entity_settings"`
	ModelingSettings      models.ModelingSettings      `json:"modeling_settings"`
}

type startAnalysisResponse struct {
	Status  string `json:"status"` // "started" or "error"
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewAnalysisClient creates a client for the analysis service
func NewAnalysisClient(baseURL string, timeout time.Duration) *AnalysisClient {
	return &AnalysisClient{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
	}
}

// Start kicks off an analysis run for a campaign and returns the task id
func (a *AnalysisClient) Start(ctx context.Context, campaign *models.Campaign) (string, error) {
	req := startAnalysisRequest{
		CampaignID:            campaign.ID,
		Type:                  campaign.Type,
		Keywords:              campaign.Keywords,
		URLs:                  campaign.URLs,
		TrendingTopics:        campaign.TrendingTopics,
		ExtractionSettings:    campaign.ExtractionSettings,
		PreprocessingSettings: campaign.PreprocessingSettings,
		EntitySettings:        campaign.EntitySettings,
		ModelingSettings:      campaign.ModelingSettings,
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(a.baseURL + "/api/analysis")
	if err != nil {
		return "", fmt.Errorf("start analysis for %s: %w", campaign.ID, err)
	}

	var started startAnalysisResponse
	if err := json.Unmarshal(resp.Body(), &started); err != nil {
		return "", fmt.Errorf("start analysis for %s: decode response: %w", campaign.ID, err)
	}

	if resp.StatusCode() != 200 || started.Status != "started" || started.TaskID == "" {
		msg := started.Error
		if msg == "" {
			msg = started.Message
		}
		return "", fmt.Errorf("start analysis for %s: backend returned status %d: %s",
			campaign.ID, resp.StatusCode(), msg)
	}

	return started.TaskID, nil
}

// Status queries the status-by-task-id endpoint
func (a *AnalysisClient) Status(ctx context.Context, taskID string) (*models.TaskStatus, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		Get(a.baseURL + "/api/analysis/" + taskID + "/status")
	if err != nil {
		return nil, fmt.Errorf("task %s status: %w", taskID, err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("task %s status: backend returned status %d", taskID, resp.StatusCode())
	}

	var status models.TaskStatus
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return nil, fmt.Errorf("task %s status: decode response: %w", taskID, err)
	}

	// "error" is the backend's envelope-level failure; treat it like a failed task
	if status.Status == models.TaskError {
		status.Status = models.TaskFailed
	}

	return &status, nil
}
