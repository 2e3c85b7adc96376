package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/go-resty/resty/v2"
)

// CampaignClient talks to the campaign persistence service
type CampaignClient struct {
	baseURL string
	client  *resty.Client
}

// Ensure CampaignClient implements CampaignAPI
var _ CampaignAPI = (*CampaignClient)(nil)

// NewCampaignClient creates a client for the campaign CRUD surface
func NewCampaignClient(baseURL string, timeout time.Duration) *CampaignClient {
	return &CampaignClient{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
	}
}

// List fetches all campaigns from the backend
func (c *CampaignClient) List(ctx context.Context) ([]models.Campaign, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.baseURL + "/api/campaigns")
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("list campaigns: decode response: %w", err)
	}

	if resp.StatusCode() != 200 || env.Status != "success" {
		return nil, apiError("list campaigns", resp, &env)
	}

	return env.Campaigns, nil
}

// Get fetches a single campaign by id
func (c *CampaignClient) Get(ctx context.Context, id string) (*models.Campaign, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(c.baseURL + "/api/campaigns/" + id)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("get campaign %s: decode response: %w", id, err)
	}

	if resp.StatusCode() != 200 || env.Status != "success" || env.Campaign == nil {
		return nil, apiError(fmt.Sprintf("get campaign %s", id), resp, &env)
	}

	return env.Campaign, nil
}

// Create submits a draft campaign; the server assigns id and timestamps
func (c *CampaignClient) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(campaign).
		Post(c.baseURL + "/api/campaigns")
	if err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("create campaign: decode response: %w", err)
	}

	if (resp.StatusCode() != 200 && resp.StatusCode() != 201) || env.Status != "success" || env.Campaign == nil {
		return nil, apiError("create campaign", resp, &env)
	}

	return env.Campaign, nil
}

// Update sends a partial record, e.g. {"status": "INCOMPLETE"}
func (c *CampaignClient) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(fields).
		Put(c.baseURL + "/api/campaigns/" + id)
	if err != nil {
		return fmt.Errorf("update campaign %s: %w", id, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("update campaign %s: decode response: %w", id, err)
	}

	if resp.StatusCode() != 200 || env.Status != "success" {
		return apiError(fmt.Sprintf("update campaign %s", id), resp, &env)
	}

	return nil
}

// Delete removes a campaign server-side
func (c *CampaignClient) Delete(ctx context.Context, id string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete(c.baseURL + "/api/campaigns/" + id)
	if err != nil {
		return fmt.Errorf("delete campaign %s: %w", id, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("delete campaign %s: decode response: %w", id, err)
	}

	if resp.StatusCode() != 200 || env.Status != "success" {
		return apiError(fmt.Sprintf("delete campaign %s", id), resp, &env)
	}

	return nil
}
