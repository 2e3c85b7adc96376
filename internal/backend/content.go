package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/go-resty/resty/v2"
)

// ContentClient talks to the content generation and publishing surface
type ContentClient struct {
	baseURL string
	client  *resty.Client
}

// Ensure ContentClient implements ContentAPI
var _ ContentAPI = (*ContentClient)(nil)

type generateContentResponse struct {
	Status  string                   `json:"status"`
	Content *models.GeneratedContent `json:"content,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

type generateImageResponse struct {
	Status   string `json:"status"`
	ImageRef string `json:"image_ref"`
	Error    string `json:"error,omitempty"`
}

// NewContentClient creates a client for the content service
func NewContentClient(baseURL string, timeout time.Duration) *ContentClient {
	return &ContentClient{
		baseURL: baseURL,
		client:  newHTTPClient(timeout),
	}
}

// GenerateContent asks the backend to draft social content from a campaign's insights
func (c *ContentClient) GenerateContent(ctx context.Context, campaignID, contentType, tone string) (*models.GeneratedContent, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"campaign_id": campaignID,
			"type":        contentType,
			"tone":        tone,
		}).
		Post(c.baseURL + "/api/content/generate")
	if err != nil {
		return nil, fmt.Errorf("generate content for %s: %w", campaignID, err)
	}

	var gen generateContentResponse
	if err := json.Unmarshal(resp.Body(), &gen); err != nil {
		return nil, fmt.Errorf("generate content for %s: decode response: %w", campaignID, err)
	}

	if resp.StatusCode() != 200 || gen.Status != "success" || gen.Content == nil {
		return nil, fmt.Errorf("generate content for %s: backend returned status %d: %s",
			campaignID, resp.StatusCode(), gen.Error)
	}

	return gen.Content, nil
}

// GenerateImage asks the backend for an image and returns its reference
func (c *ContentClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"prompt": prompt}).
		Post(c.baseURL + "/api/content/image")
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}

	var gen generateImageResponse
	if err := json.Unmarshal(resp.Body(), &gen); err != nil {
		return "", fmt.Errorf("generate image: decode response: %w", err)
	}

	if resp.StatusCode() != 200 || gen.Status != "success" || gen.ImageRef == "" {
		return "", fmt.Errorf("generate image: backend returned status %d: %s", resp.StatusCode(), gen.Error)
	}

	return gen.ImageRef, nil
}

// Publish hands a scheduled queue item to the backend for posting
func (c *ContentClient) Publish(ctx context.Context, item *models.QueueItem) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(item).
		Post(c.baseURL + "/api/content/publish")
	if err != nil {
		return fmt.Errorf("publish item %s: %w", item.ID, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("publish item %s: decode response: %w", item.ID, err)
	}

	if resp.StatusCode() != 200 || env.Status != "success" {
		return apiError(fmt.Sprintf("publish item %s", item.ID), resp, &env)
	}

	return nil
}
