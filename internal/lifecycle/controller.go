package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/contentpulse/campaign-controller/internal/backend"
	"github.com/contentpulse/campaign-controller/internal/config"
	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/contentpulse/campaign-controller/internal/notifications"
	"github.com/contentpulse/campaign-controller/internal/storage"
	"github.com/sirupsen/logrus"
)

// Controller owns the client-side campaign collection. All mutation goes
// through its mutex; merges are last-write-wins keyed by campaign id. The
// server's list is authoritative: only the transient progress trio
// (progress/current step/message) is allowed to diverge, and only while a
// poll loop is live.
type Controller struct {
	config      *config.Config
	campaignAPI backend.CampaignAPI
	analysisAPI backend.AnalysisAPI
	store       storage.StorageInterface
	notifier    notifications.NotificationInterface

	supervisor *Supervisor
	estimator  *Estimator

	mu        sync.RWMutex
	campaigns []models.Campaign
	lastSweep time.Time
}

// Metrics holds controller metrics
type Metrics struct {
	TotalCampaigns  int            `json:"total_campaigns"`
	StatusBreakdown map[string]int `json:"status_breakdown"`
	ActivePollLoops int            `json:"active_poll_loops"`
	LastSweep       time.Time      `json:"last_sweep"`
}

// NewController creates a controller wired to the given backend surfaces
func NewController(cfg *config.Config, campaignAPI backend.CampaignAPI, analysisAPI backend.AnalysisAPI,
	store storage.StorageInterface, notifier notifications.NotificationInterface) *Controller {

	c := &Controller{
		config:      cfg,
		campaignAPI: campaignAPI,
		analysisAPI: analysisAPI,
		store:       store,
		notifier:    notifier,
		estimator:   NewEstimator(),
	}
	c.supervisor = NewSupervisor(analysisAPI, c, cfg.PollInterval, cfg.StaleTimeout)
	return c
}

// Supervisor exposes the poll supervisor for shutdown and metrics
func (c *Controller) Supervisor() *Supervisor {
	return c.supervisor
}

// Refresh replaces the local list with the server's, carrying over only the
// transient progress trio for campaigns still on the same task, then brings
// the poll loops in line.
func (c *Controller) Refresh(ctx context.Context) error {
	list, err := c.campaignAPI.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh campaigns: %w", err)
	}

	c.mu.Lock()
	previous := make(map[string]*models.Campaign, len(c.campaigns))
	for i := range c.campaigns {
		previous[c.campaigns[i].ID] = &c.campaigns[i]
	}

	now := time.Now()
	known := make(map[string]bool, len(list))
	for i := range list {
		fresh := &list[i]
		known[fresh.ID] = true
		old, ok := previous[fresh.ID]
		if ok && old.TaskID == fresh.TaskID && fresh.Progress == nil && old.Progress != nil {
			fresh.Progress = old.Progress
			fresh.CurrentStep = old.CurrentStep
			fresh.ProgressMessage = old.ProgressMessage
		}
		if DeriveStatus(fresh, now, c.config.StaleTimeout) != models.StatusProcessing {
			c.estimator.Clear(fresh.ID)
		}
	}
	c.estimator.Retain(known)

	c.campaigns = list
	c.lastSweep = now
	snapshot := c.copyListLocked()
	c.mu.Unlock()

	c.supervisor.Reconcile(snapshot)
	logrus.Debugf("Refreshed %d campaigns from backend", len(snapshot))
	return nil
}

// Sweep is the periodic reconciliation pass: refresh from the server and let
// derivation apply the staleness watchdog.
func (c *Controller) Sweep(ctx context.Context) error {
	return c.Refresh(ctx)
}

// Campaigns returns a copy of the current list
func (c *Controller) Campaigns() []models.Campaign {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyListLocked()
}

func (c *Controller) copyListLocked() []models.Campaign {
	out := make([]models.Campaign, len(c.campaigns))
	copy(out, c.campaigns)
	return out
}

// Get returns a copy of one campaign by id
func (c *Controller) Get(id string) (*models.Campaign, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.campaigns {
		if c.campaigns[i].ID == id {
			cp := c.campaigns[i]
			return &cp, true
		}
	}
	return nil, false
}

// DerivedStatus computes the displayed status of a campaign right now
func (c *Controller) DerivedStatus(campaign *models.Campaign) string {
	return DeriveStatus(campaign, time.Now(), c.config.StaleTimeout)
}

// Progress returns the display progress percentage for a campaign
func (c *Controller) Progress(campaign *models.Campaign) int {
	return c.estimator.Estimate(campaign, time.Now())
}

// validateDraft checks locally required fields; failures are never sent to
// the server.
func validateDraft(draft *models.Campaign) error {
	if strings.TrimSpace(draft.Name) == "" {
		return fmt.Errorf("campaign name is required")
	}
	switch draft.Type {
	case models.TypeKeyword:
		if len(draft.Keywords) == 0 {
			return fmt.Errorf("at least one keyword is required")
		}
	case models.TypeURL:
		if len(draft.URLs) == 0 {
			return fmt.Errorf("at least one URL is required")
		}
	case models.TypeTrending:
		if len(draft.TrendingTopics) == 0 {
			return fmt.Errorf("at least one trending topic is required")
		}
	default:
		return fmt.Errorf("unknown campaign type %q", draft.Type)
	}
	return nil
}

// Create validates a draft, fills default settings, and submits it. The
// server assigns id and timestamps.
func (c *Controller) Create(ctx context.Context, draft *models.Campaign) (*models.Campaign, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	if (draft.ExtractionSettings == models.ExtractionSettings{}) {
		draft.ExtractionSettings = models.DefaultExtractionSettings()
	}
	if (draft.PreprocessingSettings == models.PreprocessingSettings{}) {
		draft.PreprocessingSettings = models.DefaultPreprocessingSettings()
	}
	if (draft.EntitySettings == models.EntitySettings{}) {
		draft.EntitySettings = models.DefaultEntitySettings()
	}
	if (draft.ModelingSettings == models.ModelingSettings{}) {
		draft.ModelingSettings = models.DefaultModelingSettings()
	}

	created, err := c.campaignAPI.Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.upsertLocked(*created)
	c.mu.Unlock()

	logrus.Infof("Created campaign %s (%s)", created.ID, created.Name)
	return created, nil
}

// Update sends a partial record and folds the server's fresh copy into the
// list.
func (c *Controller) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := c.campaignAPI.Update(ctx, id, fields); err != nil {
		return err
	}

	fresh, err := c.campaignAPI.Get(ctx, id)
	if err != nil {
		// The update succeeded; the next sweep will pick up the new state.
		logrus.Warnf("Updated campaign %s but could not re-fetch it: %v", id, err)
		return nil
	}

	c.mu.Lock()
	c.upsertLocked(*fresh)
	snapshot := c.copyListLocked()
	c.mu.Unlock()

	c.supervisor.Reconcile(snapshot)
	return nil
}

// Delete removes a campaign. The local entry goes away only after the server
// acknowledges: this path is confirmation-gated, not optimistic.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.campaignAPI.Delete(ctx, id); err != nil {
		return err
	}

	c.supervisor.Stop(id)
	c.estimator.Clear(id)

	c.mu.Lock()
	for i := range c.campaigns {
		if c.campaigns[i].ID == id {
			c.campaigns = append(c.campaigns[:i], c.campaigns[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	logrus.Infof("Deleted campaign %s", id)
	return nil
}

// Merge synthesizes a new campaign from the given sources: source sets are
// unioned, the first source's settings bags are copied. The synthetic record
// is submitted for creation and the list is refreshed from the server rather
// than trusting a client-made id.
func (c *Controller) Merge(ctx context.Context, ids []string) (*models.Campaign, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("merge requires at least two campaigns")
	}

	c.mu.RLock()
	var sources []models.Campaign
	for _, id := range ids {
		for i := range c.campaigns {
			if c.campaigns[i].ID == id {
				sources = append(sources, c.campaigns[i])
				break
			}
		}
	}
	c.mu.RUnlock()

	if len(sources) != len(ids) {
		return nil, fmt.Errorf("merge: %d of %d campaigns not found locally", len(ids)-len(sources), len(ids))
	}

	first := sources[0]
	var names []string
	for _, src := range sources {
		names = append(names, src.Name)
	}

	draft := &models.Campaign{
		Name:                  strings.Join(names, " + "),
		Description:           fmt.Sprintf("Merged from %d campaigns", len(sources)),
		Type:                  first.Type,
		Keywords:              unionStrings(sources, func(s models.Campaign) []string { return s.Keywords }),
		URLs:                  unionStrings(sources, func(s models.Campaign) []string { return s.URLs }),
		TrendingTopics:        unionStrings(sources, func(s models.Campaign) []string { return s.TrendingTopics }),
		Status:                models.StatusIncomplete,
		ExtractionSettings:    first.ExtractionSettings,
		PreprocessingSettings: first.PreprocessingSettings,
		EntitySettings:        first.EntitySettings,
		ModelingSettings:      first.ModelingSettings,
	}

	created, err := c.campaignAPI.Create(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	if err := c.Refresh(ctx); err != nil {
		logrus.Warnf("Merge created campaign %s but refresh failed: %v", created.ID, err)
	}

	logrus.Infof("Merged %d campaigns into %s", len(sources), created.ID)
	return created, nil
}

func unionStrings(sources []models.Campaign, pick func(models.Campaign) []string) []string {
	seen := make(map[string]bool)
	var union []string
	for _, src := range sources {
		for _, v := range pick(src) {
			if !seen[v] {
				seen[v] = true
				union = append(union, v)
			}
		}
	}
	return union
}

// ResetStatus lets a user manually clear a stuck PROCESSING state without
// waiting for the watchdog. The explicit PUT short-circuits derivation.
func (c *Controller) ResetStatus(ctx context.Context, id string) error {
	if err := c.campaignAPI.Update(ctx, id, map[string]interface{}{
		"status":  models.StatusIncomplete,
		"task_id": "",
	}); err != nil {
		return err
	}

	c.supervisor.Stop(id)
	c.estimator.Clear(id)

	c.mu.Lock()
	if campaign := c.findLocked(id); campaign != nil {
		campaign.Status = models.StatusIncomplete
		campaign.TaskID = ""
		campaign.Progress = nil
		campaign.CurrentStep = ""
		campaign.ProgressMessage = ""
		campaign.UpdatedAt = time.Now()
	}
	c.mu.Unlock()

	logrus.Infof("Reset campaign %s to INCOMPLETE", id)
	return nil
}

// Activate moves a READY_TO_ACTIVATE campaign to ACTIVE, the terminal
// business state.
func (c *Controller) Activate(ctx context.Context, id string) error {
	campaign, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("campaign %s not found", id)
	}
	if c.DerivedStatus(campaign) != models.StatusReadyToActivate {
		return fmt.Errorf("campaign %s is not ready to activate", id)
	}

	if err := c.campaignAPI.Update(ctx, id, map[string]interface{}{
		"status": models.StatusActive,
	}); err != nil {
		return err
	}

	c.mu.Lock()
	if local := c.findLocked(id); local != nil {
		local.Status = models.StatusActive
		local.UpdatedAt = time.Now()
	}
	c.mu.Unlock()

	logrus.Infof("Activated campaign %s", id)
	return nil
}

// StartAnalysis kicks off the remote pipeline for a campaign and registers
// its poll loop.
func (c *Controller) StartAnalysis(ctx context.Context, id string) (string, error) {
	campaign, ok := c.Get(id)
	if !ok {
		return "", fmt.Errorf("campaign %s not found", id)
	}
	if err := validateDraft(campaign); err != nil {
		return "", err
	}

	taskID, err := c.analysisAPI.Start(ctx, campaign)
	if err != nil {
		return "", err
	}

	if err := c.campaignAPI.Update(ctx, id, map[string]interface{}{
		"status":  models.StatusProcessing,
		"task_id": taskID,
	}); err != nil {
		return "", fmt.Errorf("analysis started (task %s) but marking campaign failed: %w", taskID, err)
	}

	c.estimator.Clear(id)

	c.mu.Lock()
	if local := c.findLocked(id); local != nil {
		local.Status = models.StatusProcessing
		local.TaskID = taskID
		local.Progress = nil
		local.CurrentStep = ""
		local.ProgressMessage = ""
		local.UpdatedAt = time.Now()
	}
	snapshot := c.copyListLocked()
	c.mu.Unlock()

	c.supervisor.Reconcile(snapshot)
	logrus.Infof("Started analysis for campaign %s (task %s)", id, taskID)
	return taskID, nil
}

// ApplyTaskStatus merges one poll result into the matching campaign. Updates
// for a task id the campaign no longer carries are discarded, which makes
// re-processing idempotent by task id.
func (c *Controller) ApplyTaskStatus(campaignID, taskID string, status *models.TaskStatus) {
	c.mu.Lock()

	campaign := c.findLocked(campaignID)
	if campaign == nil {
		c.mu.Unlock()
		return
	}
	if campaign.TaskID != taskID {
		c.mu.Unlock()
		logrus.Debugf("Discarding status for superseded task %s on campaign %s", taskID, campaignID)
		return
	}

	now := time.Now()
	switch status.Status {
	case models.TaskCompleted:
		// The record stays PROCESSING until the derived outputs are fetched;
		// flipping to READY before the topics land would make the displayed
		// status dip to INCOMPLETE in between.
		campaign.Progress = nil
		campaign.CurrentStep = ""
		campaign.ProgressMessage = ""
		campaign.UpdatedAt = now
		c.mu.Unlock()
		go c.finalizeCompleted(campaignID, taskID)
		return

	case models.TaskFailed:
		campaign.Status = models.StatusIncomplete
		campaign.Progress = nil
		campaign.CurrentStep = ""
		campaign.ProgressMessage = ""
		campaign.UpdatedAt = now
		failed := *campaign
		c.mu.Unlock()
		c.estimator.Clear(campaignID)
		c.notifyFailed(&failed, status.Message)
		return

	default:
		progress := status.Progress
		campaign.Progress = &progress
		campaign.CurrentStep = status.CurrentStep
		campaign.ProgressMessage = status.Message
		campaign.UpdatedAt = now
		c.mu.Unlock()
	}
}

// finalizeCompleted pulls the finished record from the server so the derived
// outputs (topics, entities, posts) and the READY transition land together,
// snapshots them, and sends the ready notification. If the fetch fails the
// campaign stays PROCESSING and the next sweep picks up the server state.
func (c *Controller) finalizeCompleted(campaignID, taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.RequestTimeout)
	defer cancel()

	fresh, err := c.campaignAPI.Get(ctx, campaignID)
	if err != nil {
		logrus.Errorf("Task %s completed but fetching campaign %s failed: %v", taskID, campaignID, err)
		return
	}

	c.mu.Lock()
	if local := c.findLocked(campaignID); local != nil && local.TaskID == taskID {
		*local = *fresh
		local.Status = models.StatusReadyToActivate
	}
	c.mu.Unlock()

	c.estimator.Clear(campaignID)

	c.snapshotInsights(fresh)

	if c.config.NotifyOnReady && c.notifier != nil {
		if err := c.notifier.SendCampaignReady(fresh); err != nil {
			logrus.Errorf("Failed to send ready notification for campaign %s: %v", campaignID, err)
		}
	}
}

func (c *Controller) notifyFailed(campaign *models.Campaign, reason string) {
	if c.notifier == nil {
		return
	}
	if reason == "" {
		reason = "the backend reported a failed analysis task"
	}
	if err := c.notifier.SendAnalysisFailed(campaign, reason); err != nil {
		logrus.Errorf("Failed to send failure notification for campaign %s: %v", campaign.ID, err)
	}
}

// snapshotInsights caches the derived outputs in storage. Losing the cache
// only degrades the UX; the server copy stays authoritative.
func (c *Controller) snapshotInsights(campaign *models.Campaign) {
	if c.store == nil {
		return
	}

	insights := map[string]interface{}{
		"campaign_id":   campaign.ID,
		"topics":        campaign.Topics,
		"persons":       campaign.Persons,
		"organizations": campaign.Organizations,
		"locations":     campaign.Locations,
		"dates":         campaign.Dates,
		"summary":       campaign.Summary,
		"captured_at":   time.Now().UTC(),
	}

	data, err := json.Marshal(insights)
	if err != nil {
		logrus.Errorf("Failed to marshal insights for campaign %s: %v", campaign.ID, err)
		return
	}

	filename := fmt.Sprintf("insights-%s.json", campaign.ID)
	if err := c.store.Store(filename, data); err != nil {
		logrus.Errorf("Failed to store insights snapshot %s: %v", filename, err)
		return
	}
	logrus.Debugf("Stored insights snapshot %s", filename)
}

func (c *Controller) findLocked(id string) *models.Campaign {
	for i := range c.campaigns {
		if c.campaigns[i].ID == id {
			return &c.campaigns[i]
		}
	}
	return nil
}

func (c *Controller) upsertLocked(campaign models.Campaign) {
	for i := range c.campaigns {
		if c.campaigns[i].ID == campaign.ID {
			c.campaigns[i] = campaign
			return
		}
	}
	c.campaigns = append(c.campaigns, campaign)
}

// GetMetrics returns current controller metrics as JSON
func (c *Controller) GetMetrics() string {
	c.mu.RLock()
	now := time.Now()
	metrics := Metrics{
		TotalCampaigns:  len(c.campaigns),
		StatusBreakdown: make(map[string]int),
		LastSweep:       c.lastSweep,
	}
	for i := range c.campaigns {
		metrics.StatusBreakdown[DeriveStatus(&c.campaigns[i], now, c.config.StaleTimeout)]++
	}
	c.mu.RUnlock()

	metrics.ActivePollLoops = c.supervisor.ActiveCount()

	data, _ := json.MarshalIndent(metrics, "", "  ")
	return string(data)
}
