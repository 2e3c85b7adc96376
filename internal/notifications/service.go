package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/contentpulse/campaign-controller/internal/config"
	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Service sends lifecycle notifications via Teams webhook and/or email
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle string      `json:"activityTitle,omitempty"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []TeamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// SendCampaignReady announces that a campaign finished analysis and can be
// activated
func (s *Service) SendCampaignReady(campaign *models.Campaign) error {
	title := fmt.Sprintf("Campaign ready: %s", campaign.Name)
	text := fmt.Sprintf("Analysis finished with %d topics from %d sources. The campaign is ready to activate.",
		len(campaign.Topics), len(campaign.Posts))

	facts := []TeamsFact{
		{Name: "Campaign", Value: campaign.Name},
		{Name: "Type", Value: campaign.Type},
		{Name: "Topics", Value: fmt.Sprintf("%d", len(campaign.Topics))},
		{Name: "Entities", Value: fmt.Sprintf("%d", len(campaign.Persons)+len(campaign.Organizations)+len(campaign.Locations))},
	}

	return s.send(title, text, facts, strings.Join(campaign.Topics, ", "))
}

// SendAnalysisFailed reports a failed or abandoned analysis run
func (s *Service) SendAnalysisFailed(campaign *models.Campaign, reason string) error {
	title := fmt.Sprintf("Campaign analysis failed: %s", campaign.Name)
	text := fmt.Sprintf("The analysis run for %q did not complete: %s", campaign.Name, reason)

	facts := []TeamsFact{
		{Name: "Campaign", Value: campaign.Name},
		{Name: "Task", Value: campaign.TaskID},
		{Name: "Reason", Value: reason},
	}

	return s.send(title, text, facts, "")
}

func (s *Service) send(title, text string, facts []TeamsFact, detail string) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(title, text, facts, detail); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Sent Teams notification")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(title, text, facts, detail); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Sent email notification")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendToTeams(title, text string, facts []TeamsFact, detail string) error {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   title,
		Text:    text,
	}

	section := TeamsSection{
		ActivityTitle: "Details",
		Facts:         facts,
		Markdown:      true,
	}
	if detail != "" {
		section.ActivityText = detail
	}
	message.Sections = append(message.Sections, section)

	resp, err := s.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(message).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) sendEmail(subject, text string, facts []TeamsFact, detail string) error {
	var body strings.Builder
	body.WriteString(text)
	body.WriteString("\n\n")
	for _, fact := range facts {
		body.WriteString(fmt.Sprintf("%s: %s\n", fact.Name, fact.Value))
	}
	if detail != "" {
		body.WriteString("\n")
		body.WriteString(detail)
		body.WriteString("\n")
	}
	body.WriteString("\n---\nThis notification was generated automatically by the campaign controller.\n")

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body.String())

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
