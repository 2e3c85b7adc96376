package scheduler

import (
	"context"

	"github.com/contentpulse/campaign-controller/internal/config"
	"github.com/contentpulse/campaign-controller/internal/lifecycle"
	"github.com/contentpulse/campaign-controller/internal/scheduling"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Service schedules the periodic lifecycle sweep and the content publish job
type Service struct {
	config     *config.Config
	controller *lifecycle.Controller
	publisher  *scheduling.Publisher
	cron       *cron.Cron
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, controller *lifecycle.Controller, publisher *scheduling.Publisher) *Service {
	return &Service{
		config:     cfg,
		controller: controller,
		publisher:  publisher,
		cron:       cron.New(cron.WithSeconds()),
	}
}

// Start begins the scheduled jobs
func (s *Service) Start() error {
	var sweepExpression string

	switch s.config.SweepSchedule {
	case "minutely":
		sweepExpression = "0 * * * * *"
	case "hourly":
		sweepExpression = "0 0 * * * *"
	default:
		sweepExpression = "0 * * * * *"
	}

	_, err := s.cron.AddFunc(sweepExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
		defer cancel()
		if err := s.controller.Sweep(ctx); err != nil {
			logrus.Errorf("Scheduled sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	// Publish due content every 15 minutes
	_, err = s.cron.AddFunc("0 */15 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.RequestTimeout)
		defer cancel()
		if err := s.publisher.PublishDue(ctx); err != nil {
			logrus.Errorf("Content publish run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with %s sweep (plus content publishing every 15 minutes)", s.config.SweepSchedule)
	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		logrus.Info("Scheduler stopped")
	}
}
