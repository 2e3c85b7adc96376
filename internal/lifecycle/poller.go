package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/contentpulse/campaign-controller/internal/backend"
	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is the fixed spacing between task-status polls.
const DefaultPollInterval = 2 * time.Second

// StatusSink receives task-status updates from poll loops. Implementations
// must discard updates whose task id no longer matches the campaign's
// current one, so a retry can never be clobbered by an old draining loop.
type StatusSink interface {
	ApplyTaskStatus(campaignID, taskID string, status *models.TaskStatus)
}

type pollHandle struct {
	taskID string
	cancel context.CancelFunc
}

// Supervisor owns one polling loop per in-flight analysis task. At any
// instant the set of active loops matches the set of campaigns whose derived
// status is PROCESSING and which carry a task id: no duplicates, no orphans.
type Supervisor struct {
	analysis   backend.AnalysisAPI
	sink       StatusSink
	interval   time.Duration
	staleAfter time.Duration

	mu      sync.Mutex
	handles map[string]*pollHandle
}

// NewSupervisor creates a supervisor polling through the given analysis API
func NewSupervisor(analysis backend.AnalysisAPI, sink StatusSink, interval, staleAfter time.Duration) *Supervisor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleTimeout
	}
	return &Supervisor{
		analysis:   analysis,
		sink:       sink,
		interval:   interval,
		staleAfter: staleAfter,
		handles:    make(map[string]*pollHandle),
	}
}

// Reconcile brings the set of poll loops in line with the given campaign
// list: it starts a loop for every derived-PROCESSING campaign with a task
// id, restarts loops whose task id changed (re-processing), and stops loops
// whose campaign left PROCESSING, lost its task id, or disappeared.
func (s *Supervisor) Reconcile(campaigns []models.Campaign) {
	now := time.Now()
	wanted := make(map[string]string, len(campaigns))
	for i := range campaigns {
		c := &campaigns[i]
		if c.TaskID != "" && DeriveStatus(c, now, s.staleAfter) == models.StatusProcessing {
			wanted[c.ID] = c.TaskID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, h := range s.handles {
		taskID, ok := wanted[id]
		if ok && taskID == h.taskID {
			continue
		}
		h.cancel()
		delete(s.handles, id)
		logrus.Debugf("Stopped poll loop for campaign %s (task %s)", id, h.taskID)
	}

	for id, taskID := range wanted {
		if _, ok := s.handles[id]; ok {
			continue
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.handles[id] = &pollHandle{taskID: taskID, cancel: cancel}
		go s.poll(ctx, id, taskID)
		logrus.Infof("Started poll loop for campaign %s (task %s)", id, taskID)
	}
}

// poll queries the status endpoint on a fixed interval until the task
// reaches a terminal state or the loop is cancelled. Transport errors are
// transient: log and let the next tick retry.
func (s *Supervisor) poll(ctx context.Context, campaignID, taskID string) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, err := s.analysis.Status(ctx, taskID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logrus.Warnf("Poll tick failed for task %s: %v", taskID, err)
				continue
			}

			s.sink.ApplyTaskStatus(campaignID, taskID, status)

			if status.Terminal() {
				logrus.Infof("Task %s reached terminal state %q, stopping poll loop", taskID, status.Status)
				s.removeOwn(campaignID, taskID)
				return
			}
		}
	}
}

// removeOwn drops the handle for this loop. The task id guard keeps a
// terminal tick from an old loop from tearing down a newer one.
func (s *Supervisor) removeOwn(campaignID, taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[campaignID]; ok && h.taskID == taskID {
		h.cancel()
		delete(s.handles, campaignID)
	}
}

// Stop cancels the poll loop for one campaign, if any
func (s *Supervisor) Stop(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[campaignID]; ok {
		h.cancel()
		delete(s.handles, campaignID)
	}
}

// StopAll cancels every poll loop; used on shutdown
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, h := range s.handles {
		h.cancel()
		delete(s.handles, id)
	}
}

// IsPolling reports whether a loop is registered for the campaign
func (s *Supervisor) IsPolling(campaignID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handles[campaignID]
	return ok
}

// ActiveCount returns the number of registered poll loops
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}
