package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/stretchr/testify/assert"
)

// fakeAnalysis serves scripted task statuses and counts queries
type fakeAnalysis struct {
	mu       sync.Mutex
	statuses map[string]models.TaskStatus
	errors   map[string]error
	calls    map[string]int
}

func newFakeAnalysis() *fakeAnalysis {
	return &fakeAnalysis{
		statuses: make(map[string]models.TaskStatus),
		errors:   make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeAnalysis) set(taskID string, status models.TaskStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[taskID] = status
	delete(f.errors, taskID)
}

func (f *fakeAnalysis) fail(taskID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[taskID] = err
}

func (f *fakeAnalysis) callCount(taskID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[taskID]
}

func (f *fakeAnalysis) Start(ctx context.Context, campaign *models.Campaign) (string, error) {
	return "task-" + campaign.ID, nil
}

func (f *fakeAnalysis) Status(ctx context.Context, taskID string) (*models.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[taskID]++
	if err, ok := f.errors[taskID]; ok {
		return nil, err
	}
	status, ok := f.statuses[taskID]
	if !ok {
		return nil, fmt.Errorf("unknown task %s", taskID)
	}
	return &status, nil
}

// recordingSink collects applied updates
type recordingSink struct {
	mu      sync.Mutex
	updates []models.TaskStatus
}

func (r *recordingSink) ApplyTaskStatus(campaignID, taskID string, status *models.TaskStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, *status)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func processingCampaign(id, taskID string) models.Campaign {
	return models.Campaign{
		ID:        id,
		Status:    models.StatusProcessing,
		TaskID:    taskID,
		UpdatedAt: time.Now(),
	}
}

func TestSupervisor_ReconcileStartsOneLoopPerTask(t *testing.T) {
	analysis := newFakeAnalysis()
	analysis.set("t1", models.TaskStatus{Status: models.TaskProcessing, Progress: 10})
	analysis.set("t2", models.TaskStatus{Status: models.TaskProcessing, Progress: 20})

	supervisor := NewSupervisor(analysis, &recordingSink{}, 10*time.Millisecond, DefaultStaleTimeout)
	defer supervisor.StopAll()

	campaigns := []models.Campaign{
		processingCampaign("c1", "t1"),
		processingCampaign("c2", "t2"),
		{ID: "c3", Status: models.StatusIncomplete},                          // not processing
		{ID: "c4", Status: models.StatusProcessing, UpdatedAt: time.Now()},   // no task id
		{ID: "c5", Topics: []string{"done"}, TaskID: "t5", Status: models.StatusProcessing}, // derived ready
	}

	supervisor.Reconcile(campaigns)
	assert.Equal(t, 2, supervisor.ActiveCount())
	assert.True(t, supervisor.IsPolling("c1"))
	assert.True(t, supervisor.IsPolling("c2"))
	assert.False(t, supervisor.IsPolling("c5"))

	// Reconciling again must not duplicate loops
	supervisor.Reconcile(campaigns)
	assert.Equal(t, 2, supervisor.ActiveCount())
}

func TestSupervisor_ReconcileStopsDepartedLoops(t *testing.T) {
	analysis := newFakeAnalysis()
	analysis.set("t1", models.TaskStatus{Status: models.TaskProcessing})

	supervisor := NewSupervisor(analysis, &recordingSink{}, 10*time.Millisecond, DefaultStaleTimeout)
	defer supervisor.StopAll()

	supervisor.Reconcile([]models.Campaign{processingCampaign("c1", "t1")})
	assert.Equal(t, 1, supervisor.ActiveCount())

	// Campaign left PROCESSING
	done := processingCampaign("c1", "t1")
	done.Topics = []string{"topic-a"}
	supervisor.Reconcile([]models.Campaign{done})
	assert.Equal(t, 0, supervisor.ActiveCount())
}

func TestSupervisor_TaskIDChangeRestartsLoop(t *testing.T) {
	analysis := newFakeAnalysis()
	analysis.set("t1", models.TaskStatus{Status: models.TaskProcessing})
	analysis.set("t2", models.TaskStatus{Status: models.TaskProcessing})

	supervisor := NewSupervisor(analysis, &recordingSink{}, 10*time.Millisecond, DefaultStaleTimeout)
	defer supervisor.StopAll()

	supervisor.Reconcile([]models.Campaign{processingCampaign("c1", "t1")})
	assert.Eventually(t, func() bool { return analysis.callCount("t1") > 0 }, time.Second, 5*time.Millisecond)

	// User retried: same campaign, new task
	supervisor.Reconcile([]models.Campaign{processingCampaign("c1", "t2")})
	assert.Equal(t, 1, supervisor.ActiveCount())
	assert.Eventually(t, func() bool { return analysis.callCount("t2") > 0 }, time.Second, 5*time.Millisecond)
}

func TestSupervisor_TerminalStateStopsLoop(t *testing.T) {
	tests := []struct {
		name   string
		status string
	}{
		{"Completed task", models.TaskCompleted},
		{"Failed task", models.TaskFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := newFakeAnalysis()
			analysis.set("t1", models.TaskStatus{Status: tt.status, Progress: 100})
			sink := &recordingSink{}

			supervisor := NewSupervisor(analysis, sink, 10*time.Millisecond, DefaultStaleTimeout)
			defer supervisor.StopAll()

			supervisor.Reconcile([]models.Campaign{processingCampaign("c1", "t1")})

			assert.Eventually(t, func() bool { return supervisor.ActiveCount() == 0 }, time.Second, 5*time.Millisecond)
			assert.GreaterOrEqual(t, sink.count(), 1)

			// No further polling once terminal
			settled := analysis.callCount("t1")
			time.Sleep(50 * time.Millisecond)
			assert.Equal(t, settled, analysis.callCount("t1"))
		})
	}
}

func TestSupervisor_TransientErrorsKeepPolling(t *testing.T) {
	analysis := newFakeAnalysis()
	analysis.fail("t1", fmt.Errorf("connection refused"))
	sink := &recordingSink{}

	supervisor := NewSupervisor(analysis, sink, 10*time.Millisecond, DefaultStaleTimeout)
	defer supervisor.StopAll()

	supervisor.Reconcile([]models.Campaign{processingCampaign("c1", "t1")})

	assert.Eventually(t, func() bool { return analysis.callCount("t1") >= 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, supervisor.ActiveCount(), "loop must survive transient errors")
	assert.Equal(t, 0, sink.count())

	// Recovery on a later tick
	analysis.set("t1", models.TaskStatus{Status: models.TaskProcessing, Progress: 30})
	assert.Eventually(t, func() bool { return sink.count() > 0 }, time.Second, 5*time.Millisecond)
}

func TestSupervisor_StopAll(t *testing.T) {
	analysis := newFakeAnalysis()
	analysis.set("t1", models.TaskStatus{Status: models.TaskProcessing})
	analysis.set("t2", models.TaskStatus{Status: models.TaskProcessing})

	supervisor := NewSupervisor(analysis, &recordingSink{}, 10*time.Millisecond, DefaultStaleTimeout)

	supervisor.Reconcile([]models.Campaign{
		processingCampaign("c1", "t1"),
		processingCampaign("c2", "t2"),
	})
	assert.Equal(t, 2, supervisor.ActiveCount())

	supervisor.StopAll()
	assert.Equal(t, 0, supervisor.ActiveCount())
}
