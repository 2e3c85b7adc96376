package scheduling

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStorage keeps snapshots in memory for testing
type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string][]byte)}
}

func (m *memStorage) Store(filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[filename] = data
	return nil
}

func (m *memStorage) Retrieve(filename string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if data, exists := m.data[filename]; exists {
		return data, nil
	}
	return nil, fmt.Errorf("file not found: %s", filename)
}

func (m *memStorage) List(prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var files []string
	for filename := range m.data {
		if strings.HasPrefix(filename, prefix) {
			files = append(files, filename)
		}
	}
	return files, nil
}

func (m *memStorage) Delete(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, filename)
	return nil
}

func sampleContent(id string) models.GeneratedContent {
	return models.GeneratedContent{
		ID:         id,
		CampaignID: "c1",
		Type:       "post",
		Text:       "Fresh insights from our latest analysis",
	}
}

func TestQueue_AddAndSlotUniqueness(t *testing.T) {
	queue := NewQueue(newMemStorage())
	slot := models.TimeSlot{Day: "monday", Hour: 9, Platform: "linkedin"}

	item, err := queue.Add(sampleContent("g1"), slot, "2026-W12")
	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, 1, queue.Len())

	// Same slot, same week: rejected
	_, err = queue.Add(sampleContent("g2"), slot, "2026-W12")
	assert.Error(t, err)

	// Same slot, different week: fine
	_, err = queue.Add(sampleContent("g2"), slot, "2026-W13")
	require.NoError(t, err)

	// Same week, different platform: fine
	_, err = queue.Add(sampleContent("g3"), models.TimeSlot{Day: "monday", Hour: 9, Platform: "x"}, "2026-W12")
	require.NoError(t, err)

	assert.Equal(t, 3, queue.Len())
}

func TestQueue_RejectsInvalidSlots(t *testing.T) {
	queue := NewQueue(nil)

	tests := []struct {
		name string
		slot models.TimeSlot
		week string
	}{
		{"Bad day", models.TimeSlot{Day: "moonday", Hour: 9, Platform: "x"}, "2026-W12"},
		{"Bad hour", models.TimeSlot{Day: "monday", Hour: 24, Platform: "x"}, "2026-W12"},
		{"Bad week", models.TimeSlot{Day: "monday", Hour: 9, Platform: "x"}, "someweek"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := queue.Add(sampleContent("g1"), tt.slot, tt.week)
			assert.Error(t, err)
		})
	}
}

func TestQueue_SlotTimeResolution(t *testing.T) {
	queue := NewQueue(nil)

	// ISO week 2026-W12 starts Monday 2026-03-16
	item, err := queue.Add(sampleContent("g1"), models.TimeSlot{Day: "wednesday", Hour: 14, Platform: "x"}, "2026-W12")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 18, 14, 0, 0, 0, time.UTC), item.ScheduledAt)
}

func TestQueue_DueSelection(t *testing.T) {
	queue := NewQueue(nil)

	past, err := queue.Add(sampleContent("g1"), models.TimeSlot{Day: "monday", Hour: 8, Platform: "x"}, "2020-W10")
	require.NoError(t, err)
	_, err = queue.Add(sampleContent("g2"), models.TimeSlot{Day: "monday", Hour: 8, Platform: "x"}, "2099-W10")
	require.NoError(t, err)

	due := queue.Due(time.Now())
	require.Len(t, due, 1)
	assert.Equal(t, past.ID, due[0].ID)

	queue.MarkPublished(past.ID)
	assert.Empty(t, queue.Due(time.Now()), "published items are not due again")
}

func TestQueue_PersistsAndReloads(t *testing.T) {
	store := newMemStorage()

	queue := NewQueue(store)
	item, err := queue.Add(sampleContent("g1"), models.TimeSlot{Day: "friday", Hour: 17, Platform: "linkedin"}, "2026-W20")
	require.NoError(t, err)

	reloaded := NewQueue(store)
	assert.Equal(t, 1, reloaded.Len())

	week := reloaded.Week("2026-W20")
	require.Len(t, week, 1)
	assert.Equal(t, item.ID, week[0].ID)
	assert.Equal(t, "g1", week[0].Content.ID)
}

func TestQueue_Remove(t *testing.T) {
	queue := NewQueue(newMemStorage())
	item, err := queue.Add(sampleContent("g1"), models.TimeSlot{Day: "monday", Hour: 9, Platform: "x"}, "2026-W12")
	require.NoError(t, err)

	assert.True(t, queue.Remove(item.ID))
	assert.False(t, queue.Remove(item.ID), "double remove reports not found")
	assert.Equal(t, 0, queue.Len())

	// The slot is free again
	_, err = queue.Add(sampleContent("g2"), models.TimeSlot{Day: "monday", Hour: 9, Platform: "x"}, "2026-W12")
	assert.NoError(t, err)
}

// stubContentAPI records publish calls and can fail selectively
type stubContentAPI struct {
	mu        sync.Mutex
	published []string
	failIDs   map[string]bool
}

func (s *stubContentAPI) GenerateContent(ctx context.Context, campaignID, contentType, tone string) (*models.GeneratedContent, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubContentAPI) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (s *stubContentAPI) Publish(ctx context.Context, item *models.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIDs[item.ID] {
		return fmt.Errorf("platform rejected item %s", item.ID)
	}
	s.published = append(s.published, item.ID)
	return nil
}

func TestPublisher_PublishDue(t *testing.T) {
	queue := NewQueue(newMemStorage())
	dueItem, err := queue.Add(sampleContent("g1"), models.TimeSlot{Day: "monday", Hour: 8, Platform: "x"}, "2020-W10")
	require.NoError(t, err)
	_, err = queue.Add(sampleContent("g2"), models.TimeSlot{Day: "monday", Hour: 8, Platform: "x"}, "2099-W10")
	require.NoError(t, err)

	api := &stubContentAPI{}
	publisher := NewPublisher(queue, api)

	require.NoError(t, publisher.PublishDue(context.Background()))
	assert.Equal(t, []string{dueItem.ID}, api.published)
	assert.Empty(t, queue.Due(time.Now()))

	// Nothing due: second run is a no-op
	require.NoError(t, publisher.PublishDue(context.Background()))
	assert.Len(t, api.published, 1)
}

func TestPublisher_FailedItemsStayQueued(t *testing.T) {
	queue := NewQueue(newMemStorage())
	item, err := queue.Add(sampleContent("g1"), models.TimeSlot{Day: "monday", Hour: 8, Platform: "x"}, "2020-W10")
	require.NoError(t, err)

	api := &stubContentAPI{failIDs: map[string]bool{item.ID: true}}
	publisher := NewPublisher(queue, api)

	assert.Error(t, publisher.PublishDue(context.Background()))
	assert.Len(t, queue.Due(time.Now()), 1, "failed item is retried on the next run")
}
