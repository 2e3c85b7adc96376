package scheduling

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/contentpulse/campaign-controller/internal/models"
	"github.com/contentpulse/campaign-controller/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const snapshotFilename = "content-queue.json"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Queue holds scheduled content items keyed by their day/platform/week slot.
// Each slot holds at most one item. The queue is a cache persisted through
// the storage backend; the posting itself happens server-side.
type Queue struct {
	store storage.StorageInterface

	mu    sync.Mutex
	items map[string]models.QueueItem // slot key -> item
}

// NewQueue creates a queue, reloading any persisted snapshot
func NewQueue(store storage.StorageInterface) *Queue {
	q := &Queue{
		store: store,
		items: make(map[string]models.QueueItem),
	}
	q.load()
	return q
}

func slotKey(slot models.TimeSlot, week string) string {
	return fmt.Sprintf("%s/%s/%02d/%s", week, slot.Day, slot.Hour, slot.Platform)
}

// Add places content into a slot. A slot can hold only one item per week.
func (q *Queue) Add(content models.GeneratedContent, slot models.TimeSlot, week string) (*models.QueueItem, error) {
	day, ok := weekdays[slot.Day]
	if !ok {
		return nil, fmt.Errorf("invalid day %q", slot.Day)
	}
	if slot.Hour < 0 || slot.Hour > 23 {
		return nil, fmt.Errorf("invalid hour %d", slot.Hour)
	}

	scheduledAt, err := slotTime(week, day, slot.Hour)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	key := slotKey(slot, week)
	if _, taken := q.items[key]; taken {
		return nil, fmt.Errorf("slot %s %dh on %s is already taken for week %s", slot.Day, slot.Hour, slot.Platform, week)
	}

	item := models.QueueItem{
		ID:          uuid.NewString(),
		Content:     content,
		Slot:        slot,
		Week:        week,
		ScheduledAt: scheduledAt,
	}
	q.items[key] = item
	q.persistLocked()

	return &item, nil
}

// Remove drops an item by id
func (q *Queue) Remove(itemID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for key, item := range q.items {
		if item.ID == itemID {
			delete(q.items, key)
			q.persistLocked()
			return true
		}
	}
	return false
}

// Week returns the items scheduled for one ISO week
func (q *Queue) Week(week string) []models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []models.QueueItem
	for _, item := range q.items {
		if item.Week == week {
			out = append(out, item)
		}
	}
	return out
}

// Due returns unpublished items whose scheduled time has passed
func (q *Queue) Due(now time.Time) []models.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []models.QueueItem
	for _, item := range q.items {
		if !item.Published && !item.ScheduledAt.After(now) {
			due = append(due, item)
		}
	}
	return due
}

// MarkPublished flags an item as posted
func (q *Queue) MarkPublished(itemID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for key, item := range q.items {
		if item.ID == itemID {
			item.Published = true
			q.items[key] = item
			q.persistLocked()
			return
		}
	}
}

// Len returns the number of queued items
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) load() {
	if q.store == nil {
		return
	}

	data, err := q.store.Retrieve(snapshotFilename)
	if err != nil {
		logrus.Debugf("No content queue snapshot to reload: %v", err)
		return
	}

	var items []models.QueueItem
	if err := json.Unmarshal(data, &items); err != nil {
		logrus.Warnf("Ignoring corrupt content queue snapshot: %v", err)
		return
	}

	for _, item := range items {
		q.items[slotKey(item.Slot, item.Week)] = item
	}
	logrus.Infof("Reloaded %d queued content items", len(items))
}

func (q *Queue) persistLocked() {
	if q.store == nil {
		return
	}

	items := make([]models.QueueItem, 0, len(q.items))
	for _, item := range q.items {
		items = append(items, item)
	}

	data, err := json.Marshal(items)
	if err != nil {
		logrus.Errorf("Failed to marshal content queue: %v", err)
		return
	}
	if err := q.store.Store(snapshotFilename, data); err != nil {
		logrus.Errorf("Failed to persist content queue: %v", err)
	}
}

// slotTime resolves an ISO week string like "2026-W35" plus a weekday and
// hour to a concrete UTC time.
func slotTime(week string, day time.Weekday, hour int) (time.Time, error) {
	var year, weekNum int
	if _, err := fmt.Sscanf(week, "%d-W%d", &year, &weekNum); err != nil {
		return time.Time{}, fmt.Errorf("invalid week %q: %w", week, err)
	}
	if weekNum < 1 || weekNum > 53 {
		return time.Time{}, fmt.Errorf("invalid week number %d", weekNum)
	}

	// Start from Jan 4, always inside ISO week 1, then walk to the target.
	ref := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	for ref.Weekday() != time.Monday {
		ref = ref.AddDate(0, 0, -1)
	}
	monday := ref.AddDate(0, 0, (weekNum-1)*7)

	offset := int(day) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	return monday.AddDate(0, 0, offset).Add(time.Duration(hour) * time.Hour), nil
}
