package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/contentpulse/campaign-controller/internal/backend"
	"github.com/sirupsen/logrus"
)

// Publisher hands due queue items to the backend for posting
type Publisher struct {
	queue   *Queue
	content backend.ContentAPI
}

// NewPublisher creates a publisher for the given queue
func NewPublisher(queue *Queue, content backend.ContentAPI) *Publisher {
	return &Publisher{queue: queue, content: content}
}

// PublishDue posts every unpublished item whose slot time has passed.
// Failures are logged per item; the next run retries them.
func (p *Publisher) PublishDue(ctx context.Context) error {
	due := p.queue.Due(time.Now())
	if len(due) == 0 {
		return nil
	}

	logrus.Infof("Publishing %d due content items", len(due))

	failed := 0
	for i := range due {
		item := due[i]
		if err := p.content.Publish(ctx, &item); err != nil {
			logrus.Errorf("Failed to publish item %s (%s on %s): %v", item.ID, item.Slot.Day, item.Slot.Platform, err)
			failed++
			continue
		}
		p.queue.MarkPublished(item.ID)
		logrus.Infof("Published item %s to %s", item.ID, item.Slot.Platform)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d due items failed to publish", failed, len(due))
	}
	return nil
}
