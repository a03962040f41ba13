package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

type recordingSink struct {
	created []*models.Notification
	err     error
}

func (s *recordingSink) CreateNotification(ctx context.Context, n *models.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, n)
	return nil
}

func TestNotifyPersistsNotification(t *testing.T) {
	sink := &recordingSink{}
	n := New(sink)
	userID := uuid.New()

	n.Notify(context.Background(), userID, models.NotificationOrder, "New order", "You received an order", map[string]any{"total": 42.0})

	if len(sink.created) != 1 {
		t.Fatalf("created = %d notifications, want 1", len(sink.created))
	}
	got := sink.created[0]
	if got.UserID != userID {
		t.Errorf("UserID = %s, want %s", got.UserID, userID)
	}
	if got.Category != models.NotificationOrder {
		t.Errorf("Category = %s, want %s", got.Category, models.NotificationOrder)
	}
	if got.Title != "New order" {
		t.Errorf("Title = %q", got.Title)
	}
}

func TestNotifySkipsNilRecipient(t *testing.T) {
	sink := &recordingSink{}
	n := New(sink)

	n.Notify(context.Background(), uuid.Nil, models.NotificationOrder, "t", "m", nil)

	if len(sink.created) != 0 {
		t.Errorf("created = %d notifications, want 0", len(sink.created))
	}
}

func TestNotifySwallowsSinkErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	n := New(sink)

	// Must not panic or propagate
	n.Notify(context.Background(), uuid.New(), models.NotificationShipment, "t", "m", nil)
}

func TestNotifyNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Notify(context.Background(), uuid.New(), models.NotificationOrder, "t", "m", nil)
}
