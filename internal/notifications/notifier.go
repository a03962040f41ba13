package notifications

import (
	"context"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/rs/zerolog/log"
)

// Sink è la destinazione di persistenza delle notifiche
type Sink interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Notifier emette notifiche per gli utenti del marketplace. La consegna
// è best effort: un errore di persistenza viene loggato, mai propagato
// nel flusso dell'agente.
type Notifier struct {
	sink Sink
}

// New crea un nuovo Notifier
func New(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

// Notify registra una notifica per l'utente indicato
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, category models.NotificationCategory, title, message string, data map[string]any) {
	if n == nil || n.sink == nil || userID == uuid.Nil {
		return
	}

	notification := &models.Notification{
		UserID:   userID,
		Category: category,
		Title:    title,
		Message:  message,
		Data:     datatypes.JSONMap(data),
	}

	if err := n.sink.CreateNotification(ctx, notification); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID.String()).
			Str("category", string(category)).
			Msg("Failed to persist notification")
		return
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("category", string(category)).
		Str("title", title).
		Msg("Notification sent")
}
