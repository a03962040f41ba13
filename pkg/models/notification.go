package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationCategory classifica le notifiche
type NotificationCategory string

const (
	NotificationOrder       NotificationCategory = "order"
	NotificationNegotiation NotificationCategory = "negotiation"
	NotificationReview      NotificationCategory = "review"
	NotificationQuality     NotificationCategory = "quality"
	NotificationShipment    NotificationCategory = "shipment"
)

// Notification rappresenta una notifica per un utente
type Notification struct {
	ID       uuid.UUID            `json:"id" gorm:"type:uuid;primary_key"`
	UserID   uuid.UUID            `json:"user_id" gorm:"type:uuid;not null;index"`
	Category NotificationCategory `json:"category" gorm:"not null;index"`
	Title    string               `json:"title" gorm:"not null"`
	Message  string               `json:"message" gorm:"not null"`
	Data     datatypes.JSONMap    `json:"data"`
	Read     bool                 `json:"read" gorm:"default:false;index"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate genera l'UUID se mancante
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// TableName specifica il nome della tabella
func (Notification) TableName() string {
	return "notifications"
}
