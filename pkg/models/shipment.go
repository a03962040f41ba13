package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ShipmentStatus indica lo stato di una spedizione
type ShipmentStatus string

const (
	ShipmentStatusPreparing ShipmentStatus = "preparing"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusCustoms   ShipmentStatus = "customs"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusDelayed   ShipmentStatus = "delayed"
)

// Shipment rappresenta la spedizione di una transazione
type Shipment struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	TransactionID uuid.UUID `json:"transaction_id" gorm:"type:uuid;not null;index"`

	Carrier        string         `json:"carrier" gorm:"not null"`
	TrackingNumber string         `json:"tracking_number" gorm:"uniqueIndex;not null"`
	Status         ShipmentStatus `json:"status" gorm:"not null;default:'preparing';index"`

	Origin      datatypes.JSONMap `json:"origin"`
	Destination datatypes.JSONMap `json:"destination"`

	EstimatedDelivery *time.Time `json:"estimated_delivery"`
	ActualDelivery    *time.Time `json:"actual_delivery"`

	Transaction *Transaction `json:"transaction,omitempty" gorm:"foreignKey:TransactionID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate genera l'UUID se mancante
func (s *Shipment) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName specifica il nome della tabella
func (Shipment) TableName() string {
	return "shipments"
}
