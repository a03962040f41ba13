package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MarketData rappresenta un campione storico di prezzi per categoria
type MarketData struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Category string    `json:"category" gorm:"not null;index"`
	Region   string    `json:"region" gorm:"index"`

	AveragePrice float64 `json:"average_price" gorm:"not null"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	VolumeTraded float64 `json:"volume_traded"`
	Currency     string  `json:"currency" gorm:"not null;default:'EUR'"`

	RecordedDate time.Time `json:"recorded_date" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate genera l'UUID se mancante
func (m *MarketData) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName specifica il nome della tabella
func (MarketData) TableName() string {
	return "market_data"
}
