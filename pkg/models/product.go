package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductStatus indica lo stato di un listino
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusSoldOut  ProductStatus = "sold_out"
	ProductStatusExpired  ProductStatus = "expired"
	ProductStatusArchived ProductStatus = "archived"
)

// Product rappresenta un prodotto agricolo in vendita
type Product struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ProducerID  uuid.UUID `json:"producer_id" gorm:"type:uuid;not null;index"`
	Name        string    `json:"name" gorm:"not null;index"`
	Category    string    `json:"category" gorm:"not null;index"`
	Description string    `json:"description"`

	Quantity          float64 `json:"quantity" gorm:"not null"`
	AvailableQuantity float64 `json:"available_quantity" gorm:"not null"`
	Unit              string  `json:"unit" gorm:"not null;default:'kg'"`
	PricePerUnit      float64 `json:"price_per_unit" gorm:"not null"`
	Currency          string  `json:"currency" gorm:"not null;default:'EUR'"`

	OrganicCertified bool              `json:"organic_certified" gorm:"default:false;index"`
	Location         datatypes.JSONMap `json:"location"`
	Images           datatypes.JSON    `json:"images"`

	AvailableFrom  *time.Time    `json:"available_from"`
	AvailableUntil *time.Time    `json:"available_until"`
	Status         ProductStatus `json:"status" gorm:"not null;default:'active';index"`

	Producer *User `json:"producer,omitempty" gorm:"foreignKey:ProducerID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate genera l'UUID e allinea la disponibilità iniziale
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.AvailableQuantity == 0 && p.Quantity > 0 {
		p.AvailableQuantity = p.Quantity
	}
	return nil
}

// InSeason verifica se il prodotto è disponibile alla data indicata
func (p *Product) InSeason(at time.Time) bool {
	if p.AvailableFrom != nil && at.Before(*p.AvailableFrom) {
		return false
	}
	if p.AvailableUntil != nil && at.After(*p.AvailableUntil) {
		return false
	}
	return true
}

// TableName specifica il nome della tabella
func (Product) TableName() string {
	return "products"
}
