package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NegotiationStatus indica lo stato di una trattativa
type NegotiationStatus string

const (
	NegotiationStatusActive   NegotiationStatus = "active"
	NegotiationStatusAccepted NegotiationStatus = "accepted"
	NegotiationStatusRejected NegotiationStatus = "rejected"
	NegotiationStatusExpired  NegotiationStatus = "expired"
)

// Negotiation rappresenta una trattativa sul prezzo di un prodotto
type Negotiation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	BuyerID   uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID  uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`

	InitialPrice       float64 `json:"initial_price" gorm:"not null"`
	CurrentOffer       float64 `json:"current_offer" gorm:"not null"`
	MinAcceptablePrice float64 `json:"min_acceptable_price"`
	Quantity           float64 `json:"quantity" gorm:"not null"`

	Status      NegotiationStatus `json:"status" gorm:"not null;default:'active';index"`
	LastOfferBy uuid.UUID         `json:"last_offer_by" gorm:"type:uuid"`

	// Messages è lo storico delle offerte: [{from, offer, note, at}]
	Messages datatypes.JSON `json:"messages"`

	ExpiresAt *time.Time `json:"expires_at"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Buyer   *User    `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller  *User    `json:"seller,omitempty" gorm:"foreignKey:SellerID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate genera l'UUID se mancante
func (n *Negotiation) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// Expired verifica se la trattativa è scaduta alla data indicata
func (n *Negotiation) Expired(at time.Time) bool {
	return n.ExpiresAt != nil && at.After(*n.ExpiresAt)
}

// TableName specifica il nome della tabella
func (Negotiation) TableName() string {
	return "negotiations"
}
