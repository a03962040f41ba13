package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionStatus indica lo stato di una transazione
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
	TransactionStatusShipped   TransactionStatus = "shipped"
	TransactionStatusDelivered TransactionStatus = "delivered"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// PaymentStatus indica lo stato del pagamento
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Transaction rappresenta un ordine tra acquirente e venditore
type Transaction struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	BuyerID   uuid.UUID `json:"buyer_id" gorm:"type:uuid;not null;index"`
	SellerID  uuid.UUID `json:"seller_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`

	Quantity    float64 `json:"quantity" gorm:"not null"`
	UnitPrice   float64 `json:"unit_price" gorm:"not null"`
	TotalAmount float64 `json:"total_amount" gorm:"not null"`
	Currency    string  `json:"currency" gorm:"not null;default:'EUR'"`

	Status        TransactionStatus `json:"status" gorm:"not null;default:'pending';index"`
	PaymentStatus PaymentStatus     `json:"payment_status" gorm:"not null;default:'pending'"`
	PaymentMethod string            `json:"payment_method"`

	DeliveryAddress datatypes.JSONMap `json:"delivery_address"`
	DeliveryDate    *time.Time        `json:"delivery_date"`
	TrackingNumber  string            `json:"tracking_number"`
	Notes           string            `json:"notes"`

	Buyer   *User    `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Seller  *User    `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate genera l'UUID e calcola il totale se mancante
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.TotalAmount == 0 {
		t.TotalAmount = t.Quantity * t.UnitPrice
	}
	return nil
}

// TableName specifica il nome della tabella
func (Transaction) TableName() string {
	return "transactions"
}
