package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// VerificationStatus indica lo stato di verifica di una certificazione
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusVerified VerificationStatus = "verified"
	VerificationStatusRejected VerificationStatus = "rejected"
	VerificationStatusExpired  VerificationStatus = "expired"
)

// Certification rappresenta una certificazione di qualità
type Certification struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	HolderID  uuid.UUID  `json:"holder_id" gorm:"type:uuid;not null;index"`
	ProductID *uuid.UUID `json:"product_id" gorm:"type:uuid;index"`

	Type              string `json:"type" gorm:"not null;index"` // organic, gmp, haccp, fairtrade
	CertifyingBody    string `json:"certifying_body" gorm:"not null"`
	CertificateNumber string `json:"certificate_number" gorm:"uniqueIndex;not null"`

	IssueDate  time.Time `json:"issue_date" gorm:"not null"`
	ExpiryDate time.Time `json:"expiry_date" gorm:"not null"`

	VerificationStatus VerificationStatus `json:"verification_status" gorm:"not null;default:'pending';index"`
	Documents          datatypes.JSON     `json:"documents"`

	Holder *User `json:"holder,omitempty" gorm:"foreignKey:HolderID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate genera l'UUID se mancante
func (c *Certification) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Expired verifica se la certificazione è scaduta alla data indicata
func (c *Certification) Expired(at time.Time) bool {
	return at.After(c.ExpiryDate)
}

// TableName specifica il nome della tabella
func (Certification) TableName() string {
	return "certifications"
}
