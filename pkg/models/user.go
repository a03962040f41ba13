package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Role identifica il ruolo marketplace di un utente
type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
	RoleExporter Role = "exporter"
)

// Valid verifica che il ruolo sia tra quelli conosciuti
func (r Role) Valid() bool {
	switch r {
	case RoleProducer, RoleConsumer, RoleExporter:
		return true
	}
	return false
}

// User rappresenta un utente del marketplace
type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Email    string    `json:"email" gorm:"uniqueIndex;not null"`
	Name     string    `json:"name" gorm:"not null"`
	Role     Role      `json:"role" gorm:"not null;index"`
	Company  string    `json:"company"`
	Country  string    `json:"country"`
	Verified bool      `json:"verified" gorm:"default:false"`
	Rating   float64   `json:"rating" gorm:"default:0"`

	// Profile contiene attributi liberi (certificazioni, lingue, preferenze)
	Profile datatypes.JSONMap `json:"profile"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate genera l'UUID se mancante
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TableName specifica il nome della tabella
func (User) TableName() string {
	return "users"
}
