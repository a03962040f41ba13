package database

import (
	"fmt"
	"time"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Seed popola il database con dati dimostrativi
func (db *DB) Seed() error {
	var count int64
	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return nil // Already seeded
	}

	users := seedUsers()
	for i := range users {
		if err := db.Create(&users[i]).Error; err != nil {
			return fmt.Errorf("failed to seed user %s: %w", users[i].Email, err)
		}
	}

	products := seedProducts(users[0].ID, users[1].ID)
	for i := range products {
		if err := db.Create(&products[i]).Error; err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
	}

	for _, m := range seedMarketData() {
		if err := db.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to seed market data: %w", err)
		}
	}

	certs := seedCertifications(users[0].ID)
	for i := range certs {
		if err := db.Create(&certs[i]).Error; err != nil {
			return fmt.Errorf("failed to seed certification %s: %w", certs[i].CertificateNumber, err)
		}
	}

	return nil
}

func seedUsers() []models.User {
	return []models.User{
		{
			ID:       uuid.New(),
			Email:    "marco@valdichiana-farm.it",
			Name:     "Marco Bianchi",
			Role:     models.RoleProducer,
			Company:  "Azienda Agricola Val di Chiana",
			Country:  "IT",
			Verified: true,
			Rating:   4.7,
			Profile: datatypes.JSONMap{
				"specialties": []string{"olive oil", "wine grapes"},
				"hectares":    42,
			},
		},
		{
			ID:       uuid.New(),
			Email:    "giulia@orti-sud.it",
			Name:     "Giulia Romano",
			Role:     models.RoleProducer,
			Company:  "Orti del Sud",
			Country:  "IT",
			Verified: true,
			Rating:   4.4,
			Profile: datatypes.JSONMap{
				"specialties": []string{"tomatoes", "citrus"},
			},
		},
		{
			ID:      uuid.New(),
			Email:   "buyer@mercatofresco.it",
			Name:    "Luca Ferri",
			Role:    models.RoleConsumer,
			Company: "Mercato Fresco SRL",
			Country: "IT",
			Rating:  4.1,
		},
		{
			ID:       uuid.New(),
			Email:    "export@nordfruit.de",
			Name:     "Anna Keller",
			Role:     models.RoleExporter,
			Company:  "NordFruit GmbH",
			Country:  "DE",
			Verified: true,
			Rating:   4.8,
		},
	}
}

func seedProducts(producerA, producerB uuid.UUID) []models.Product {
	from := time.Now().AddDate(0, -1, 0)
	until := time.Now().AddDate(0, 5, 0)

	return []models.Product{
		{
			ID:                uuid.New(),
			ProducerID:        producerA,
			Name:              "Extra virgin olive oil",
			Category:          "oil",
			Description:       "Cold pressed, single estate, harvest 2025",
			Quantity:          1200,
			AvailableQuantity: 1200,
			Unit:              "l",
			PricePerUnit:      12.50,
			OrganicCertified:  true,
			Location:          datatypes.JSONMap{"region": "Toscana", "country": "IT"},
			AvailableFrom:     &from,
			AvailableUntil:    &until,
		},
		{
			ID:                uuid.New(),
			ProducerID:        producerB,
			Name:              "San Marzano tomatoes",
			Category:          "vegetables",
			Description:       "PDO certified, field grown",
			Quantity:          8000,
			AvailableQuantity: 8000,
			Unit:              "kg",
			PricePerUnit:      2.80,
			OrganicCertified:  true,
			Location:          datatypes.JSONMap{"region": "Campania", "country": "IT"},
			AvailableFrom:     &from,
			AvailableUntil:    &until,
		},
		{
			ID:                uuid.New(),
			ProducerID:        producerB,
			Name:              "Sicilian blood oranges",
			Category:          "fruit",
			Description:       "Tarocco variety, washed and sorted",
			Quantity:          15000,
			AvailableQuantity: 15000,
			Unit:              "kg",
			PricePerUnit:      1.95,
			Location:          datatypes.JSONMap{"region": "Sicilia", "country": "IT"},
			AvailableFrom:     &from,
			AvailableUntil:    &until,
		},
	}
}

func seedMarketData() []models.MarketData {
	var data []models.MarketData
	categories := map[string]float64{
		"oil":        12.10,
		"vegetables": 2.60,
		"fruit":      2.05,
	}

	for category, base := range categories {
		for week := 0; week < 12; week++ {
			// Leggera deriva stagionale sui dati dimostrativi
			price := base * (1 + 0.01*float64(week%5) - 0.015*float64(week%3))
			data = append(data, models.MarketData{
				ID:           uuid.New(),
				Category:     category,
				Region:       "IT",
				AveragePrice: price,
				MinPrice:     price * 0.85,
				MaxPrice:     price * 1.20,
				VolumeTraded: 5000 + float64(week)*120,
				RecordedDate: time.Now().AddDate(0, 0, -7*(12-week)),
			})
		}
	}

	return data
}

func seedCertifications(holderID uuid.UUID) []models.Certification {
	return []models.Certification{
		{
			ID:                 uuid.New(),
			HolderID:           holderID,
			Type:               "organic",
			CertifyingBody:     "ICEA",
			CertificateNumber:  "IT-BIO-006-2025-0441",
			IssueDate:          time.Now().AddDate(-1, 0, 0),
			ExpiryDate:         time.Now().AddDate(1, 0, 0),
			VerificationStatus: models.VerificationStatusVerified,
		},
		{
			ID:                 uuid.New(),
			HolderID:           holderID,
			Type:               "haccp",
			CertifyingBody:     "Bureau Veritas",
			CertificateNumber:  "HACCP-IT-2024-1187",
			IssueDate:          time.Now().AddDate(0, -8, 0),
			ExpiryDate:         time.Now().AddDate(2, 0, 0),
			VerificationStatus: models.VerificationStatusVerified,
		},
	}
}
