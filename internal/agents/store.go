package agents

import (
	"context"
	"time"

	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

// Store è il collaboratore di accesso dati dei gestori di azione.
// *database.DB lo implementa; i test usano un fake in memoria.
type Store interface {
	GetProducts(ctx context.Context, filter database.ProductFilter) ([]models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error

	// ReserveQuantity decrementa la disponibilità in modo atomico;
	// restituisce database.ErrInsufficientQuantity quando non basta
	ReserveQuantity(ctx context.Context, productID uuid.UUID, quantity float64) (*models.Product, error)
	ReleaseQuantity(ctx context.Context, productID uuid.UUID, quantity float64) error

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetTransactionsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CreateNegotiation(ctx context.Context, n *models.Negotiation) error
	GetNegotiationByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error)
	GetNegotiationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Negotiation, error)
	UpdateNegotiation(ctx context.Context, id uuid.UUID, updates map[string]any) error

	CreateShipment(ctx context.Context, s *models.Shipment) error
	GetShipmentByTracking(ctx context.Context, trackingNumber string) (*models.Shipment, error)
	GetShipmentsForUser(ctx context.Context, userID uuid.UUID) ([]models.Shipment, error)
	UpdateShipment(ctx context.Context, id uuid.UUID, updates map[string]any) error

	GetCertificationByNumber(ctx context.Context, number string) (*models.Certification, error)
	GetCertificationsForHolder(ctx context.Context, holderID uuid.UUID) ([]models.Certification, error)

	GetMarketData(ctx context.Context, category string, since time.Time) ([]models.MarketData, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
}
