package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrInsufficientQuantity = errors.New("insufficient quantity available")
)

// Config contiene la configurazione del database
type Config struct {
	Type       string `yaml:"type"`       // "postgres" or "sqlite"
	Connection string `yaml:"connection"` // Connection string
	MaxConns   int    `yaml:"max_conns"`
	LogLevel   string `yaml:"log_level"`
}

// DB wrappa la connessione GORM
type DB struct {
	*gorm.DB
}

// New crea una nuova connessione al database
func New(cfg *Config) (*DB, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "postgres":
		dialector = postgres.Open(cfg.Connection)
	case "sqlite":
		dialector = sqlite.Open(cfg.Connection)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	logLevel := logger.Silent
	switch cfg.LogLevel {
	case "info":
		logLevel = logger.Info
	case "warn":
		logLevel = logger.Warn
	case "error":
		logLevel = logger.Error
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &DB{DB: db}, nil
}

// AutoMigrate esegue le migrazioni del database
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Transaction{},
		&models.Negotiation{},
		&models.Notification{},
		&models.Shipment{},
		&models.Certification{},
		&models.MarketData{},
	)
}

// Close chiude la connessione al database
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ProductFilter descrive i criteri di ricerca prodotti
type ProductFilter struct {
	Query       string
	Category    string
	OrganicOnly bool
	MaxPrice    float64
	ProducerID  uuid.UUID
	Limit       int
}

// GetProducts restituisce i prodotti attivi che soddisfano il filtro
func (db *DB) GetProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	q := db.WithContext(ctx).
		Preload("Producer").
		Where("status = ?", models.ProductStatusActive).
		Where("available_quantity > 0")

	if filter.Query != "" {
		like := "%" + filter.Query + "%"
		q = q.Where("name LIKE ? OR description LIKE ? OR category LIKE ?", like, like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.OrganicOnly {
		q = q.Where("organic_certified = ?", true)
	}
	if filter.MaxPrice > 0 {
		q = q.Where("price_per_unit <= ?", filter.MaxPrice)
	}
	if filter.ProducerID != uuid.Nil {
		q = q.Where("producer_id = ?", filter.ProducerID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var products []models.Product
	err := q.Order("created_at DESC").Limit(limit).Find(&products).Error
	return products, err
}

// GetProductByID restituisce un prodotto per ID
func (db *DB) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct crea un nuovo prodotto
func (db *DB) CreateProduct(ctx context.Context, product *models.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

// UpdateProduct applica aggiornamenti puntuali a un prodotto
func (db *DB) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ReserveQuantity decrementa la disponibilità di un prodotto in modo
// atomico: un singolo UPDATE condizionale, mai read-then-write. Se la
// quantità residua non basta restituisce ErrInsufficientQuantity e il
// prodotto resta invariato.
func (db *DB) ReserveQuantity(ctx context.Context, productID uuid.UUID, quantity float64) (*models.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: non-positive quantity %g", ErrInsufficientQuantity, quantity)
	}

	res := db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND available_quantity >= ?", productID, quantity).
		Update("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Distingue prodotto mancante da disponibilità insufficiente
		product, err := db.GetProductByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: only %g %s available", ErrInsufficientQuantity,
			product.AvailableQuantity, product.Unit)
	}

	return db.GetProductByID(ctx, productID)
}

// ReleaseQuantity restituisce disponibilità dopo un annullamento
func (db *DB) ReleaseQuantity(ctx context.Context, productID uuid.UUID, quantity float64) error {
	res := db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("available_quantity", gorm.Expr("available_quantity + ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateTransaction crea una nuova transazione
func (db *DB) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	return db.WithContext(ctx).Create(tx).Error
}

// GetTransactionByID restituisce una transazione per ID
func (db *DB) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := db.WithContext(ctx).Preload("Product").Where("id = ?", id).First(&tx).Error
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactionsForUser restituisce le transazioni in cui l'utente è
// acquirente o venditore
func (db *DB) GetTransactionsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var txs []models.Transaction
	err := db.WithContext(ctx).
		Preload("Product").
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

// UpdateTransaction applica aggiornamenti puntuali a una transazione
func (db *DB) UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateNegotiation crea una nuova trattativa
func (db *DB) CreateNegotiation(ctx context.Context, n *models.Negotiation) error {
	return db.WithContext(ctx).Create(n).Error
}

// GetNegotiationByID restituisce una trattativa per ID
func (db *DB) GetNegotiationByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	var n models.Negotiation
	err := db.WithContext(ctx).Preload("Product").Where("id = ?", id).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNegotiationsForUser restituisce le trattative attive dell'utente
func (db *DB) GetNegotiationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Negotiation, error) {
	var ns []models.Negotiation
	err := db.WithContext(ctx).
		Preload("Product").
		Where("(buyer_id = ? OR seller_id = ?) AND status = ?",
			userID, userID, models.NegotiationStatusActive).
		Order("created_at DESC").
		Find(&ns).Error
	return ns, err
}

// UpdateNegotiation applica aggiornamenti puntuali a una trattativa
func (db *DB) UpdateNegotiation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := db.WithContext(ctx).Model(&models.Negotiation{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateNotification crea una nuova notifica
func (db *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

// GetNotificationsForUser restituisce le notifiche non lette dell'utente
func (db *DB) GetNotificationsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var ns []models.Notification
	err := db.WithContext(ctx).
		Where("user_id = ? AND read = ?", userID, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&ns).Error
	return ns, err
}

// MarkNotificationRead marca una notifica come letta
func (db *DB) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	return db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true).Error
}

// CreateShipment crea una nuova spedizione
func (db *DB) CreateShipment(ctx context.Context, s *models.Shipment) error {
	return db.WithContext(ctx).Create(s).Error
}

// GetShipmentByTracking restituisce una spedizione per tracking number
func (db *DB) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	var s models.Shipment
	err := db.WithContext(ctx).
		Preload("Transaction").
		Where("tracking_number = ?", trackingNumber).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetShipmentsForUser restituisce le spedizioni legate alle transazioni
// dell'utente
func (db *DB) GetShipmentsForUser(ctx context.Context, userID uuid.UUID) ([]models.Shipment, error) {
	var ss []models.Shipment
	err := db.WithContext(ctx).
		Joins("JOIN transactions ON transactions.id = shipments.transaction_id").
		Where("transactions.buyer_id = ? OR transactions.seller_id = ?", userID, userID).
		Order("shipments.created_at DESC").
		Find(&ss).Error
	return ss, err
}

// UpdateShipment applica aggiornamenti puntuali a una spedizione
func (db *DB) UpdateShipment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := db.WithContext(ctx).Model(&models.Shipment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateCertification crea una nuova certificazione
func (db *DB) CreateCertification(ctx context.Context, c *models.Certification) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetCertificationByNumber restituisce una certificazione per numero
func (db *DB) GetCertificationByNumber(ctx context.Context, number string) (*models.Certification, error) {
	var c models.Certification
	err := db.WithContext(ctx).Where("certificate_number = ?", number).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCertificationsForHolder restituisce le certificazioni di un utente
func (db *DB) GetCertificationsForHolder(ctx context.Context, holderID uuid.UUID) ([]models.Certification, error) {
	var cs []models.Certification
	err := db.WithContext(ctx).
		Where("holder_id = ?", holderID).
		Order("expiry_date DESC").
		Find(&cs).Error
	return cs, err
}

// GetMarketData restituisce i campioni di mercato per categoria dal
// giorno indicato in poi
func (db *DB) GetMarketData(ctx context.Context, category string, since time.Time) ([]models.MarketData, error) {
	q := db.WithContext(ctx).Where("recorded_date >= ?", since)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var data []models.MarketData
	err := q.Order("recorded_date ASC").Find(&data).Error
	return data, err
}

// CreateMarketData registra un campione di mercato
func (db *DB) CreateMarketData(ctx context.Context, m *models.MarketData) error {
	return db.WithContext(ctx).Create(m).Error
}

// GetUserByID restituisce un utente per ID
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail restituisce un utente per email
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser crea un nuovo utente
func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	return db.WithContext(ctx).Create(user).Error
}
