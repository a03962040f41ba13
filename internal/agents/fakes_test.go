package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/biodoia/agriconnect/internal/notifications"
	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

var errScriptExhausted = errors.New("scripted provider has no replies left")

// scriptedProvider restituisce le risposte preparate in ordine; una
// volta esaurite torna errore, cosicché i percorsi di ripiego euristici
// diventino deterministici nei test.
type scriptedProvider struct {
	name    string
	mu      sync.Mutex
	replies []string

	// defaultReply viene usata quando le risposte preparate finiscono
	defaultReply string
	err          error
}

func (p *scriptedProvider) Invoke(ctx context.Context, messages []providers.Message) (*providers.Completion, error) {
	if p.err != nil {
		return nil, p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.replies) == 0 {
		if p.defaultReply != "" {
			return &providers.Completion{Content: p.defaultReply, Model: "scripted"}, nil
		}
		return nil, errScriptExhausted
	}
	head := p.replies[0]
	p.replies = p.replies[1:]
	return &providers.Completion{Content: head, Model: "scripted"}, nil
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) HealthCheck(ctx context.Context) error { return nil }

// fakeStore è un'implementazione in memoria di Store per i test
type fakeStore struct {
	mu             sync.Mutex
	products       map[uuid.UUID]*models.Product
	transactions   map[uuid.UUID]*models.Transaction
	negotiations   map[uuid.UUID]*models.Negotiation
	shipments      map[uuid.UUID]*models.Shipment
	certifications map[string]*models.Certification
	marketData     []models.MarketData
	notifications  []models.Notification

	failCreateTransaction bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:       make(map[uuid.UUID]*models.Product),
		transactions:   make(map[uuid.UUID]*models.Transaction),
		negotiations:   make(map[uuid.UUID]*models.Negotiation),
		shipments:      make(map[uuid.UUID]*models.Shipment),
		certifications: make(map[string]*models.Certification),
	}
}

func (s *fakeStore) addProduct(p models.Product) *models.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.AvailableQuantity == 0 {
		p.AvailableQuantity = p.Quantity
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	if p.Unit == "" {
		p.Unit = "kg"
	}
	if p.Status == "" {
		p.Status = models.ProductStatusActive
	}
	s.mu.Lock()
	s.products[p.ID] = &p
	s.mu.Unlock()
	return &p
}

func (s *fakeStore) GetProducts(ctx context.Context, filter database.ProductFilter) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Product
	for _, p := range s.products {
		if p.Status != models.ProductStatusActive || p.AvailableQuantity <= 0 {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.OrganicOnly && !p.OrganicCertified {
			continue
		}
		if filter.MaxPrice > 0 && p.PricePerUnit > filter.MaxPrice {
			continue
		}
		if filter.ProducerID != uuid.Nil && p.ProducerID != filter.ProducerID {
			continue
		}
		out = append(out, *p)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s not found", id)
	}
	copied := *p
	return &copied, nil
}

func (s *fakeStore) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.AvailableQuantity == 0 {
		product.AvailableQuantity = product.Quantity
	}
	s.mu.Lock()
	copied := *product
	s.products[product.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s not found", id)
	}
	for key, value := range updates {
		switch key {
		case "available_quantity":
			p.AvailableQuantity = value.(float64)
		case "price_per_unit":
			p.PricePerUnit = value.(float64)
		case "status":
			p.Status = value.(models.ProductStatus)
		}
	}
	return nil
}

func (s *fakeStore) ReserveQuantity(ctx context.Context, productID uuid.UUID, quantity float64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, fmt.Errorf("product %s not found", productID)
	}
	if p.AvailableQuantity < quantity {
		return nil, fmt.Errorf("%w: only %g %s available", database.ErrInsufficientQuantity,
			p.AvailableQuantity, p.Unit)
	}
	p.AvailableQuantity -= quantity
	copied := *p
	return &copied, nil
}

func (s *fakeStore) ReleaseQuantity(ctx context.Context, productID uuid.UUID, quantity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return fmt.Errorf("product %s not found", productID)
	}
	p.AvailableQuantity += quantity
	return nil
}

func (s *fakeStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if s.failCreateTransaction {
		return errors.New("transaction store unavailable")
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.TotalAmount == 0 {
		tx.TotalAmount = tx.Quantity * tx.UnitPrice
	}
	s.mu.Lock()
	copied := *tx
	s.transactions[tx.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	copied := *tx
	return &copied, nil
}

func (s *fakeStore) GetTransactionsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.BuyerID == userID || tx.SellerID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s not found", id)
	}
	for key, value := range updates {
		switch key {
		case "status":
			tx.Status = value.(models.TransactionStatus)
		case "tracking_number":
			tx.TrackingNumber = value.(string)
		}
	}
	return nil
}

func (s *fakeStore) CreateNegotiation(ctx context.Context, n *models.Negotiation) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	s.mu.Lock()
	copied := *n
	s.negotiations[n.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) GetNegotiationByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.negotiations[id]
	if !ok {
		return nil, fmt.Errorf("negotiation %s not found", id)
	}
	copied := *n
	return &copied, nil
}

func (s *fakeStore) GetNegotiationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Negotiation
	for _, n := range s.negotiations {
		if n.BuyerID == userID || n.SellerID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateNegotiation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.negotiations[id]
	if !ok {
		return fmt.Errorf("negotiation %s not found", id)
	}
	for key, value := range updates {
		switch key {
		case "status":
			n.Status = value.(models.NegotiationStatus)
		case "current_offer":
			n.CurrentOffer = value.(float64)
		case "last_offer_by":
			n.LastOfferBy = value.(uuid.UUID)
		}
	}
	return nil
}

func (s *fakeStore) CreateShipment(ctx context.Context, sh *models.Shipment) error {
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}
	s.mu.Lock()
	copied := *sh
	s.shipments[sh.ID] = &copied
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sh := range s.shipments {
		if sh.TrackingNumber == trackingNumber {
			copied := *sh
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("shipment %s not found", trackingNumber)
}

func (s *fakeStore) GetShipmentsForUser(ctx context.Context, userID uuid.UUID) ([]models.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Shipment
	for _, sh := range s.shipments {
		tx, ok := s.transactions[sh.TransactionID]
		if ok && (tx.BuyerID == userID || tx.SellerID == userID) {
			out = append(out, *sh)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateShipment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh, ok := s.shipments[id]
	if !ok {
		return fmt.Errorf("shipment %s not found", id)
	}
	if status, ok := updates["status"].(models.ShipmentStatus); ok {
		sh.Status = status
	}
	return nil
}

func (s *fakeStore) GetCertificationByNumber(ctx context.Context, number string) (*models.Certification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.certifications[number]
	if !ok {
		return nil, fmt.Errorf("certification %s not found", number)
	}
	copied := *c
	return &copied, nil
}

func (s *fakeStore) GetCertificationsForHolder(ctx context.Context, holderID uuid.UUID) ([]models.Certification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Certification
	for _, c := range s.certifications {
		if c.HolderID == holderID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) GetMarketData(ctx context.Context, category string, since time.Time) ([]models.MarketData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.MarketData
	for _, d := range s.marketData {
		if d.Category == category && !d.RecordedDate.Before(since) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	s.notifications = append(s.notifications, *n)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) notificationsFor(userID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// newTestRuntime assembla un Runtime con provider scriptato e store in
// memoria
func newTestRuntime(replies ...string) (*Runtime, *fakeStore, *scriptedProvider) {
	provider := &scriptedProvider{name: "scripted", replies: replies}
	registry := providers.NewRegistry(5 * time.Second)
	if err := registry.Register(provider); err != nil {
		panic(err)
	}

	store := newFakeStore()
	return &Runtime{
		Registry: registry,
		Store:    store,
		Notifier: notifications.New(store),
	}, store, provider
}
