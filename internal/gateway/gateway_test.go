package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/biodoia/agriconnect/internal/agents"
	"github.com/biodoia/agriconnect/internal/notifications"
	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/pkg/config"
	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// staticProvider risponde sempre con lo stesso contenuto
type staticProvider struct {
	reply string
	err   error
}

func (p *staticProvider) Invoke(ctx context.Context, messages []providers.Message) (*providers.Completion, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &providers.Completion{Content: p.reply, Model: "static"}, nil
}

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) HealthCheck(ctx context.Context) error { return nil }

// stubStore è uno Store vuoto per i test HTTP
type stubStore struct{}

func (stubStore) GetProducts(ctx context.Context, filter database.ProductFilter) ([]models.Product, error) {
	return nil, nil
}

func (stubStore) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return nil, fmt.Errorf("product %s not found", id)
}

func (stubStore) CreateProduct(ctx context.Context, product *models.Product) error { return nil }

func (stubStore) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (stubStore) ReserveQuantity(ctx context.Context, productID uuid.UUID, quantity float64) (*models.Product, error) {
	return nil, database.ErrInsufficientQuantity
}

func (stubStore) ReleaseQuantity(ctx context.Context, productID uuid.UUID, quantity float64) error {
	return nil
}

func (stubStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error { return nil }

func (stubStore) GetTransactionByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return nil, errors.New("not found")
}

func (stubStore) GetTransactionsForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	return nil, nil
}

func (stubStore) UpdateTransaction(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (stubStore) CreateNegotiation(ctx context.Context, n *models.Negotiation) error { return nil }

func (stubStore) GetNegotiationByID(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	return nil, errors.New("not found")
}

func (stubStore) GetNegotiationsForUser(ctx context.Context, userID uuid.UUID) ([]models.Negotiation, error) {
	return nil, nil
}

func (stubStore) UpdateNegotiation(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (stubStore) CreateShipment(ctx context.Context, s *models.Shipment) error { return nil }

func (stubStore) GetShipmentByTracking(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	return nil, errors.New("not found")
}

func (stubStore) GetShipmentsForUser(ctx context.Context, userID uuid.UUID) ([]models.Shipment, error) {
	return nil, nil
}

func (stubStore) UpdateShipment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (stubStore) GetCertificationByNumber(ctx context.Context, number string) (*models.Certification, error) {
	return nil, errors.New("not found")
}

func (stubStore) GetCertificationsForHolder(ctx context.Context, holderID uuid.UUID) ([]models.Certification, error) {
	return nil, nil
}

func (stubStore) GetMarketData(ctx context.Context, category string, since time.Time) ([]models.MarketData, error) {
	return nil, nil
}

func (stubStore) CreateNotification(ctx context.Context, n *models.Notification) error { return nil }

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()

	registry := providers.NewRegistry(5 * time.Second)
	if err := registry.Register(&staticProvider{reply: "{}"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	store := stubStore{}
	rt := &agents.Runtime{
		Registry: registry,
		Store:    store,
		Notifier: notifications.New(store),
	}
	service, err := agents.NewService(rt, agents.SupervisorConfig{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	gw, err := New(cfg, nil, service)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return gw
}

func TestHealthEndpoint(t *testing.T) {
	gw := newTestGateway(t)

	resp, err := gw.app.Test(httptest.NewRequest("GET", "/health", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMessageRequiresBody(t *testing.T) {
	gw := newTestGateway(t)

	body := bytes.NewBufferString(`{"message": ""}`)
	req := httptest.NewRequest("POST", "/api/v1/agents/message", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := gw.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDirectMessageUnknownAgent(t *testing.T) {
	gw := newTestGateway(t)

	body := bytes.NewBufferString(`{"message": "hello"}`)
	req := httptest.NewRequest("POST", "/api/v1/agents/astrologer/message", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := gw.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestDirectMessageReturnsOutcome(t *testing.T) {
	gw := newTestGateway(t)

	body := bytes.NewBufferString(`{"message": "hello", "session_id": "s-1"}`)
	req := httptest.NewRequest("POST", "/api/v1/agents/consumer/message", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := gw.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out agents.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if out.Agent != "consumer" {
		t.Errorf("Agent = %q, want consumer", out.Agent)
	}
	if out.SessionID != "s-1" {
		t.Errorf("SessionID = %q, want s-1", out.SessionID)
	}
}

func TestDirectMessageSessionFromHeader(t *testing.T) {
	gw := newTestGateway(t)

	body := bytes.NewBufferString(`{"message": "hello"}`)
	req := httptest.NewRequest("POST", "/api/v1/agents/consumer/message", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", "hdr-9")

	resp, err := gw.app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out agents.Outcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if out.SessionID != "hdr-9" {
		t.Errorf("SessionID = %q, want hdr-9", out.SessionID)
	}
}

func TestListAgents(t *testing.T) {
	gw := newTestGateway(t)

	resp, err := gw.app.Test(httptest.NewRequest("GET", "/api/v1/agents/", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var payload struct {
		Agents []string `json:"agents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(payload.Agents) != 6 {
		t.Errorf("agents = %v, want 6 entries", payload.Agents)
	}
}

func TestCapabilitiesUnknownAgent(t *testing.T) {
	gw := newTestGateway(t)

	resp, err := gw.app.Test(httptest.NewRequest("GET", "/api/v1/agents/capabilities/astrologer", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestResolveReviewNotFound(t *testing.T) {
	gw := newTestGateway(t)

	body := bytes.NewBufferString(`{"approved": true}`)
	req := httptest.NewRequest("POST", "/api/v1/reviews/"+uuid.NewString()+"/resolve", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := gw.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
