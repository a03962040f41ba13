package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

func newTestService(t *testing.T, rt *Runtime) *Service {
	t.Helper()
	s, err := NewService(rt, SupervisorConfig{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return s
}

func TestServiceAgentTypes(t *testing.T) {
	rt, _, _ := newTestRuntime()
	s := newTestService(t, rt)

	want := []string{"consumer", "exporter", "logistics", "market_analyst", "producer", "quality_assurance"}
	got := s.AgentTypes()
	if len(got) != len(want) {
		t.Fatalf("AgentTypes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AgentTypes() = %v, want %v", got, want)
		}
	}
}

func TestServiceDirectDispatchResolvesAliases(t *testing.T) {
	rt, _, provider := newTestRuntime()
	provider.defaultReply = "{}"
	s := newTestService(t, rt)

	tests := []struct {
		alias string
		want  string
	}{
		{"market_analyst", "market_analyst"},
		{"Market-Analyst", "market_analyst"},
		{"analyst", "market_analyst"},
		{"qa", "quality_assurance"},
		{"Quality Assurance", "quality_assurance"},
		{"producer", "producer"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			out, err := s.ProcessDirectAgentMessage(context.Background(), tt.alias, &Request{Message: "hello"})
			if err != nil {
				t.Fatalf("ProcessDirectAgentMessage(%q) error = %v", tt.alias, err)
			}
			if out.Agent != tt.want {
				t.Errorf("Agent = %q, want %q", out.Agent, tt.want)
			}
		})
	}
}

func TestServiceDirectDispatchUnknownAgent(t *testing.T) {
	rt, _, _ := newTestRuntime()
	s := newTestService(t, rt)

	_, err := s.ProcessDirectAgentMessage(context.Background(), "astrologer", &Request{Message: "hello"})
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("error = %v, want ErrAgentNotFound", err)
	}
}

func TestServiceCapabilities(t *testing.T) {
	rt, _, _ := newTestRuntime()
	s := newTestService(t, rt)

	actions, err := s.Capabilities("qa")
	if err != nil {
		t.Fatalf("Capabilities() error = %v", err)
	}
	found := false
	for _, a := range actions {
		if a == "verify_certification" {
			found = true
		}
	}
	if !found {
		t.Errorf("Capabilities(qa) = %v, want verify_certification included", actions)
	}

	if _, err := s.Capabilities("astrologer"); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("error = %v, want ErrAgentNotFound", err)
	}
}

func TestServiceHealthCheck(t *testing.T) {
	rt, _, provider := newTestRuntime()
	provider.defaultReply = "{}"
	s := newTestService(t, rt)

	results := s.HealthCheck(context.Background())
	if len(results) != 6 {
		t.Fatalf("results = %d agents, want 6", len(results))
	}
	for name, healthy := range results {
		if !healthy {
			t.Errorf("agent %s reported unhealthy", name)
		}
	}
}

func TestServiceHealthCheckReportsFailures(t *testing.T) {
	rt, _, provider := newTestRuntime()
	provider.err = errors.New("provider down")
	s := newTestService(t, rt)

	results := s.HealthCheck(context.Background())
	for name, healthy := range results {
		// Gli agenti con azione di default senza estrazione restano
		// sani anche a provider spento
		a := s.agents[name]
		spec, _ := a.Catalog().Spec(a.Catalog().Default)
		if spec.Schema == "" && !healthy {
			t.Errorf("agent %s should degrade gracefully without providers", name)
		}
	}
}

func TestServiceReviewLifecycle(t *testing.T) {
	rt, store, _ := newTestRuntime(
		"create_transaction",
		"place_order",
		`{"product_query": "saffron", "quantity": 5, "delivery_address": {"city": "Berlin"}}`,
	)
	store.addProduct(models.Product{
		Name: "Saffron", Category: "spices", Quantity: 10, PricePerUnit: 3000, ProducerID: uuid.New(),
	})
	s := newTestService(t, rt)

	out := s.ProcessMessage(context.Background(), consumerRequest("five units of saffron to Berlin"))
	if !out.PendingReview {
		t.Fatalf("PendingReview = false, content: %s", out.Content)
	}

	resolved, err := s.ResolveReview(out.ReviewID, true, "checked with the buyer")
	if err != nil {
		t.Fatalf("ResolveReview() error = %v", err)
	}
	if resolved.Status != ReviewStatusApproved {
		t.Errorf("Status = %s, want approved", resolved.Status)
	}
	if resolved.Note != "checked with the buyer" {
		t.Errorf("Note = %q", resolved.Note)
	}

	if len(s.PendingReviews()) != 0 {
		t.Error("PendingReviews() not empty after resolution")
	}

	// Una pratica chiusa non si riapre
	if _, err := s.ResolveReview(out.ReviewID, false, ""); err == nil {
		t.Error("resolving twice should fail")
	}
}

func TestServiceResolveUnknownReview(t *testing.T) {
	rt, _, _ := newTestRuntime()
	s := newTestService(t, rt)

	if _, err := s.ResolveReview(uuid.NewString(), true, ""); !errors.Is(err, ErrReviewNotFound) {
		t.Fatalf("error = %v, want ErrReviewNotFound", err)
	}
}
