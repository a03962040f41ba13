package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	name      string
	reply     string
	err       error
	healthErr error
	delay     time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Invoke(ctx context.Context, messages []Message) (*Completion, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{Content: f.reply, Provider: f.name}, nil
}

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return f.healthErr }

func newTestRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()
	r := NewRegistry(time.Second)
	for _, name := range names {
		if err := r.Register(&fakeProvider{name: name, reply: "ok"}); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
	}
	return r
}

func TestSelectOptimalPreferences(t *testing.T) {
	tests := []struct {
		name       string
		registered []string
		task       TaskType
		want       string
	}{
		{name: "analysis prefers anthropic", registered: []string{"openai", "anthropic", "google"}, task: TaskAnalysis, want: "anthropic"},
		{name: "analysis falls back to openai", registered: []string{"openai", "google"}, task: TaskAnalysis, want: "openai"},
		{name: "classification prefers google", registered: []string{"openai", "anthropic", "google"}, task: TaskClassification, want: "google"},
		{name: "generation prefers openai", registered: []string{"openai", "anthropic", "google"}, task: TaskGeneration, want: "openai"},
		{name: "generation falls back to google", registered: []string{"anthropic", "google"}, task: TaskGeneration, want: "google"},
		{name: "reasoning falls back to anthropic", registered: []string{"anthropic", "google"}, task: TaskReasoning, want: "anthropic"},
		{name: "any provider when no preference matches", registered: []string{"google"}, task: TaskConversation, want: "google"},
		{name: "unknown task uses conversation preferences", registered: []string{"openai", "anthropic"}, task: TaskType("juggling"), want: "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegistry(t, tt.registered...)

			p, err := r.SelectOptimal(tt.task)
			if err != nil {
				t.Fatalf("SelectOptimal(%s) error = %v", tt.task, err)
			}
			if p.Name() != tt.want {
				t.Errorf("SelectOptimal(%s) = %s, want %s", tt.task, p.Name(), tt.want)
			}
		})
	}
}

func TestSelectOptimalStableFallbackOrder(t *testing.T) {
	// Nessuna preferenza soddisfatta: la scelta deve essere deterministica
	r := newTestRegistry(t, "zeta", "alpha", "mike")

	for i := 0; i < 10; i++ {
		p, err := r.SelectOptimal(TaskAnalysis)
		if err != nil {
			t.Fatalf("SelectOptimal() error = %v", err)
		}
		if p.Name() != "alpha" {
			t.Fatalf("SelectOptimal() = %s, want alpha (stable order)", p.Name())
		}
	}
}

func TestSelectOptimalNoProviders(t *testing.T) {
	r := NewRegistry(time.Second)

	_, err := r.SelectOptimal(TaskAnalysis)
	if !errors.Is(err, ErrNoProvidersAvailable) {
		t.Errorf("SelectOptimal() error = %v, want ErrNoProvidersAvailable", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry(t, "openai")

	err := r.Register(&fakeProvider{name: "openai"})
	if !errors.Is(err, ErrProviderAlreadyExists) {
		t.Errorf("Register() error = %v, want ErrProviderAlreadyExists", err)
	}
}

func TestInvokeRecordsProvenance(t *testing.T) {
	r := NewRegistry(time.Second)
	if err := r.Register(&fakeProvider{name: "anthropic", reply: "analysis done"}); err != nil {
		t.Fatal(err)
	}

	completion, err := r.Invoke(context.Background(), TaskAnalysis, []Message{UserMessage("hi")})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if completion.Provider != "anthropic" {
		t.Errorf("completion.Provider = %s, want anthropic", completion.Provider)
	}
	if r.CurrentProvider() != "anthropic" {
		t.Errorf("CurrentProvider() = %s, want anthropic", r.CurrentProvider())
	}

	meta, err := r.GetMetadata("anthropic")
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if meta.SuccessCount != 1 {
		t.Errorf("SuccessCount = %d, want 1", meta.SuccessCount)
	}
}

func TestInvokeWrapsProviderError(t *testing.T) {
	r := NewRegistry(time.Second)
	if err := r.Register(&fakeProvider{name: "openai", err: errors.New("upstream down")}); err != nil {
		t.Fatal(err)
	}

	_, err := r.Invoke(context.Background(), TaskGeneration, []Message{UserMessage("hi")})
	if !errors.Is(err, ErrInvocationFailed) {
		t.Errorf("Invoke() error = %v, want ErrInvocationFailed", err)
	}

	meta, _ := r.GetMetadata("openai")
	if meta.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", meta.ErrorCount)
	}
}

func TestInvokeTimeout(t *testing.T) {
	r := NewRegistry(20 * time.Millisecond)
	if err := r.Register(&fakeProvider{name: "openai", reply: "late", delay: time.Second}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err := r.Invoke(context.Background(), TaskGeneration, []Message{UserMessage("hi")})
	if !errors.Is(err, ErrInvocationFailed) {
		t.Fatalf("Invoke() error = %v, want ErrInvocationFailed", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Invoke() took %v, timeout not applied", elapsed)
	}
}

func TestHealthCheck(t *testing.T) {
	r := NewRegistry(time.Second)
	if err := r.Register(&fakeProvider{name: "openai"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&fakeProvider{name: "google", healthErr: errors.New("quota exceeded")}); err != nil {
		t.Fatal(err)
	}

	results := r.HealthCheck(context.Background())
	if len(results) != 2 {
		t.Fatalf("HealthCheck() returned %d results, want 2", len(results))
	}
	if results["openai"] != nil {
		t.Errorf("openai health = %v, want nil", results["openai"])
	}
	if results["google"] == nil {
		t.Error("google health = nil, want error")
	}

	meta, _ := r.GetMetadata("google")
	if meta.Healthy {
		t.Error("google still marked healthy after failed check")
	}
}
