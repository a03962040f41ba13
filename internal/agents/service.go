package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// agentAliases mappa le grafie alternative sul nome canonico
var agentAliases = map[string]string{
	"marketanalyst":    "market_analyst",
	"analyst":          "market_analyst",
	"qualityassurance": "quality_assurance",
	"quality":          "quality_assurance",
	"qa":               "quality_assurance",
}

// Service è la facciata del runtime multi-agente: costruisce gli
// agenti specializzati, il supervisore e la coda di revisione
type Service struct {
	agents     map[string]*Agent
	supervisor *Supervisor
	rt         *Runtime
}

// NewService costruisce il runtime completo con i sei agenti
// specializzati del marketplace
func NewService(rt *Runtime, cfg SupervisorConfig) (*Service, error) {
	if rt == nil {
		return nil, fmt.Errorf("runtime is required")
	}

	configs := []Config{
		ProducerConfig(),
		ConsumerConfig(),
		ExporterConfig(),
		AnalystConfig(),
		LogisticsConfig(),
		QualityConfig(),
	}

	agents := make(map[string]*Agent, len(configs))
	for _, c := range configs {
		a, err := New(c, rt)
		if err != nil {
			return nil, fmt.Errorf("building agent %s: %w", c.Name, err)
		}
		agents[c.Name] = a
	}

	sup, err := NewSupervisor(cfg, agents, NewReviewQueue(), rt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("agents", len(agents)).
		Msg("Agent service initialized")

	return &Service{agents: agents, supervisor: sup, rt: rt}, nil
}

// ProcessMessage instrada un messaggio attraverso il supervisore
func (s *Service) ProcessMessage(ctx context.Context, req *Request) Outcome {
	return s.supervisor.Process(ctx, req)
}

// ProcessDirectAgentMessage invia un messaggio direttamente a un agente
// specifico, senza passare dal supervisore
func (s *Service) ProcessDirectAgentMessage(ctx context.Context, agentType string, req *Request) (Outcome, error) {
	a, err := s.agent(agentType)
	if err != nil {
		return Outcome{}, err
	}
	return a.Execute(ctx, req), nil
}

// Capabilities restituisce le azioni di un agente
func (s *Service) Capabilities(agentType string) ([]string, error) {
	a, err := s.agent(agentType)
	if err != nil {
		return nil, err
	}
	return a.Catalog().Names(), nil
}

// AgentTypes restituisce i nomi canonici degli agenti disponibili
func (s *Service) AgentTypes() []string {
	names := make([]string, 0, len(s.agents))
	for name := range s.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheck sonda ogni agente in parallelo con un messaggio di
// prova. Il fallimento di un agente non maschera gli altri.
func (s *Service) HealthCheck(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(s.agents))

	var wg sync.WaitGroup
	var resultsMu sync.Mutex
	for name, a := range s.agents {
		wg.Add(1)
		go func(name string, a *Agent) {
			defer wg.Done()
			out := a.Execute(ctx, &Request{Message: "health check"})
			resultsMu.Lock()
			results[name] = !out.Error
			resultsMu.Unlock()
		}(name, a)
	}
	wg.Wait()

	return results
}

// PendingReviews restituisce le pratiche di revisione aperte
func (s *Service) PendingReviews() []Review {
	return s.supervisor.Reviews().Pending()
}

// ResolveReview chiude una pratica di revisione umana
func (s *Service) ResolveReview(id string, approved bool, note string) (*Review, error) {
	return s.supervisor.Reviews().Resolve(id, approved, note)
}

func (s *Service) agent(agentType string) (*Agent, error) {
	name := canonicalAgent(agentType)
	a, ok := s.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentType)
	}
	return a, nil
}

// canonicalAgent normalizza il nome di un agente e risolve gli alias
func canonicalAgent(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	n = strings.ReplaceAll(n, " ", "_")
	if alias, ok := agentAliases[strings.ReplaceAll(n, "_", "")]; ok {
		return alias
	}
	return n
}
