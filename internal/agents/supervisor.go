package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/internal/workflow"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/rs/zerolog/log"
)

// Chiavi di stato del grafo supervisore
const (
	stateKeyIntent = "intent"
	stateKeyAgent  = "agent"
)

// intentAgents mappa ogni intento sugli agenti che possono servirlo,
// in ordine di preferenza
var intentAgents = map[string][]string{
	"list_product":         {"producer"},
	"search_products":      {"consumer", "exporter"},
	"negotiate_price":      {"producer", "consumer", "exporter"},
	"create_transaction":   {"consumer", "exporter"},
	"track_shipment":       {"logistics"},
	"quality_check":        {"quality_assurance"},
	"market_analysis":      {"market_analyst"},
	"price_forecast":       {"market_analyst"},
	"manage_inventory":     {"producer"},
	"coordinate_delivery":  {"logistics"},
	"verify_certification": {"quality_assurance"},
}

// intentKeywords è il ripiego euristico quando il provider non risponde
var intentKeywords = map[string][]string{
	"list_product":         {"sell my", "list my", "publish", "harvest"},
	"search_products":      {"search", "find", "buy", "looking for", "available"},
	"negotiate_price":      {"negotiate", "counter", "offer", "deal", "discount"},
	"create_transaction":   {"order", "purchase", "checkout"},
	"track_shipment":       {"track", "where is my", "shipment"},
	"quality_check":        {"quality", "inspect", "standards"},
	"market_analysis":      {"market", "trend", "analysis", "compare prices"},
	"price_forecast":       {"forecast", "predict", "will the price"},
	"manage_inventory":     {"inventory", "stock", "restock"},
	"coordinate_delivery":  {"arrange delivery", "ship order", "schedule pickup"},
	"verify_certification": {"certificate", "certification", "verify"},
}

// SupervisorConfig parametrizza l'orchestratore
type SupervisorConfig struct {
	Name string

	// Gli esiti oltre questa soglia passano dalla revisione umana
	AmountThreshold float64

	// Marcatori testuali che forzano la revisione, confronto senza
	// distinzione di maiuscole
	ReviewMarkers []string
}

// Supervisor instrada ogni messaggio verso l'agente specializzato
// giusto e intercetta gli esiti che richiedono revisione umana
type Supervisor struct {
	cfg     SupervisorConfig
	agents  map[string]*Agent
	reviews *ReviewQueue
	rt      *Runtime
	graph   *workflow.Runnable
}

// NewSupervisor costruisce il supervisore sugli agenti indicati
func NewSupervisor(cfg SupervisorConfig, agents map[string]*Agent, reviews *ReviewQueue, rt *Runtime) (*Supervisor, error) {
	if len(agents) == 0 {
		return nil, fmt.Errorf("supervisor needs at least one agent")
	}
	if cfg.Name == "" {
		cfg.Name = "supervisor"
	}
	if cfg.AmountThreshold <= 0 {
		cfg.AmountThreshold = 10000
	}
	if len(cfg.ReviewMarkers) == 0 {
		cfg.ReviewMarkers = []string{"quality issue", "dispute"}
	}
	if reviews == nil {
		reviews = NewReviewQueue()
	}

	s := &Supervisor{
		cfg:     cfg,
		agents:  agents,
		reviews: reviews,
		rt:      rt,
	}

	g := workflow.NewGraph(cfg.Name).
		AddNode("classify_intent", s.classifyIntentNode).
		AddNode("select_agent", s.selectAgentNode).
		AddNode("delegate_task", s.delegateNode).
		AddNode("human_review", s.humanReviewNode).
		AddNode("finalize_response", s.finalizeNode).
		SetStart("classify_intent").
		AddEdge("classify_intent", "select_agent").
		AddEdge("select_agent", "delegate_task").
		AddConditionalEdge("delegate_task", s.routeAfterDelegation, map[string]string{
			"human_review":      "human_review",
			"finalize_response": "finalize_response",
		}).
		AddEdge("human_review", "finalize_response")

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}
	s.graph = runnable

	return s, nil
}

// Reviews espone la coda di revisione del supervisore
func (s *Supervisor) Reviews() *ReviewQueue {
	return s.reviews
}

// Process instrada un messaggio e restituisce sempre un Outcome
func (s *Supervisor) Process(ctx context.Context, req *Request) Outcome {
	if req == nil {
		req = &Request{}
	}

	state, err := s.graph.Invoke(ctx, workflow.State{stateKeyRequest: req})
	if err != nil {
		log.Error().Err(err).Msg("Supervisor graph execution failed")
		out := errorOutcome("I could not route your request: %v", err)
		s.finalize(&out, req)
		return out
	}

	out, ok := state[stateKeyResult].(Outcome)
	if !ok {
		out = errorOutcome("No agent produced a result")
		s.finalize(&out, req)
	}
	return out
}

func (s *Supervisor) classifyIntentNode(ctx context.Context, state workflow.State) (workflow.State, error) {
	req := state[stateKeyRequest].(*Request)
	intent := s.classifyIntent(ctx, req)

	log.Debug().
		Str("intent", intent).
		Msg("Supervisor classified intent")

	return workflow.State{stateKeyIntent: intent}, nil
}

// classifyIntent prova il provider, poi le parole chiave, infine il
// default legato al ruolo dell'utente
func (s *Supervisor) classifyIntent(ctx context.Context, req *Request) string {
	intents := make([]string, 0, len(intentAgents))
	for intent := range intentAgents {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	reply, err := s.rt.Registry.Invoke(ctx, providers.TaskClassification, []providers.Message{
		providers.SystemMessage("You route messages for an agricultural marketplace. " +
			"Classify the user message into exactly one of these intents and respond with the intent name only: " +
			strings.Join(intents, ", ")),
		providers.UserMessage(req.Message),
	})
	if err == nil {
		candidate := strings.Trim(strings.ToLower(strings.TrimSpace(reply.Content)), `"'.`)
		if _, ok := intentAgents[candidate]; ok {
			return candidate
		}
		log.Debug().
			Str("candidate", candidate).
			Msg("Provider returned an unknown intent, falling back to keywords")
	}

	if intent := matchIntentKeywords(req.Message); intent != "" {
		return intent
	}

	switch req.UserRole() {
	case "producer":
		return "list_product"
	default:
		return "search_products"
	}
}

func matchIntentKeywords(message string) string {
	lowered := strings.ToLower(message)

	best, bestScore := "", 0
	intents := make([]string, 0, len(intentKeywords))
	for intent := range intentKeywords {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	for _, intent := range intents {
		score := 0
		for _, kw := range intentKeywords[intent] {
			if strings.Contains(lowered, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = intent, score
		}
	}
	return best
}

func (s *Supervisor) selectAgentNode(ctx context.Context, state workflow.State) (workflow.State, error) {
	req := state[stateKeyRequest].(*Request)
	intent := state[stateKeyIntent].(string)

	eligible := intentAgents[intent]
	if len(eligible) == 0 {
		eligible = []string{"consumer"}
	}

	// A parità di intento vince l'agente che corrisponde al ruolo
	// dell'utente
	chosen := eligible[0]
	if role := string(req.UserRole()); role != "" {
		for _, name := range eligible {
			if name == role {
				chosen = name
				break
			}
		}
	}

	if _, ok := s.agents[chosen]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, chosen)
	}

	log.Debug().
		Str("intent", intent).
		Str("agent", chosen).
		Msg("Supervisor selected agent")

	return workflow.State{stateKeyAgent: chosen}, nil
}

func (s *Supervisor) delegateNode(ctx context.Context, state workflow.State) (workflow.State, error) {
	req := state[stateKeyRequest].(*Request)
	name := state[stateKeyAgent].(string)

	out := s.agents[name].Execute(ctx, req)
	return workflow.State{stateKeyResult: out}, nil
}

func (s *Supervisor) routeAfterDelegation(state workflow.State) string {
	req, _ := state[stateKeyRequest].(*Request)
	out, _ := state[stateKeyResult].(Outcome)

	if s.needsReview(out, req) {
		return "human_review"
	}
	return "finalize_response"
}

// needsReview decide se un esito deve passare dalla revisione umana
func (s *Supervisor) needsReview(out Outcome, req *Request) bool {
	if out.Error {
		return true
	}
	if req.TransactionAmount() > s.cfg.AmountThreshold {
		return true
	}
	if amount := fieldFloat(out.Data, "total_amount"); amount > s.cfg.AmountThreshold {
		return true
	}
	lowered := strings.ToLower(out.Content)
	for _, marker := range s.cfg.ReviewMarkers {
		if strings.Contains(lowered, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

func (s *Supervisor) humanReviewNode(ctx context.Context, state workflow.State) (workflow.State, error) {
	req, _ := state[stateKeyRequest].(*Request)
	out := state[stateKeyResult].(Outcome)

	reason := "flagged content"
	switch {
	case out.Error:
		reason = "agent error"
	case req.TransactionAmount() > s.cfg.AmountThreshold,
		fieldFloat(out.Data, "total_amount") > s.cfg.AmountThreshold:
		reason = "amount above threshold"
	}

	id := s.reviews.Add(out, reason)

	out.PendingReview = true
	out.ReviewID = id
	out.Content += fmt.Sprintf("\n⏳ This outcome is pending human review (case %s).", id)

	if req != nil && req.Context != nil && req.Context.User != nil {
		s.rt.Notifier.Notify(ctx, req.Context.User.ID, models.NotificationReview,
			"Request under review",
			fmt.Sprintf("Your request was queued for human review (case %s): %s.", id, reason),
			map[string]any{"review_id": id, "reason": reason, "agent": out.Agent})
	}

	log.Info().
		Str("review_id", id).
		Str("reason", reason).
		Str("agent", out.Agent).
		Msg("Outcome queued for human review")

	return workflow.State{stateKeyResult: out}, nil
}

func (s *Supervisor) finalizeNode(ctx context.Context, state workflow.State) (workflow.State, error) {
	req, _ := state[stateKeyRequest].(*Request)
	out := state[stateKeyResult].(Outcome)
	s.finalize(&out, req)
	return workflow.State{stateKeyResult: out}, nil
}

func (s *Supervisor) finalize(out *Outcome, req *Request) {
	out.Supervisor = s.cfg.Name
	out.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if out.SessionID == "" && req != nil && req.Context != nil {
		out.SessionID = req.Context.SessionID
	}
}
