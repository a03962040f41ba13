package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/internal/workflow"
	"github.com/rs/zerolog/log"
)

// Chiavi dei canali di stato del grafo agente
const (
	stateKeyRequest = "request"
	stateKeyAction  = "action"
	stateKeyResult  = "result"
)

// Config parametrizza un agente specializzato. Tutti gli agenti
// condividono lo stesso ciclo classify, extract, act, format: cambia
// solo il catalogo.
type Config struct {
	Name        string
	Role        string
	Description string
	Catalog     Catalog
}

// Agent è un agente specializzato del marketplace. Immutabile dopo la
// costruzione, utilizzabile da più goroutine.
type Agent struct {
	name        string
	role        string
	description string
	catalog     Catalog
	extractor   *extractor
	graph       *workflow.Runnable
	rt          *Runtime
}

// New costruisce un agente dal suo catalogo: compila gli schemi di
// estrazione e il grafo di esecuzione
func New(cfg Config, rt *Runtime) (*Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if len(cfg.Catalog.Actions) == 0 {
		return nil, fmt.Errorf("agent %s: empty catalog", cfg.Name)
	}
	if _, ok := cfg.Catalog.Spec(cfg.Catalog.Default); !ok {
		return nil, fmt.Errorf("agent %s: default action %s not in catalog", cfg.Name, cfg.Catalog.Default)
	}

	ex, err := newExtractor(cfg.Name, cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
	}

	a := &Agent{
		name:        cfg.Name,
		role:        cfg.Role,
		description: cfg.Description,
		catalog:     cfg.Catalog,
		extractor:   ex,
		rt:          rt,
	}

	g := workflow.NewGraph(cfg.Name).
		AddNode("classify_action", a.classifyNode).
		SetStart("classify_action")

	targets := make(map[string]string, len(cfg.Catalog.Actions))
	for _, spec := range cfg.Catalog.Actions {
		g.AddNode(spec.Name, a.actionNode(spec))
		targets[spec.Name] = spec.Name
	}
	g.AddConditionalEdge("classify_action", func(state workflow.State) string {
		action, _ := state[stateKeyAction].(string)
		return action
	}, targets)

	runnable, err := g.Compile()
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", cfg.Name, err)
	}
	a.graph = runnable

	return a, nil
}

// Name restituisce l'identità dell'agente
func (a *Agent) Name() string {
	return a.name
}

// Catalog restituisce il catalogo delle azioni
func (a *Agent) Catalog() Catalog {
	return a.catalog
}

// Execute elabora un messaggio e restituisce sempre un Outcome, mai un
// errore: i fallimenti interni diventano esiti con Error true
func (a *Agent) Execute(ctx context.Context, req *Request) Outcome {
	if req == nil {
		req = &Request{}
	}

	state, err := a.graph.Invoke(ctx, workflow.State{stateKeyRequest: req})
	if err != nil {
		log.Error().
			Err(err).
			Str("agent", a.name).
			Msg("Agent graph execution failed")
		out := errorOutcome("The %s agent could not process the request: %v", a.name, err)
		a.stamp(&out, req)
		return out
	}

	out, ok := state[stateKeyResult].(Outcome)
	if !ok {
		out = errorOutcome("The %s agent produced no result", a.name)
	}
	a.stamp(&out, req)
	return out
}

func (a *Agent) stamp(out *Outcome, req *Request) {
	out.Agent = a.name
	if out.Provider == "" && a.rt.Registry != nil {
		out.Provider = a.rt.Registry.CurrentProvider()
	}
	if out.SessionID == "" && req.Context != nil {
		out.SessionID = req.Context.SessionID
	}
}

// classifyNode determina l'azione richiesta: risposta LLM valida, poi
// euristica a keyword, poi azione di default. Non fallisce mai.
func (a *Agent) classifyNode(ctx context.Context, state workflow.State) (workflow.State, error) {
	req, _ := state[stateKeyRequest].(*Request)
	if req == nil {
		return workflow.State{stateKeyAction: a.catalog.Default}, nil
	}

	action := a.classify(ctx, req.Message)

	log.Debug().
		Str("agent", a.name).
		Str("action", action).
		Msg("Action classified")

	return workflow.State{stateKeyAction: action}, nil
}

func (a *Agent) classify(ctx context.Context, message string) string {
	reply, err := a.rt.Registry.Invoke(ctx, providers.TaskClassification, []providers.Message{
		providers.SystemMessage(a.classificationPrompt()),
		providers.UserMessage(message),
	})
	if err == nil {
		candidate := strings.ToLower(strings.TrimSpace(reply.Content))
		candidate = strings.Trim(candidate, `"'.`)
		if _, ok := a.catalog.Spec(candidate); ok {
			return candidate
		}
		log.Debug().
			Str("agent", a.name).
			Str("reply", candidate).
			Msg("Classifier reply outside catalog, falling back")
	} else {
		log.Warn().
			Err(err).
			Str("agent", a.name).
			Msg("Classification call failed, falling back")
	}

	if match := a.catalog.matchByKeywords(message); match != "" {
		return match
	}
	return a.catalog.Default
}

func (a *Agent) classificationPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s agent of an agricultural marketplace. %s\n", a.name, a.description)
	sb.WriteString("Classify the user request into exactly one of these actions:\n")
	for _, spec := range a.catalog.Actions {
		fmt.Fprintf(&sb, "- %s: %s\n", spec.Name, spec.Description)
	}
	sb.WriteString("Reply with only the action name, nothing else.")
	return sb.String()
}

// actionNode incapsula un'azione: estrazione parametri quando prevista,
// poi handler. Ogni problema diventa un Outcome, mai un errore del nodo.
func (a *Agent) actionNode(spec ActionSpec) workflow.NodeFunc {
	return func(ctx context.Context, state workflow.State) (workflow.State, error) {
		req, _ := state[stateKeyRequest].(*Request)
		if req == nil {
			req = &Request{}
		}

		out := a.runAction(ctx, spec, req)
		out.Action = spec.Name
		return workflow.State{stateKeyResult: out}, nil
	}
}

func (a *Agent) runAction(ctx context.Context, spec ActionSpec, req *Request) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("agent", a.name).
				Str("action", spec.Name).
				Any("panic", r).
				Msg("Action handler panicked")
			out = errorOutcome("The %s action failed unexpectedly", spec.Name)
		}
	}()

	var fields map[string]any
	if spec.Schema != "" {
		extracted, failure, ok := a.extractor.extract(ctx, a.rt.Registry, spec, req.Message)
		if !ok {
			return failure
		}
		fields = extracted
	}

	return spec.Handler(ctx, a.rt, req, fields)
}
