package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrNoStartNode   = errors.New("no start node set")
	ErrNoRoute       = errors.New("no route for decision")
	ErrStepLimit     = errors.New("step limit exceeded")
	ErrAlreadyExists = errors.New("node already exists")
)

// End è il marcatore di terminazione del grafo
const End = "__end__"

// maxSteps limita il numero di nodi eseguibili in una singola invocazione
const maxSteps = 32

// State è lo stato condiviso tra i nodi: canali nominati con merge superficiale
type State map[string]any

// Clone restituisce una copia superficiale dello stato
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// NodeFunc esegue un passo del grafo e restituisce uno stato parziale
// da fondere sopra quello corrente
type NodeFunc func(ctx context.Context, state State) (State, error)

// DecisionFunc sceglie la chiave di routing dopo un nodo condizionale
type DecisionFunc func(state State) string

type conditionalEdge struct {
	decide  DecisionFunc
	targets map[string]string
}

// Graph è il builder del grafo di esecuzione
type Graph struct {
	name        string
	nodes       map[string]NodeFunc
	edges       map[string]string
	conditional map[string]conditionalEdge
	start       string
	buildErrs   []error
}

// NewGraph crea un nuovo builder
func NewGraph(name string) *Graph {
	return &Graph{
		name:        name,
		nodes:       make(map[string]NodeFunc),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge),
	}
}

// AddNode registra un nodo nel grafo
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	if _, exists := g.nodes[name]; exists {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("%w: %s", ErrAlreadyExists, name))
		return g
	}
	if fn == nil {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("node %s: nil func", name))
		return g
	}
	g.nodes[name] = fn
	return g
}

// AddEdge collega due nodi con un arco statico
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// AddConditionalEdge collega un nodo a più destinazioni tramite una decisione
func (g *Graph) AddConditionalEdge(from string, decide DecisionFunc, targets map[string]string) *Graph {
	if decide == nil {
		g.buildErrs = append(g.buildErrs, fmt.Errorf("conditional edge %s: nil decision", from))
		return g
	}
	g.conditional[from] = conditionalEdge{decide: decide, targets: targets}
	return g
}

// SetStart imposta il nodo di partenza
func (g *Graph) SetStart(name string) *Graph {
	g.start = name
	return g
}

// Compile valida il grafo e restituisce un eseguibile immutabile
func (g *Graph) Compile() (*Runnable, error) {
	if len(g.buildErrs) > 0 {
		return nil, errors.Join(g.buildErrs...)
	}
	if g.start == "" {
		return nil, ErrNoStartNode
	}
	if _, ok := g.nodes[g.start]; !ok {
		return nil, fmt.Errorf("%w: start node %s", ErrNodeNotFound, g.start)
	}

	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, from)
		}
		if to != End {
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, to)
			}
		}
	}
	for from, edge := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional source %s", ErrNodeNotFound, from)
		}
		for key, to := range edge.targets {
			if to != End {
				if _, ok := g.nodes[to]; !ok {
					return nil, fmt.Errorf("%w: target %s for key %s", ErrNodeNotFound, to, key)
				}
			}
		}
	}

	return &Runnable{
		name:        g.name,
		nodes:       g.nodes,
		edges:       g.edges,
		conditional: g.conditional,
		start:       g.start,
	}, nil
}

// Runnable è un grafo compilato, riutilizzabile da più goroutine
type Runnable struct {
	name        string
	nodes       map[string]NodeFunc
	edges       map[string]string
	conditional map[string]conditionalEdge
	start       string
}

// Invoke esegue il grafo a partire dallo stato iniziale.
// Gli errori dei nodi si propagano intatti; lo stato restituito è quello
// raggiunto fino al momento dell'errore.
func (r *Runnable) Invoke(ctx context.Context, initial State) (State, error) {
	state := initial.Clone()
	if state == nil {
		state = make(State)
	}

	current := r.start
	for steps := 0; current != End; steps++ {
		if steps >= maxSteps {
			return state, fmt.Errorf("%w: %d steps in graph %s", ErrStepLimit, steps, r.name)
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, ok := r.nodes[current]
		if !ok {
			return state, fmt.Errorf("%w: %s", ErrNodeNotFound, current)
		}

		log.Trace().
			Str("graph", r.name).
			Str("node", current).
			Msg("Executing node")

		delta, err := node(ctx, state)
		if err != nil {
			return state, err
		}
		for k, v := range delta {
			state[k] = v
		}

		next, err := r.next(current, state)
		if err != nil {
			return state, err
		}
		current = next
	}

	return state, nil
}

// next determina il nodo successivo dopo current
func (r *Runnable) next(current string, state State) (string, error) {
	if edge, ok := r.conditional[current]; ok {
		key := edge.decide(state)
		target, ok := edge.targets[key]
		if !ok {
			return "", fmt.Errorf("%w: node %s returned %q", ErrNoRoute, current, key)
		}
		return target, nil
	}
	if to, ok := r.edges[current]; ok {
		return to, nil
	}
	// Nessun arco in uscita: il nodo è terminale
	return End, nil
}
