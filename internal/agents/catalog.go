package agents

import (
	"context"
	"strings"

	"github.com/biodoia/agriconnect/internal/notifications"
	"github.com/biodoia/agriconnect/internal/providers"
)

// Runtime raggruppa i collaboratori condivisi da tutti gli agenti
type Runtime struct {
	Registry *providers.Registry
	Store    Store
	Notifier *notifications.Notifier
}

// HandlerFunc esegue la logica di business di un'azione. Ogni errore va
// convertito localmente in un Outcome; un HandlerFunc non restituisce
// mai error
type HandlerFunc func(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome

// ActionSpec descrive un'azione del catalogo di un agente
type ActionSpec struct {
	Name        string
	Description string

	// Schema è il JSON Schema dei parametri da estrarre dal messaggio.
	// Vuoto per le azioni che non richiedono estrazione.
	Schema string

	// Keywords alimentano la classificazione euristica di ripiego
	Keywords []string

	Handler HandlerFunc
}

// Catalog è l'insieme ordinato delle azioni di un agente; la prima è
// quella di default
type Catalog struct {
	Default string
	Actions []ActionSpec
}

// Names restituisce i nomi delle azioni in ordine di catalogo
func (c Catalog) Names() []string {
	names := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		names[i] = a.Name
	}
	return names
}

// Spec restituisce la spec di un'azione per nome
func (c Catalog) Spec(name string) (ActionSpec, bool) {
	for _, a := range c.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return ActionSpec{}, false
}

// matchByKeywords sceglie l'azione con più keyword presenti nel
// messaggio; stringa vuota se nessuna corrispondenza
func (c Catalog) matchByKeywords(message string) string {
	lowered := strings.ToLower(message)

	best := ""
	bestScore := 0
	for _, action := range c.Actions {
		score := 0
		for _, kw := range action.Keywords {
			if strings.Contains(lowered, kw) {
				score++
			}
		}
		if score > bestScore {
			best = action.Name
			bestScore = score
		}
	}
	return best
}
