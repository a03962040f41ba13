package agents

import (
	"fmt"

	"github.com/biodoia/agriconnect/pkg/models"
)

// Outcome è il risultato uniforme di ogni turno agente. Non è mai nil:
// anche i fallimenti arrivano come Outcome con Success false.
type Outcome struct {
	Content string `json:"content"`
	Success bool   `json:"success"`
	Error   bool   `json:"error,omitempty"`

	Agent    string `json:"agent,omitempty"`
	Action   string `json:"action,omitempty"`
	Provider string `json:"provider,omitempty"`

	Data map[string]any `json:"data,omitempty"`

	PendingReview bool   `json:"pending_review,omitempty"`
	ReviewID      string `json:"review_id,omitempty"`

	Supervisor string `json:"supervisor,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// successOutcome costruisce un esito positivo
func successOutcome(content string, data map[string]any) Outcome {
	return Outcome{Content: content, Success: true, Data: data}
}

// failureOutcome costruisce un fallimento di business: il turno è
// andato a buon fine ma l'operazione non si può fare
func failureOutcome(content string) Outcome {
	return Outcome{Content: content, Success: false}
}

// errorOutcome costruisce un esito di errore interno
func errorOutcome(format string, args ...any) Outcome {
	return Outcome{
		Content: fmt.Sprintf(format, args...),
		Success: false,
		Error:   true,
	}
}

// TurnContext trasporta identità e contesto ambientale di un turno
type TurnContext struct {
	User      *models.User
	SessionID string

	// Transaction contiene attributi della transazione in corso, se il
	// canale chiamante li conosce (es. {"amount": 12000})
	Transaction map[string]any
}

// Request è il messaggio in ingresso a un agente
type Request struct {
	Message string
	Context *TurnContext
}

// UserRole restituisce il ruolo dell'utente, se presente
func (r *Request) UserRole() models.Role {
	if r == nil || r.Context == nil || r.Context.User == nil {
		return ""
	}
	return r.Context.User.Role
}

// TransactionAmount restituisce l'importo della transazione in contesto
func (r *Request) TransactionAmount() float64 {
	if r == nil || r.Context == nil || r.Context.Transaction == nil {
		return 0
	}
	switch v := r.Context.Transaction["amount"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
