package providers

import (
	"context"
	"time"
)

// Provider è l'interfaccia base per tutti i provider LLM
type Provider interface {
	// Invoke esegue una richiesta di completamento sulla conversazione
	Invoke(ctx context.Context, messages []Message) (*Completion, error)

	// Name restituisce il nome del provider
	Name() string

	// HealthCheck verifica lo stato di salute del provider
	HealthCheck(ctx context.Context) error
}

// Message rappresenta un messaggio nella conversazione
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// SystemMessage costruisce un messaggio di sistema
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage costruisce un messaggio utente
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Completion rappresenta la risposta di un provider
type Completion struct {
	Content  string `json:"content"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Usage    Usage  `json:"usage"`
}

// Usage rappresenta le statistiche di utilizzo token
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TaskType classifica il tipo di lavoro richiesto a un provider
type TaskType string

const (
	TaskAnalysis       TaskType = "analysis"
	TaskGeneration     TaskType = "generation"
	TaskReasoning      TaskType = "reasoning"
	TaskClassification TaskType = "classification"
	TaskConversation   TaskType = "conversation"
)

// BaseProvider fornisce configurazione comune per i client HTTP
type BaseProvider struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries int
}

// NewBaseProvider crea un nuovo BaseProvider
func NewBaseProvider(name, baseURL, apiKey, model string) *BaseProvider {
	return &BaseProvider{
		name:       name,
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		timeout:    30 * time.Second,
		maxRetries: 3,
	}
}

// Name restituisce il nome del provider
func (b *BaseProvider) Name() string {
	return b.name
}

// Model restituisce il modello configurato
func (b *BaseProvider) Model() string {
	return b.model
}

// BaseURL restituisce la base URL
func (b *BaseProvider) BaseURL() string {
	return b.baseURL
}

// APIKey restituisce la API key
func (b *BaseProvider) APIKey() string {
	return b.apiKey
}

// Timeout restituisce il timeout delle richieste
func (b *BaseProvider) Timeout() time.Duration {
	return b.timeout
}

// MaxRetries restituisce il numero massimo di retry
func (b *BaseProvider) MaxRetries() int {
	return b.maxRetries
}

// SetTimeout imposta il timeout delle richieste
func (b *BaseProvider) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}
