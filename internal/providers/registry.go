package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrProviderNotFound      = errors.New("provider not found")
	ErrProviderAlreadyExists = errors.New("provider already exists")
	ErrNoProvidersAvailable  = errors.New("no providers available")
	ErrInvocationFailed      = errors.New("provider invocation failed")
)

// taskPreferences mappa ogni tipo di task alla coppia provider
// preferito/fallback
var taskPreferences = map[TaskType][2]string{
	TaskAnalysis:       {"anthropic", "openai"},
	TaskGeneration:     {"openai", "google"},
	TaskReasoning:      {"openai", "anthropic"},
	TaskClassification: {"google", "openai"},
	TaskConversation:   {"openai", "anthropic"},
}

// ProviderMetadata contiene metadata su un provider
type ProviderMetadata struct {
	Name            string
	RegisteredAt    time.Time
	LastHealthCheck time.Time
	Healthy         bool
	SuccessCount    int
	ErrorCount      int
	AvgLatency      time.Duration
}

// Registry gestisce tutti i provider disponibili. I provider vengono
// registrati in fase di avvio; dopo la costruzione l'insieme non cambia
// e le letture sono sicure da più goroutine.
type Registry struct {
	providers map[string]Provider
	metadata  map[string]*ProviderMetadata
	timeout   time.Duration
	mu        sync.RWMutex

	// current è l'ultimo provider selezionato, solo per osservabilità:
	// la provenienza di una risposta viaggia nella Completion
	current string
}

// NewRegistry crea un nuovo registry. timeout limita la durata di ogni
// invocazione; se zero viene usato il default di 30s.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Registry{
		providers: make(map[string]Provider),
		metadata:  make(map[string]*ProviderMetadata),
		timeout:   timeout,
	}
}

// Register registra un nuovo provider
func (r *Registry) Register(provider Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return fmt.Errorf("%w: %s", ErrProviderAlreadyExists, name)
	}

	r.providers[name] = provider
	r.metadata[name] = &ProviderMetadata{
		Name:         name,
		RegisteredAt: time.Now(),
		Healthy:      true,
	}

	log.Info().
		Str("provider", name).
		Msg("Provider registered")

	return nil
}

// Get restituisce un provider per nome
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return provider, nil
}

// Names restituisce i nomi registrati in ordine stabile
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count restituisce il numero di provider registrati
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// SelectOptimal sceglie il provider per un tipo di task: preferito,
// poi fallback, poi un provider qualsiasi in ordine stabile. Un task
// sconosciuto usa le preferenze di conversation.
func (r *Registry) SelectOptimal(task TaskType) (Provider, error) {
	prefs, known := taskPreferences[task]
	if !known {
		prefs = taskPreferences[TaskConversation]
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range prefs {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		return r.providers[names[0]], nil
	}

	return nil, fmt.Errorf("%w: task %s", ErrNoProvidersAvailable, task)
}

// Invoke seleziona il provider ottimale per il task ed esegue la
// chiamata entro il timeout configurato. Il nome del provider usato
// viaggia nella Completion restituita.
func (r *Registry) Invoke(ctx context.Context, task TaskType, messages []Message) (*Completion, error) {
	provider, err := r.SelectOptimal(task)
	if err != nil {
		return nil, err
	}

	name := provider.Name()
	r.setCurrent(name)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	completion, err := provider.Invoke(ctx, messages)
	latency := time.Since(start)

	if err != nil {
		r.recordError(name)
		log.Warn().
			Err(err).
			Str("provider", name).
			Str("task", string(task)).
			Msg("Provider invocation failed")
		return nil, fmt.Errorf("%w: %s: %v", ErrInvocationFailed, name, err)
	}

	r.recordSuccess(name, latency)
	completion.Provider = name

	log.Debug().
		Str("provider", name).
		Str("task", string(task)).
		Dur("latency", latency).
		Int("tokens", completion.Usage.TotalTokens).
		Msg("Provider invocation completed")

	return completion, nil
}

// CurrentProvider restituisce l'ultimo provider selezionato
func (r *Registry) CurrentProvider() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

func (r *Registry) setCurrent(name string) {
	r.mu.Lock()
	r.current = name
	r.mu.Unlock()
}

func (r *Registry) recordSuccess(name string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta, exists := r.metadata[name]; exists {
		meta.SuccessCount++
		if meta.AvgLatency == 0 {
			meta.AvgLatency = latency
		} else {
			meta.AvgLatency = (meta.AvgLatency + latency) / 2
		}
	}
}

func (r *Registry) recordError(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if meta, exists := r.metadata[name]; exists {
		meta.ErrorCount++
	}
}

// GetMetadata restituisce i metadata di un provider
func (r *Registry) GetMetadata(name string) (*ProviderMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, exists := r.metadata[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}

	metaCopy := *meta
	return &metaCopy, nil
}

// HealthCheck esegue health check su tutti i provider in parallelo
func (r *Registry) HealthCheck(ctx context.Context) map[string]error {
	names := r.Names()

	results := make(map[string]error, len(names))
	var resultsMu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(providerName string) {
			defer wg.Done()

			r.mu.RLock()
			provider := r.providers[providerName]
			r.mu.RUnlock()

			start := time.Now()
			err := provider.HealthCheck(ctx)
			latency := time.Since(start)

			r.mu.Lock()
			meta := r.metadata[providerName]
			meta.LastHealthCheck = time.Now()
			meta.Healthy = err == nil
			r.mu.Unlock()

			resultsMu.Lock()
			results[providerName] = err
			resultsMu.Unlock()

			if err != nil {
				log.Warn().
					Err(err).
					Str("provider", providerName).
					Msg("Provider health check failed")
			} else {
				log.Debug().
					Str("provider", providerName).
					Dur("latency", latency).
					Msg("Provider health check succeeded")
			}
		}(name)
	}

	wg.Wait()
	return results
}
