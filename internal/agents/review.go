package agents

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReviewStatus indica lo stato di una pratica di revisione
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// Review è una pratica in attesa di revisione umana
type Review struct {
	ID        string       `json:"id"`
	Reason    string       `json:"reason"`
	Outcome   Outcome      `json:"outcome"`
	Status    ReviewStatus `json:"status"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Resolved  *time.Time   `json:"resolved_at,omitempty"`
}

// ReviewQueue è la coda in memoria delle pratiche di revisione.
// Utilizzabile da più goroutine.
type ReviewQueue struct {
	mu      sync.RWMutex
	reviews map[string]*Review
}

// NewReviewQueue crea una coda vuota
func NewReviewQueue() *ReviewQueue {
	return &ReviewQueue{reviews: make(map[string]*Review)}
}

// Add accoda una pratica e ne restituisce l'identificativo
func (q *ReviewQueue) Add(out Outcome, reason string) string {
	r := &Review{
		ID:        uuid.NewString(),
		Reason:    reason,
		Outcome:   out,
		Status:    ReviewStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.reviews[r.ID] = r
	q.mu.Unlock()

	return r.ID
}

// Get restituisce una pratica per id
func (q *ReviewQueue) Get(id string) (*Review, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	r, ok := q.reviews[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReviewNotFound, id)
	}
	copied := *r
	return &copied, nil
}

// Resolve chiude una pratica pendente con l'esito indicato
func (q *ReviewQueue) Resolve(id string, approved bool, note string) (*Review, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.reviews[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReviewNotFound, id)
	}
	if r.Status != ReviewStatusPending {
		return nil, fmt.Errorf("review %s is already %s", id, r.Status)
	}

	now := time.Now().UTC()
	r.Status = ReviewStatusRejected
	if approved {
		r.Status = ReviewStatusApproved
	}
	r.Note = note
	r.Resolved = &now

	copied := *r
	return &copied, nil
}

// Pending restituisce le pratiche ancora aperte, dalla più vecchia
func (q *ReviewQueue) Pending() []Review {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var pending []Review
	for _, r := range q.reviews {
		if r.Status == ReviewStatusPending {
			pending = append(pending, *r)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	return pending
}
