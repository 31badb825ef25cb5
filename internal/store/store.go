package store

import (
	"errors"
	"sync"
	"time"

	"github.com/example/zinibot/internal/models"
)

var (
	// ErrDuplicateID is returned when inserting a record whose id already exists.
	ErrDuplicateID = errors.New("payment id already exists")

	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("payment not found")

	// ErrAlreadyTerminal is returned when transitioning a record that has
	// already left the pending state.
	ErrAlreadyTerminal = errors.New("payment already in terminal state")

	// ErrInvalidAmount is returned when inserting a record with a
	// non-positive amount.
	ErrInvalidAmount = errors.New("payment amount must be greater than zero")
)

// Store is an in-memory map of payment records shared between the webhook
// handlers and the bot. Every access goes through the mutex; Transition is
// atomic with the terminal-state check so two concurrent webhook deliveries
// for the same id can never both perform a transition.
type Store struct {
	mu      sync.Mutex
	records map[string]*models.PaymentRecord
}

// New creates an empty Store.
func New() *Store {
	return &Store{records: make(map[string]*models.PaymentRecord)}
}

// Insert adds a new pending record. The id must not already be present and
// the amount must be positive.
func (s *Store) Insert(rec models.PaymentRecord) error {
	if rec.Amount <= 0 {
		return ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return ErrDuplicateID
	}

	if rec.Status == "" {
		rec.Status = models.PaymentStatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	s.records[rec.ID] = &rec
	return nil
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return models.PaymentRecord{}, ErrNotFound
	}
	return *rec, nil
}

// Transition moves the record for id into a terminal status. It returns the
// record as it was before the call and whether this call performed the
// transition. Only the caller that performed the transition may schedule a
// notification. A record already in a terminal state is left untouched and
// reported with ErrAlreadyTerminal.
func (s *Store) Transition(id string, status models.PaymentStatus, meta map[string]string) (models.PaymentRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		return models.PaymentRecord{}, false, ErrNotFound
	}

	prev := *rec

	if rec.Status != models.PaymentStatusPending {
		return prev, false, ErrAlreadyTerminal
	}

	now := time.Now()
	rec.Status = status
	rec.CompletedAt = &now
	if len(meta) > 0 {
		rec.GatewayMeta = meta
	}

	return prev, true, nil
}

// Remove deletes the record for id, if present.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, id)
}

// Pending returns copies of all records still in the pending state for the
// given requester. A zero requester id matches every record.
func (s *Store) Pending(requesterID int64) []models.PaymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []models.PaymentRecord
	for _, rec := range s.records {
		if rec.Status != models.PaymentStatusPending {
			continue
		}
		if requesterID != 0 && rec.RequesterID != requesterID {
			continue
		}
		result = append(result, *rec)
	}
	return result
}

// PendingCount returns the number of records still pending.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range s.records {
		if rec.Status == models.PaymentStatusPending {
			count++
		}
	}
	return count
}
