package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/google/uuid"

	pkgerrors "github.com/vinavax/vinavax-backend/pkg/errors"
)

// Entry is the single service currently selected for purchase. The cart
// holds at most one entry; adding a new service replaces the cart entirely.
// This is the intended single-service-per-order model, not a defect.
type Entry struct {
	VaccineID uuid.UUID `json:"vaccineId"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	PriceVND  int64     `json:"priceVnd"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
}

// Snapshot is the cart state handed to readers and subscribers.
type Snapshot struct {
	CustomerID string  `json:"customerId"`
	Entries    []Entry `json:"entries"`
}

// TotalVND sums the cart.
func (s Snapshot) TotalVND() int64 {
	var total int64
	for _, e := range s.Entries {
		total += e.PriceVND * int64(e.Quantity)
	}
	return total
}

// ItemCount sums quantities across entries.
func (s Snapshot) ItemCount() int {
	var count int
	for _, e := range s.Entries {
		count += e.Quantity
	}
	return count
}

// Contains reports whether the vaccine is in the cart.
func (s Snapshot) Contains(vaccineID uuid.UUID) bool {
	for _, e := range s.Entries {
		if e.VaccineID == vaccineID {
			return true
		}
	}
	return false
}

// Subscriber receives the post-mutation snapshot. Callbacks run
// synchronously inside the mutating call, so when a mutator returns every
// subscriber has already observed the new state.
type Subscriber func(Snapshot)

type storage interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartKey(customerID string) string
}

// Store is the shared cart state container. Mutations are serialized by the
// mutex and written through to Redis; concurrent writers for the same
// customer resolve last-writer-wins.
type Store struct {
	mu          sync.Mutex
	carts       map[string][]Entry
	subscribers map[int]Subscriber
	nextSubID   int
	storage     storage
	ttl         time.Duration
	now         func() time.Time
}

// NewStore builds a cart store persisting through the provided storage.
func NewStore(storage storage, ttl time.Duration, now func() time.Time) (*Store, error) {
	if storage == nil {
		return nil, fmt.Errorf("cart storage required")
	}
	if ttl <= 0 {
		ttl = 168 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		carts:       map[string][]Entry{},
		subscribers: map[int]Subscriber{},
		storage:     storage,
		ttl:         ttl,
		now:         now,
	}, nil
}

// Subscribe registers a callback for cart mutations and returns an
// unsubscribe func.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// AddToCart replaces any existing entry with a one-quantity entry for the
// service.
func (s *Store) AddToCart(ctx context.Context, customerID string, vaccineID uuid.UUID, code, name string, priceVND int64) (Snapshot, error) {
	if customerID == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if priceVND < 0 {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := []Entry{{
		VaccineID: vaccineID,
		Code:      code,
		Name:      name,
		PriceVND:  priceVND,
		Quantity:  1,
		AddedAt:   s.now().UTC(),
	}}
	return s.commitLocked(ctx, customerID, entries)
}

// RemoveFromCart drops the matching entry.
func (s *Store) RemoveFromCart(ctx context.Context, customerID string, vaccineID uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx, customerID)
	if err != nil {
		return Snapshot{}, err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.VaccineID != vaccineID {
			kept = append(kept, e)
		}
	}
	return s.commitLocked(ctx, customerID, kept)
}

// UpdateQuantity sets the quantity for the entry; a quantity of zero or
// less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, customerID string, vaccineID uuid.UUID, qty int) (Snapshot, error) {
	if qty <= 0 {
		return s.RemoveFromCart(ctx, customerID, vaccineID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx, customerID)
	if err != nil {
		return Snapshot{}, err
	}
	for i := range entries {
		if entries[i].VaccineID == vaccineID {
			entries[i].Quantity = qty
		}
	}
	return s.commitLocked(ctx, customerID, entries)
}

// ClearCart empties the customer's cart.
func (s *Store) ClearCart(ctx context.Context, customerID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, customerID, nil)
}

// GetCart returns the current snapshot, reloading from storage when the
// in-memory state is cold.
func (s *Store) GetCart(ctx context.Context, customerID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadLocked(ctx, customerID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{CustomerID: customerID, Entries: entries}, nil
}

func (s *Store) loadLocked(ctx context.Context, customerID string) ([]Entry, error) {
	if entries, ok := s.carts[customerID]; ok {
		return append([]Entry(nil), entries...), nil
	}

	raw, err := s.storage.Get(ctx, s.storage.CartKey(customerID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		// A corrupt blob is treated as an empty cart rather than a dead end.
		return nil, nil
	}
	s.carts[customerID] = entries
	return append([]Entry(nil), entries...), nil
}

func (s *Store) commitLocked(ctx context.Context, customerID string, entries []Entry) (Snapshot, error) {
	key := s.storage.CartKey(customerID)
	if len(entries) == 0 {
		if err := s.storage.Del(ctx, key); err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
		}
		s.carts[customerID] = nil
	} else {
		raw, err := json.Marshal(entries)
		if err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
		}
		if err := s.storage.Set(ctx, key, string(raw), s.ttl); err != nil {
			return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting cart")
		}
		s.carts[customerID] = entries
	}

	snapshot := Snapshot{CustomerID: customerID, Entries: append([]Entry(nil), entries...)}
	for _, fn := range s.subscribers {
		fn(snapshot)
	}
	return snapshot, nil
}
