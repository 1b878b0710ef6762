package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bazaarlabs/bazaar/internal/entity"
)

// MemoryStore is an in-process implementation of the order store with the same
// versioning, numbering, and transition semantics as the database-backed
// repository. It backs unit tests and local development without a database.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]entity.Order

	// now is swappable so tests can control milestone timestamps.
	now func() time.Time
}

// NewMemoryStore returns an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]entity.Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Create mirrors Repository.Create: version 1, daily sequence number, defaults.
func (s *MemoryStore) Create(_ context.Context, o *entity.Order) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = entity.StatusPendingPayment
	}
	if o.Currency == "" {
		o.Currency = entity.DefaultCurrency
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = entity.PaymentStatusPending
	}
	o.Version = 1
	o.CreatedAt = now
	o.UpdatedAt = now

	start, end := dayBounds(now)
	seq := 1
	for _, existing := range s.orders {
		if !existing.CreatedAt.Before(start) && existing.CreatedAt.Before(end) {
			seq++
		}
	}
	o.Number = FormatNumber(now, seq)

	s.orders[o.ID] = *o
	return o, nil
}

// GetByID returns a copy of the stored order or ErrNotFound.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

// GetByNumber resolves an order by its human-facing number.
func (s *MemoryStore) GetByNumber(_ context.Context, number string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.Number == number {
			out := o
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// TrackByNumber requires both number and email to match.
func (s *MemoryStore) TrackByNumber(_ context.Context, number, email string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.Number == number && o.UserEmail == email {
			out := o
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// List returns matching orders, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter, page Page) ([]entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page = page.Normalize()
	matched := make([]entity.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if matchesFilter(o, filter) {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if page.Offset >= len(matched) {
		return []entity.Order{}, nil
	}
	matched = matched[page.Offset:]
	if len(matched) > page.Limit {
		matched = matched[:page.Limit]
	}
	return matched, nil
}

// Count returns how many orders match the filter.
func (s *MemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, o := range s.orders {
		if matchesFilter(o, filter) {
			count++
		}
	}
	return count, nil
}

// Update applies a patch under the same optimistic-lock contract as the
// database repository.
func (s *MemoryStore) Update(_ context.Context, id string, patch Patch, expectedVersion *int64) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if expectedVersion != nil && o.Version != *expectedVersion {
		return nil, &VersionConflictError{Expected: *expectedVersion, Actual: o.Version}
	}

	patch.Apply(o)
	o.Version++
	o.UpdatedAt = s.now()
	s.orders[id] = *o
	return o, nil
}

// UpdateStatus transitions the order, stamping milestones on first entry.
func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status entity.Status, extra *Patch) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(status) {
		return nil, &TransitionError{From: o.Status, To: status}
	}

	if extra != nil {
		extra.Apply(o)
	}
	o.ApplyStatus(status, s.now())
	o.Version++
	s.orders[id] = *o
	return o, nil
}

// Cancel moves a not-yet-shipped order to cancelled.
func (s *MemoryStore) Cancel(_ context.Context, id, reason string) (*entity.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	if !o.Status.Cancellable() {
		return nil, &CancelStateError{Status: o.Status}
	}

	o.CancellationReason = reason
	o.ApplyStatus(entity.StatusCancelled, s.now())
	o.Version++
	s.orders[id] = *o
	return o, nil
}

// BulkUpdate applies patches one by one; the first failure aborts the batch.
func (s *MemoryStore) BulkUpdate(ctx context.Context, patches []BulkPatch) error {
	for _, bp := range patches {
		if _, err := s.Update(ctx, bp.ID, bp.Patch, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) getLocked(id string) (*entity.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := o
	return &out, nil
}

func matchesFilter(o entity.Order, f Filter) bool {
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.SellerID != "" && o.SellerID != f.SellerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.PaymentStatus != "" && o.PaymentStatus != f.PaymentStatus {
		return false
	}
	if f.PaymentMethod != "" && o.PaymentMethod != f.PaymentMethod {
		return false
	}
	if f.CreatedFrom != nil && o.CreatedAt.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && o.CreatedAt.After(*f.CreatedTo) {
		return false
	}
	if f.MinTotal != nil && o.Total < *f.MinTotal {
		return false
	}
	if f.MaxTotal != nil && o.Total > *f.MaxTotal {
		return false
	}
	return true
}
