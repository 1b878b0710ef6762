package order

import (
	"context"

	"github.com/bazaarlabs/bazaar/internal/entity"
	repo "github.com/bazaarlabs/bazaar/internal/repository/order"
)

// Store is the persistence contract the policy engine drives. The
// database-backed repository and the in-memory store both satisfy it.
type Store interface {
	Create(ctx context.Context, o *entity.Order) (*entity.Order, error)
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)
	TrackByNumber(ctx context.Context, number, email string) (*entity.Order, error)
	List(ctx context.Context, filter repo.Filter, page repo.Page) ([]entity.Order, error)
	Count(ctx context.Context, filter repo.Filter) (int, error)
	Update(ctx context.Context, id string, patch repo.Patch, expectedVersion *int64) (*entity.Order, error)
	UpdateStatus(ctx context.Context, id string, status entity.Status, extra *repo.Patch) (*entity.Order, error)
	Cancel(ctx context.Context, id, reason string) (*entity.Order, error)
	BulkUpdate(ctx context.Context, patches []repo.BulkPatch) error
}

var (
	_ Store = (*repo.Repository)(nil)
	_ Store = (*repo.MemoryStore)(nil)
)
