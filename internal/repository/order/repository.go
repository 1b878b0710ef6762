package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bazaarlabs/bazaar/internal/database"
	"github.com/bazaarlabs/bazaar/internal/entity"
)

var repoTracer = otel.Tracer("github.com/bazaarlabs/bazaar/repository/order")

// Repository encapsulates durable, race-safe access to orders. Every mutating
// operation runs as a single read-modify-write transaction so that concurrent
// writers cannot both commit against a stale read.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order with version 1 and a fresh daily order number.
// The daily sequence is counted inside the same transaction as the insert; the
// unique index on number turns a same-instant collision into a commit failure
// instead of a duplicate.
func (r *Repository) Create(ctx context.Context, o *entity.Order) (*entity.Order, error) {
	if o == nil {
		return nil, errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.user_id", o.UserID)))
	defer span.End()

	now := time.Now().UTC()
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

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		start, end := dayBounds(now)
		count, err := tx.NewSelect().
			Model((*entity.Order)(nil)).
			Where("created_at >= ? AND created_at < ?", start, end).
			Count(ctx)
		if err != nil {
			return err
		}
		o.Number = FormatNumber(now, count+1)

		_, err = tx.NewInsert().Model(o).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	return o, nil
}

// GetByID fetches an order by primary key, using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	o := new(entity.Order)
	err := r.reader.NewSelect().Model(o).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return o, nil
}

// GetByNumber resolves an order by its human-facing number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByNumber", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	o := new(entity.Order)
	err := r.reader.NewSelect().Model(o).Where("number = ?", number).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return o, nil
}

// TrackByNumber is the unauthenticated tracking lookup: both the number and the
// buyer email must match. A miss never reveals which of the two failed.
func (r *Repository) TrackByNumber(ctx context.Context, number, email string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.TrackByNumber")
	defer span.End()

	o := new(entity.Order)
	err := r.reader.NewSelect().Model(o).
		Where("number = ?", number).
		Where("user_email = ?", email).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return o, nil
}

// List returns orders matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter Filter, page Page) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	page = page.Normalize()
	var orders []entity.Order
	q := r.reader.NewSelect().Model(&orders)
	q = applyFilter(q, filter)
	err := q.Order("created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Count returns the number of orders matching the filter.
func (r *Repository) Count(ctx context.Context, filter Filter) (int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Count")
	defer span.End()

	q := r.reader.NewSelect().Model((*entity.Order)(nil))
	count, err := applyFilter(q, filter).Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, err
	}
	return count, nil
}

// Update applies a partial patch under the optimistic-lock contract: when
// expectedVersion is set the write only commits if the stored version still
// matches, otherwise a VersionConflictError is returned and nothing changes.
// Without expectedVersion the write is last-writer-wins but still increments
// the version by one.
func (r *Repository) Update(ctx context.Context, id string, patch Patch, expectedVersion *int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var updated *entity.Order
	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		o, err := lockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if expectedVersion != nil && o.Version != *expectedVersion {
			return &VersionConflictError{Expected: *expectedVersion, Actual: o.Version}
		}

		patch.Apply(o)
		o.Version++
		o.UpdatedAt = time.Now().UTC()

		if _, err := tx.NewUpdate().Model(o).WherePK().Exec(ctx); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		recordTxError(span, err)
		return nil, err
	}
	return updated, nil
}

// UpdateStatus transitions the order along the lifecycle graph, stamping the
// status milestone timestamp only on first entry, and merges any shipment
// fields supplied alongside the change.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status entity.Status, extra *Patch) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateStatus",
		trace.WithAttributes(attribute.String("order.id", id), attribute.String("order.status", string(status))))
	defer span.End()

	var updated *entity.Order
	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		o, err := lockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !o.Status.CanTransitionTo(status) {
			return &TransitionError{From: o.Status, To: status}
		}

		if extra != nil {
			extra.Apply(o)
		}
		o.ApplyStatus(status, time.Now().UTC())
		o.Version++

		if _, err := tx.NewUpdate().Model(o).WherePK().Exec(ctx); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		recordTxError(span, err)
		return nil, err
	}
	return updated, nil
}

// Cancel moves a not-yet-shipped order to cancelled and records the reason.
func (r *Repository) Cancel(ctx context.Context, id, reason string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Cancel", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var updated *entity.Order
	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		o, err := lockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if !o.Status.Cancellable() {
			return &CancelStateError{Status: o.Status}
		}

		o.CancellationReason = reason
		o.ApplyStatus(entity.StatusCancelled, time.Now().UTC())
		o.Version++

		if _, err := tx.NewUpdate().Model(o).WherePK().Exec(ctx); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		recordTxError(span, err)
		return nil, err
	}
	return updated, nil
}

// BulkUpdate applies independent patches as one batch. There is no
// cross-document atomicity and no version checking; the first failure aborts
// the remainder of the batch.
func (r *Repository) BulkUpdate(ctx context.Context, patches []BulkPatch) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.BulkUpdate", trace.WithAttributes(attribute.Int("order.count", len(patches))))
	defer span.End()

	for _, bp := range patches {
		if _, err := r.Update(ctx, bp.ID, bp.Patch, nil); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "bulk update aborted")
			return err
		}
	}
	return nil
}

func lockByID(ctx context.Context, tx bun.Tx, id string) (*entity.Order, error) {
	o := new(entity.Order)
	err := tx.NewSelect().Model(o).Where("id = ?", id).For("UPDATE").Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func applyFilter(q *bun.SelectQuery, f Filter) *bun.SelectQuery {
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.SellerID != "" {
		q = q.Where("seller_id = ?", f.SellerID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		q = q.Where("created_at <= ?", *f.CreatedTo)
	}
	if f.MinTotal != nil {
		q = q.Where("total >= ?", *f.MinTotal)
	}
	if f.MaxTotal != nil {
		q = q.Where("total <= ?", *f.MaxTotal)
	}
	return q
}

func recordTxError(span trace.Span, err error) {
	var vc *VersionConflictError
	var tr *TransitionError
	var cs *CancelStateError
	if errors.Is(err, ErrNotFound) || errors.As(err, &vc) || errors.As(err, &tr) || errors.As(err, &cs) {
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "transaction failed")
}
