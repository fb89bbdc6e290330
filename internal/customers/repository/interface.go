package repository

import (
	"context"
	"time"

	"voicecrm_backend/internal/customers/domain"
	"voicecrm_backend/internal/shared/pagination"
)

// Customer is the customer database model.
type Customer struct {
	ID          int64         `db:"id"`
	Name        string        `db:"name"`
	PhoneNumber string        `db:"phone_number"`
	Email       *string       `db:"email"`
	Status      domain.Status `db:"status"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

// Statistics holds the dashboard counters for customers.
type Statistics struct {
	TotalCount   int64 `json:"totalCount"`
	NewCount     int64 `json:"newCount"`
	CallingCount int64 `json:"callingCount"`
	BookedCount  int64 `json:"bookedCount"`
}

// ImportRow is one validated row submitted to the bulk insert.
type ImportRow struct {
	Name        string  `json:"name"`
	PhoneNumber string  `json:"phone_number"`
	Email       *string `json:"email"`
}

// Store is the customer data-access contract. Every call maps to one
// server-side function and is atomic; in particular UpdateStatusGuarded is
// the single compare-and-swap primitive all status writes go through.
type Store interface {
	Add(ctx context.Context, name, phone string, email *string) (int64, error)
	Update(ctx context.Context, customer *Customer) (bool, error)
	Delete(ctx context.Context, customerID int64) (bool, error)
	GetByID(ctx context.Context, customerID int64) (*Customer, error)
	GetByPhone(ctx context.Context, phone string) (*Customer, error)
	GetByStatus(ctx context.Context, status domain.Status) ([]Customer, error)

	// UpdateStatusGuarded atomically sets the status to newStatus only if
	// the stored status still equals oldStatus. Returns false when the
	// guard fails (someone else changed it first).
	UpdateStatusGuarded(ctx context.Context, customerID int64, newStatus, oldStatus domain.Status) (bool, error)

	ListPaginated(ctx context.Context, params pagination.Params) (*pagination.PagedList[Customer], error)
	Statistics(ctx context.Context) (*Statistics, error)

	// BulkAdd inserts the rows in one call, skipping phone-number
	// conflicts, and returns how many rows were actually inserted.
	BulkAdd(ctx context.Context, rows []ImportRow) (int64, error)
}
