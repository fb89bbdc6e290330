// Package repository provides customer data access. Each operation calls a
// server-side fn_* function so the database owns atomicity, including the
// compare-and-swap status update.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"voicecrm_backend/internal/customers/domain"
	"voicecrm_backend/internal/shared/pagination"
	"voicecrm_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const customerNotFoundMsg = "customer not found"

// Repository is the pgx-backed customer store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new customer repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Add inserts a customer with status New. Returns 0 when the phone number
// already exists (the function returns NULL on conflict).
func (r *Repository) Add(ctx context.Context, name, phone string, email *string) (int64, error) {
	var id *int64
	err := r.pool.QueryRow(ctx,
		`SELECT fn_add_customer($1, $2, $3)`,
		name, phone, email,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("fn_add_customer: %w", err)
	}
	if id == nil {
		return 0, nil
	}
	return *id, nil
}

// Update overwrites name, phone, email and status for the customer.
func (r *Repository) Update(ctx context.Context, customer *Customer) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT fn_update_customer($1, $2, $3, $4, $5)`,
		customer.ID, customer.Name, customer.PhoneNumber, customer.Email, int(customer.Status),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("fn_update_customer: %w", err)
	}
	return ok, nil
}

// Delete removes the customer. Returns false when bookings still reference
// it (deletion is rejected server-side, not an error).
func (r *Repository) Delete(ctx context.Context, customerID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT fn_delete_customer($1)`, customerID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("fn_delete_customer: %w", err)
	}
	return ok, nil
}

// GetByID fetches one customer or a typed not-found error.
func (r *Repository) GetByID(ctx context.Context, customerID int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, phone_number, email, status, created_at, updated_at
		   FROM fn_get_customer_by_id($1)`, customerID)

	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(customerNotFoundMsg)
		}
		return nil, fmt.Errorf("fn_get_customer_by_id: %w", err)
	}
	return customer, nil
}

// GetByPhone fetches a customer by its unique phone number. Returns
// (nil, nil) when no customer has the number, since callers use this as an
// existence check.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (*Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, phone_number, email, status, created_at, updated_at
		   FROM fn_get_customer_by_phone($1)`, phone)

	customer, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fn_get_customer_by_phone: %w", err)
	}
	return customer, nil
}

// GetByStatus lists all customers currently in the given status.
func (r *Repository) GetByStatus(ctx context.Context, status domain.Status) ([]Customer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, phone_number, email, status, created_at, updated_at
		   FROM fn_get_customers_by_status($1)`, int(status))
	if err != nil {
		return nil, fmt.Errorf("fn_get_customers_by_status: %w", err)
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		var status int
		if err := rows.Scan(&c.ID, &c.Name, &c.PhoneNumber, &c.Email, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.Status = domain.Status(status)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// UpdateStatusGuarded performs the atomic compare-and-swap on the status
// column. The server-side function updates the row only when the current
// status equals oldStatus and reports whether a row changed.
func (r *Repository) UpdateStatusGuarded(ctx context.Context, customerID int64, newStatus, oldStatus domain.Status) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT fn_update_customer_status($1, $2, $3)`,
		customerID, int(newStatus), int(oldStatus),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("fn_update_customer_status: %w", err)
	}
	return ok, nil
}

// ListPaginated returns one page of customers with the total count.
func (r *Repository) ListPaginated(ctx context.Context, params pagination.Params) (*pagination.PagedList[Customer], error) {
	params.Normalize()

	rows, err := r.pool.Query(ctx,
		`SELECT id, name, phone_number, email, status, created_at, updated_at, total_count
		   FROM fn_get_all_customers($1, $2, $3, $4)`,
		params.Page, params.PageSize, params.Search, params.Status)
	if err != nil {
		return nil, fmt.Errorf("fn_get_all_customers: %w", err)
	}
	defer rows.Close()

	var (
		customers  []Customer
		totalCount int64
	)
	for rows.Next() {
		var c Customer
		var status int
		if err := rows.Scan(&c.ID, &c.Name, &c.PhoneNumber, &c.Email, &status, &c.CreatedAt, &c.UpdatedAt, &totalCount); err != nil {
			return nil, fmt.Errorf("scan customer page: %w", err)
		}
		c.Status = domain.Status(status)
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return pagination.NewPagedList(customers, totalCount, params.Page, params.PageSize), nil
}

// Statistics returns the customer dashboard counters.
func (r *Repository) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	err := r.pool.QueryRow(ctx,
		`SELECT total_count, new_count, calling_count, booked_count
		   FROM fn_get_customer_statistics()`,
	).Scan(&stats.TotalCount, &stats.NewCount, &stats.CallingCount, &stats.BookedCount)
	if err != nil {
		return nil, fmt.Errorf("fn_get_customer_statistics: %w", err)
	}
	return &stats, nil
}

// BulkAdd submits all rows as one jsonb array; the server-side function
// skips phone-number conflicts and returns the number of inserted rows.
func (r *Repository) BulkAdd(ctx context.Context, importRows []ImportRow) (int64, error) {
	payload, err := json.Marshal(importRows)
	if err != nil {
		return 0, fmt.Errorf("marshal import rows: %w", err)
	}

	var inserted int64
	err = r.pool.QueryRow(ctx,
		`SELECT fn_bulk_add_customers($1::jsonb)`, payload,
	).Scan(&inserted)
	if err != nil {
		return 0, fmt.Errorf("fn_bulk_add_customers: %w", err)
	}
	return inserted, nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	var status int
	if err := row.Scan(&c.ID, &c.Name, &c.PhoneNumber, &c.Email, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = domain.Status(status)
	return &c, nil
}

var _ Store = (*Repository)(nil)
