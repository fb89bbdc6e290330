// Package transport defines the request and response DTOs for the customers API.
package transport

import (
	"time"

	"voicecrm_backend/internal/customers/repository"
	"voicecrm_backend/internal/shared/pagination"
)

// CreateCustomerRequest is the payload for creating a customer.
type CreateCustomerRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	PhoneNumber string  `json:"phoneNumber" validate:"required,max=32"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

// UpdateCustomerRequest is the payload for overwriting a customer.
type UpdateCustomerRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	PhoneNumber string  `json:"phoneNumber" validate:"required,max=32"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Status      int     `json:"status" validate:"min=0,max=5"`
}

// SendEmailRequest is the payload for sending a message to a customer.
type SendEmailRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required,max=10000"`
}

// CustomerResponse is the customer representation returned by the API.
type CustomerResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phoneNumber"`
	Email       *string   `json:"email,omitempty"`
	Status      int       `json:"status"`
	StatusLabel string    `json:"statusLabel"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromCustomer maps a stored customer to its API representation.
func FromCustomer(c *repository.Customer) CustomerResponse {
	return CustomerResponse{
		ID:          c.ID,
		Name:        c.Name,
		PhoneNumber: c.PhoneNumber,
		Email:       c.Email,
		Status:      int(c.Status),
		StatusLabel: c.Status.String(),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// FromCustomerList maps a stored page to its API representation.
func FromCustomerList(page *pagination.PagedList[repository.Customer]) *pagination.PagedList[CustomerResponse] {
	items := make([]CustomerResponse, len(page.Items))
	for i := range page.Items {
		items[i] = FromCustomer(&page.Items[i])
	}
	return &pagination.PagedList[CustomerResponse]{
		Items:       items,
		TotalCount:  page.TotalCount,
		CurrentPage: page.CurrentPage,
		TotalPages:  page.TotalPages,
		PageSize:    page.PageSize,
	}
}
