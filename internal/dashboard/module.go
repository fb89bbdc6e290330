// Package dashboard serves the combined overview counters. Customer and
// booking statistics live in their own modules; the overview screen wants
// both in one round trip.
package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	brepo "voicecrm_backend/internal/bookings/repository"
	custrepo "voicecrm_backend/internal/customers/repository"
	apphttp "voicecrm_backend/internal/http"
	"voicecrm_backend/platform/httpkit"
)

// CustomerStatistics is the slice of the customer service the dashboard reads.
type CustomerStatistics interface {
	Statistics(ctx context.Context) (*custrepo.Statistics, error)
}

// BookingStatistics is the slice of the booking service the dashboard reads.
type BookingStatistics interface {
	Statistics(ctx context.Context) (*brepo.Statistics, error)
}

// Overview bundles both counter sets.
type Overview struct {
	Customers *custrepo.Statistics `json:"customers"`
	Bookings  *brepo.Statistics    `json:"bookings"`
}

// Module is the dashboard module implementing http.Module.
type Module struct {
	customers CustomerStatistics
	bookings  BookingStatistics
}

// NewModule creates the dashboard module on top of both statistics sources.
func NewModule(customers CustomerStatistics, bookings BookingStatistics) *Module {
	return &Module{customers: customers, bookings: bookings}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dashboard"
}

// RegisterRoutes mounts the overview endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/dashboard/statistics", m.statistics)
}

// statistics fetches both counter sets concurrently.
func (m *Module) statistics(c *gin.Context) {
	var overview Overview

	g, gctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		stats, err := m.customers.Statistics(gctx)
		overview.Customers = stats
		return err
	})
	g.Go(func() error {
		stats, err := m.bookings.Statistics(gctx)
		overview.Bookings = stats
		return err
	})
	if err := g.Wait(); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, overview)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
