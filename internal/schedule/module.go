// Package schedule provides the availability bounded context: blocked slots
// and the checks the booking flow runs against them.
package schedule

import (
	apphttp "leadbook/internal/http"
	"leadbook/internal/schedule/handler"
	"leadbook/internal/schedule/repository"
	"leadbook/internal/schedule/service"
	"leadbook/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the schedule bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new schedule module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)

	return &Module{
		handler: handler.New(svc, val),
		Service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "schedule"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	blockedSlots := ctx.Protected.Group("/blocked-slots")
	m.handler.RegisterRoutes(blockedSlots)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
