// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"leadbook/internal/events"
	apphttp "leadbook/internal/http"
	"leadbook/internal/leads/dedup"
	"leadbook/internal/leads/handler"
	"leadbook/internal/leads/ports"
	"leadbook/internal/leads/repository"
	"leadbook/internal/leads/service"
	"leadbook/platform/config"
	"leadbook/platform/logger"
	"leadbook/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	guard   *dedup.Guard
}

// NewModule creates and initializes the leads module. The slot checker and
// authorizer come from their owning modules; the confirmation dispatcher and
// reminder scheduler are wired afterwards via the service setters.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	val *validator.Validator,
	cfg *config.Config,
	log *logger.Logger,
	slots ports.SlotChecker,
	authz ports.Authorizer,
) *Module {
	repo := repository.New(pool)
	history := repository.NewHistory(repo)

	guard := dedup.New(
		dedup.WithWindow(cfg.GetDedupWindow()),
		dedup.WithMaxAge(cfg.GetDedupMaxAge()),
		dedup.WithSweepInterval(cfg.GetDedupSweepInterval()),
	)

	svc := service.New(repo, history, guard, slots, authz, eventBus, log, cfg.DefaultRegion)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		guard:   guard,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lifecycle service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RunSweeper runs the duplicate guard's background sweep until ctx is
// cancelled. The composition root owns the goroutine.
func (m *Module) RunSweeper(ctx context.Context) {
	m.guard.Run(ctx)
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
