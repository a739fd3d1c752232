// Package messaging provides the outbound messaging bounded context:
// confirmation dispatch and template administration.
package messaging

import (
	"leadbook/internal/events"
	apphttp "leadbook/internal/http"
	"leadbook/internal/messaging/dispatch"
	"leadbook/internal/messaging/gateway"
	"leadbook/internal/messaging/handler"
	"leadbook/internal/messaging/repository"
	"leadbook/platform/config"
	"leadbook/platform/logger"
	"leadbook/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the messaging bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	Dispatcher *dispatch.Dispatcher
}

// NewModule creates a new messaging module. Channels left unconfigured are
// wired as nil senders; dispatch reports them as failed channels.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)

	var email gateway.EmailSender
	if cfg.GetEmailEnabled() {
		email = gateway.NewSMTPSender(cfg)
	}
	var sms gateway.SMSSender
	if client := gateway.NewSMSClient(cfg, log); client != nil {
		sms = client
	}

	dispatcher := dispatch.New(repo, email, sms, eventBus, log, cfg.GetDispatchTimeout())

	return &Module{
		handler:    handler.New(repo, val),
		Dispatcher: dispatcher,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "messaging"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
