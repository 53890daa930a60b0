// Package gateway exposes the HTTP surface: synchronous chat, WebSocket
// chat, health, status, session administration, and Prometheus metrics.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/foundryhq/foundry/internal/channel"
	"github.com/foundryhq/foundry/internal/core"
	"github.com/foundryhq/foundry/internal/router"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	httpCh *httpChannel
	wsCh   *wsChannel

	// Resolved lazily at Start() via the service registry.
	router *router.Router
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.httpCh = newHTTPChannel(g.logger, g.config.ReplyTimeout)
	g.wsCh = newWSChannel(g.logger)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves the router from the
// service registry, wires the gateway channels, and starts the HTTP
// server.
func (g *Gateway) Start() error {
	svc, ok := g.appCtx.Service("router")
	if !ok {
		return errors.New("gateway: router service not registered")
	}
	rt, ok := svc.(*router.Router)
	if !ok {
		return errors.New("gateway: router service has unexpected type")
	}
	g.router = rt

	g.httpCh.SetInbox(rt.Submit)
	g.wsCh.SetInbox(rt.Submit)

	if svc, ok := g.appCtx.Service("channel.dispatcher"); ok {
		if d, ok := svc.(*channel.Dispatcher); ok {
			if err := d.Register(HTTPChannelName, g.httpCh); err != nil {
				return err
			}
			if err := d.Register(WSChannelName, g.wsCh); err != nil {
				return err
			}
		}
	}

	g.startedAt = time.Now()
	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured
// timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	g.wsCh.closeAll()

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
