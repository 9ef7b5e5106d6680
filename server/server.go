// Package server assembles samay's long-running components: the inbound
// HTTP API, the MQTT request subscriber, the scheduling daemon and the
// retention sweeper.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/samay/internal/profile"
	"github.com/hrygo/samay/server/internal/observability"
	"github.com/hrygo/samay/server/notify"
	apiv1 "github.com/hrygo/samay/server/router/api/v1"
	"github.com/hrygo/samay/server/scheduler/daemon"
	"github.com/hrygo/samay/server/scheduler/retention"
	"github.com/hrygo/samay/server/service/commitment"
	"github.com/hrygo/samay/store"
)

// recentNotifications is how many fired notifications /api/v1/notifications keeps.
const recentNotifications = 200

// Options tune NewServer.
type Options struct {
	// NoMQTT runs without a broker; notifications only reach the log and
	// the in-memory feed.
	NoMQTT bool
	Logger *slog.Logger
}

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Service *commitment.Service
	Daemon  *daemon.Daemon
	Memory  *notify.MemoryPublisher

	echoServer *echo.Echo
	publisher  *notify.Dispatcher
	mqttClient notify.Client
	subscriber *notify.Subscriber
	sweeper    *retention.Sweeper
	logger     *slog.Logger
}

// NewServer wires every component but starts nothing. It connects to the
// MQTT broker unless disabled.
func NewServer(ctx context.Context, p *profile.Profile, s *store.Store, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := observability.GlobalMetrics()

	srv := &Server{
		Profile: p,
		Store:   s,
		Memory:  notify.NewMemoryPublisher(recentNotifications, logger),
		logger:  logger,
	}
	publishers := []notify.Publisher{srv.Memory}

	if p.MQTT.Enabled && !opts.NoMQTT {
		client, err := notify.NewMQTTClient(ctx, p.MQTT, logger)
		if err != nil {
			return nil, err
		}
		srv.mqttClient = client
		mqttPublisher, err := notify.NewMQTTPublisher(client, p.MQTT, logger)
		if err != nil {
			notify.Disconnect(client)
			return nil, err
		}
		publishers = append(publishers, mqttPublisher)
	} else {
		logger.Info("mqtt disabled, notifications stay in process")
	}
	srv.publisher = notify.NewDispatcher(publishers...)

	srv.Daemon = daemon.New(s, srv.publisher, daemon.Config{
		Ceiling:        p.Daemon.Ceiling,
		BatchSize:      p.Daemon.BatchSize,
		BackoffMin:     p.Daemon.BackoffMin,
		BackoffMax:     p.Daemon.BackoffMax,
		PublishTimeout: p.MQTT.PublishTimeout,
	})
	srv.Daemon.SetLogger(logger.With(slog.String("component", "daemon")))
	srv.Daemon.SetMetrics(metrics)

	srv.Service = commitment.NewService(s, nil)
	srv.Service.SetLogger(logger)
	srv.Service.SetMetrics(metrics)
	srv.Service.SetWaker(srv.Daemon)

	if srv.mqttClient != nil {
		sub, err := notify.NewSubscriber(srv.mqttClient, srv.Service, p.MQTT, logger.With(slog.String("component", "subscriber")))
		if err != nil {
			notify.Disconnect(srv.mqttClient)
			return nil, err
		}
		srv.subscriber = sub
	}

	sweeper, err := retention.New(s, p.Retention, logger.With(slog.String("component", "retention")))
	if err != nil {
		return nil, err
	}
	sweeper.SetMetrics(metrics)
	srv.sweeper = sweeper

	srv.echoServer = newEcho(p, srv, logger)
	return srv, nil
}

func newEcho(p *profile.Profile, srv *Server, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	api := apiv1.NewAPIV1Service(p, srv.Service, srv.Daemon)
	api.Notifications = srv.Memory
	api.SetLogger(logger.With(slog.String("component", "http")))
	api.RegisterRoutes(e)
	return e
}

// Handler exposes the HTTP routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Address is the HTTP listen address.
func (s *Server) Address() string {
	return net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
}

// Run blocks until ctx is done or a component fails, then shuts everything
// down. It returns the first component error.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Daemon.Run(ctx)
	})
	g.Go(func() error {
		return s.sweeper.Run(ctx)
	})
	if s.subscriber != nil {
		g.Go(func() error {
			return s.subscriber.Run(ctx)
		})
	}
	g.Go(func() error {
		s.logger.Info("http server listening", slog.String("addr", s.Address()))
		if err := s.echoServer.Start(s.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echoServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	if closeErr := s.Close(); closeErr != nil {
		s.logger.Warn("failed to close publishers", slog.String("error", closeErr.Error()))
	}
	return err
}

// Close releases the bus connection. The store is owned by the caller.
func (s *Server) Close() error {
	err := s.publisher.Close()
	if s.mqttClient != nil {
		notify.Disconnect(s.mqttClient)
		s.mqttClient = nil
	}
	return err
}

// CLIContext tags ctx with a command-line request scope for userID.
func CLIContext(ctx context.Context, logger *slog.Logger, userID int32) context.Context {
	reqCtx := observability.NewRequestContext(logger, observability.SourceCLI, userID)
	return observability.WithRequestContext(ctx, reqCtx)
}

// String names the active components for the startup log.
func (s *Server) String() string {
	return fmt.Sprintf("samay(addr=%s mqtt=%t retention=%t)", s.Address(), s.mqttClient != nil, s.sweeper.Enabled())
}
