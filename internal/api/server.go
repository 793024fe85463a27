// Package api serves the game over HTTP: GraphQL, uploads and a
// notification stream.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/graph-gophers/graphql-go/relay"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"cropCircle/internal/content"
	"cropCircle/internal/game"
	"cropCircle/internal/notify"
)

// Options configures the HTTP server.
type Options struct {
	Uploader  content.Uploader
	Hub       *notify.Hub
	Gateway   string
	Auth      AuthConfig
	Logger    *zap.Logger
	Heartbeat time.Duration
}

// Server wires the game service into an echo instance.
type Server struct {
	echo *echo.Echo
	svc  game.Service
	opts Options
	log  *zap.Logger
}

func NewServer(svc game.Service, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}
	schema, err := NewSchema(svc, opts.Gateway)
	if err != nil {
		return nil, fmt.Errorf("parse graphql schema: %w", err)
	}

	s := &Server{echo: echo.New(), svc: svc, opts: opts, log: opts.Logger}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(s.log)
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			s.log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(echoMw.BodyLimit("2M"))
	e.Use(Auth(opts.Auth))

	e.GET("/healthz", s.Health)
	e.POST("/graphql", echo.WrapHandler(&relay.Handler{Schema: schema}))
	e.POST("/upload", s.Upload)
	e.GET("/notifications", s.Notifications)
	return s, nil
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "cropcircle"})
}

// Upload stores the multipart "file" field and returns its ref.
func (s *Server) Upload(c echo.Context) error {
	if s.opts.Uploader == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "uploads are not configured")
	}
	if WalletFrom(c.Request().Context()) == "" {
		return fmt.Errorf("wallet address required: %w", game.ErrUnauthorized)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field \"file\" is required")
	}
	if fh.Size > content.MaxSize {
		return fmt.Errorf("%d bytes: %w", fh.Size, content.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, content.MaxSize+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	mtype, err := content.Validate(data)
	if err != nil {
		return err
	}
	ref, err := s.opts.Uploader.Upload(c.Request().Context(), fh.Filename, data)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"ref":          ref,
		"url":          content.GatewayURL(s.opts.Gateway, ref),
		"content_type": mtype,
	})
}

// Notifications streams hub notifications as server-sent events. The
// optional "event" query parameter filters by event id.
func (s *Server) Notifications(c echo.Context) error {
	if s.opts.Hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notifications are not configured")
	}

	sub := s.opts.Hub.Subscribe(game.NormalizeID(c.QueryParam("event")))
	defer s.opts.Hub.Unsubscribe(sub)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ctx := c.Request().Context()
	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case n, ok := <-sub.C():
			if !ok {
				return nil
			}
			data, err := json.Marshal(n)
			if err != nil {
				s.log.Warn("marshal notification failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", n.ID, n.Kind, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
