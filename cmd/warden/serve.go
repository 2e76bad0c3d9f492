package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/langwarden/langwarden/automod/directory"
	"github.com/langwarden/langwarden/automod/engine"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	cli "github.com/urfave/cli/v2"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the engine behind an HTTP API for a game-server bridge",
	Flags: append(serverFlags(),
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3999",
			EnvVars: []string{"WARDEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "api-token",
			Usage:   "bearer token required on /v1 routes (none when unset)",
			EnvVars: []string{"WARDEN_API_TOKEN"},
		},
	),
	Action: func(cctx *cli.Context) error {
		srv, stopOTEL, err := setupDaemon(cctx)
		if err != nil {
			return err
		}
		defer stopOTEL()

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		api := NewAPI(srv, cctx.String("bind"), cctx.String("api-token"))
		runErr := api.Run()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			srv.logger.Error("shutdown", "err", err)
		}
		return runErr
	},
}

type API struct {
	srv   *Server
	echo  *echo.Echo
	httpd *http.Server
}

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func NewAPI(srv *Server, bind, token string) *API {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	api := &API{
		srv:  srv,
		echo: e,
	}
	api.httpd = &http.Server{
		Handler:        e,
		Addr:           bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(srv.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "warden",
		Registerer: srv.registerer,
	}))
	e.HTTPErrorHandler = api.errorHandler

	e.GET("/_health", api.HandleHealthCheck)

	v1 := e.Group("/v1")
	if token != "" {
		v1.Use(middleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
			return key == token, nil
		}))
	}
	v1.POST("/chat", api.HandleChat)
	v1.POST("/players/join", api.HandleJoin)
	v1.POST("/players/leave", api.HandleLeave)
	v1.POST("/players/list", api.HandleList)
	v1.POST("/round-over", api.HandleRoundOver)
	v1.GET("/players/:name/counter", api.HandleCounter)
	v1.POST("/players/:name/reset", api.HandleReset)
	v1.POST("/players/:name/punish", api.HandlePunish)
	return api
}

func (api *API) Run() error {
	slog.Info("starting server", "bind", api.httpd.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := api.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server shutting down unexpectedly", "err", err)
			errCh <- err
		}
	}()

	// Wait for a signal to exit.
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	for {
		select {
		case err := <-errCh:
			return err
		case <-hup:
			if err := api.srv.Reload(); err != nil {
				slog.Error("config reload failed, keeping current policy", "err", err)
			} else {
				slog.Info("config reloaded")
			}
		case sig := <-exitSignals:
			slog.Info("received OS exit signal", "signal", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := api.httpd.Shutdown(ctx); err != nil {
				slog.Error("HTTP server shutdown error", "err", err)
			}
			slog.Info("graceful shutdown complete")
			return nil
		}
	}
}

func (api *API) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	var errorMessage string
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		errorMessage = fmt.Sprintf("%s", he.Message)
	}
	if code >= 500 {
		slog.Warn("warden-http-internal-error", "err", err)
	}
	if !c.Response().Committed {
		c.JSON(code, GenericError{Error: http.StatusText(code), Message: errorMessage})
	}
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, GenericError{
		Error:   "BadRequest",
		Message: err.Error(),
	})
}

func (api *API) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": versioninfo.Short(),
		"online":  api.srv.engine.Online(),
	})
}

type ChatResponse struct {
	Command     bool   `json:"command"`
	Violation   bool   `json:"violation"`
	Whitelisted bool   `json:"whitelisted"`
	Phrase      string `json:"phrase,omitempty"`
	Section     string `json:"section,omitempty"`
	Action      string `json:"action,omitempty"`
	Next        string `json:"next,omitempty"`
	Counter     int    `json:"counter,omitempty"`
	Delegated   bool   `json:"delegated,omitempty"`
}

func (api *API) HandleChat(c echo.Context) error {
	var evt engine.ChatEvent
	if err := c.Bind(&evt); err != nil {
		return badRequest(c, err)
	}
	if evt.Speaker == "" {
		return badRequest(c, errors.New("speaker is required"))
	}
	res := api.srv.engine.ProcessChat(c.Request().Context(), evt)
	out := ChatResponse{
		Command:     res.Command,
		Violation:   res.Violation,
		Whitelisted: res.Whitelisted,
	}
	if res.Violation {
		out.Phrase = res.Match.Phrase
		out.Section = res.Match.Section
		out.Action = res.Decision.Action.String()
		out.Next = res.Decision.Next.String()
		out.Counter = res.Decision.Counter
		out.Delegated = res.Decision.Delegated
	}
	return c.JSON(http.StatusOK, out)
}

func (api *API) HandleJoin(c echo.Context) error {
	var p directory.Player
	if err := c.Bind(&p); err != nil {
		return badRequest(c, err)
	}
	if p.Name == "" {
		return badRequest(c, errors.New("name is required"))
	}
	api.srv.engine.PlayerJoined(c.Request().Context(), p)
	return c.NoContent(http.StatusNoContent)
}

func (api *API) HandleLeave(c echo.Context) error {
	var p directory.Player
	if err := c.Bind(&p); err != nil {
		return badRequest(c, err)
	}
	api.srv.engine.PlayerLeft(c.Request().Context(), p.Name)
	return c.NoContent(http.StatusNoContent)
}

func (api *API) HandleList(c echo.Context) error {
	var players []directory.Player
	if err := c.Bind(&players); err != nil {
		return badRequest(c, err)
	}
	api.srv.engine.PlayerList(c.Request().Context(), players)
	return c.NoContent(http.StatusNoContent)
}

func (api *API) HandleRoundOver(c echo.Context) error {
	api.srv.engine.RoundOver(c.Request().Context())
	return c.NoContent(http.StatusNoContent)
}

func (api *API) HandleCounter(c echo.Context) error {
	name := c.Param("name")
	return c.JSON(http.StatusOK, map[string]any{
		"name":    name,
		"counter": api.srv.engine.Counter(name),
	})
}

type PunishRequest struct {
	StableID string `json:"stable_id,omitempty"`
	Quote    string `json:"quote,omitempty"`
}

func (api *API) HandleReset(c echo.Context) error {
	var req PunishRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	api.srv.engine.ResetPlayer(c.Request().Context(), c.Param("name"), req.StableID)
	return c.NoContent(http.StatusNoContent)
}

func (api *API) HandlePunish(c echo.Context) error {
	var req PunishRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	d := api.srv.engine.Punish(c.Request().Context(), c.Param("name"), req.StableID, req.Quote)
	return c.JSON(http.StatusOK, map[string]any{
		"action":    d.Action.String(),
		"next":      d.Next.String(),
		"counter":   d.Counter,
		"delegated": d.Delegated,
	})
}
