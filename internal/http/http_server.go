package http

// this is the entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	auth2 "gitlab.com/resultrelay.net/internal/core/services/auth"
	"gitlab.com/resultrelay.net/internal/core/services/result"
	"gitlab.com/resultrelay.net/internal/handlers"
	"gitlab.com/resultrelay.net/internal/handlers/auth"
	"gitlab.com/resultrelay.net/internal/handlers/jobs"
	"gitlab.com/resultrelay.net/internal/handlers/results"
	"gitlab.com/resultrelay.net/internal/ws"
)

type ServiceProvider struct {
	resultService result.IResultService
	verifier      results.CallbackVerifier
	jobPort       secondary.JobPort
	tokens        secondary.TokenVerifier
	wsHandler     *ws.Handler
	authHandler   *auth.Handler

	ggAuth    auth2.IAuthService
	localAuth auth2.IAuthService
}

func NewServiceProvider(
	resultService result.IResultService,
	verifier results.CallbackVerifier,
	jobPort secondary.JobPort,
	tokens secondary.TokenVerifier,
	wsHandler *ws.Handler,
	authHandler *auth.Handler,
	ggAuth auth2.IAuthService,
	localAuth auth2.IAuthService,
) *ServiceProvider {
	return &ServiceProvider{
		resultService: resultService,
		verifier:      verifier,
		jobPort:       jobPort,
		tokens:        tokens,
		wsHandler:     wsHandler,
		authHandler:   authHandler,
		ggAuth:        ggAuth,
		localAuth:     localAuth,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	r := mux.NewRouter()

	results.
		NewResultHandler(s.ServiceProvider.resultService, s.ServiceProvider.verifier, s.logger).
		RegisterRoutes(r)

	mw := handlers.New(s.ServiceProvider.tokens)
	jobs.NewJobHandler(s.ServiceProvider.jobPort, s.logger).RegisterRoutes(r, mw)

	s.ServiceProvider.wsHandler.RegisterRoutes(r)

	if s.ServiceProvider.authHandler != nil {
		s.ServiceProvider.authHandler.RegisterRoutes(r, &auth.ServiceDependencies{
			GGAuthService:    s.ServiceProvider.ggAuth,
			LocalAuthService: s.ServiceProvider.localAuth,
		})
	}

	s.router = r
	return nil
}

// Router exposes the assembled routes, used by tests
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) Start(ctx context.Context) {
	// Write timeout stays unset: registered websocket connections are
	// long-lived and must not be cut by the http server.
	s.srv = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
	}
}
