package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/buddy-auth/access"
	"github.com/jrsteele09/buddy-auth/auth"
	"github.com/jrsteele09/buddy-auth/conversation"
	"github.com/jrsteele09/buddy-auth/internal/config"
	"github.com/jrsteele09/buddy-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	handler   http.Handler
	routes    []string
	config    config.Config
	auth      *auth.Service
	sessions  *sessions.Manager
	gate      *access.Gate
	processor *conversation.Processor
	logger    zerolog.Logger
	nowFunc   func() time.Time
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithNowFunc(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func New(cfg config.Config, authService *auth.Service, sessionManager *sessions.Manager, gate *access.Gate, options ...ServerOption) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is required")
	}
	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		auth:     authService,
		sessions: sessionManager,
		gate:     gate,
		logger:   zerolog.Nop(),
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	processor, err := conversation.NewProcessor(authService, sessionManager, gate, conversation.WithLogger(s.logger))
	if err != nil {
		return nil, errors.Wrap(err, "[server.New] failed to create conversation processor")
	}
	s.processor = processor

	s.initRoutes()
	s.handler = s.corsHandler(s.mux)
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// corsHandler applies the configured origin allow-list. Credentials are only
// allowed for explicit origins.
func (s *Server) corsHandler(h http.Handler) http.Handler {
	origins := s.config.GetAllowedOrigins()
	return cors.New(cors.Options{
		AllowedOrigins:   origins.List(),
		AllowedMethods:   s.config.GetAllowedMethods(),
		AllowedHeaders:   s.config.GetAllowedHeaders(),
		AllowCredentials: !origins.IsAllowedOrigin("*"),
		MaxAge:           86400,
	}).Handler(h)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = colourGray
	}
	s.logger.Debug().Msgf("[%s] %s", color+paddedMethod+colourReset, path)
}
