// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr matches the assistant client's default endpoint.
	DefaultAddr = "127.0.0.1:8484"

	// ChatPath is the chat turn route.
	ChatPath = "/api/v1/ai/chat"

	// DefaultCacheTTL is how long search results stay cached.
	DefaultCacheTTL = 5 * time.Minute

	// SearchFailedMessage is returned when the index cannot be queried.
	SearchFailedMessage = "Search is unavailable right now"
)

// Rejection texts shown to the person typing. Field and rule names go to the
// log only.
const (
	RejectBadBody        = "The request could not be read"
	RejectEmptyMessage   = "Please type a question"
	RejectMessageTooLong = "The question is too long"
	RejectHistoryTooLong = "The conversation is too long, start a new one"
	RejectHistoryInvalid = "The conversation history could not be read"
	RejectInvalidRequest = "The request could not be processed"
)

// ============================================================================
// CONFIG
// ============================================================================

// Config configures the dev backend.
type Config struct {
	Addr string

	// JWTSecret signs bearer tokens. Empty disables authentication.
	JWTSecret string

	CacheTTL time.Duration

	// Latency delays every chat reply, to exercise client spinners and
	// timeouts.
	Latency time.Duration
}

// Stats are request counters.
type Stats struct {
	ChatRequests int64
	CacheHits    int64
	Rejected     int64
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the dev chat backend.
type Server struct {
	app      *fiber.App
	cfg      Config
	store    *Store
	cache    *cache.Cache
	validate *validator.Validate
	logger   *zap.Logger

	chatRequests atomic.Int64
	cacheHits    atomic.Int64
	rejected     atomic.Int64
}

// New builds the server and its routes.
func New(cfg Config, store *Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		cache:    cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("devserver"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "gazette-assist dev backend",
		DisableStartupMessage: true,
		BodyLimit:             1 * 1024 * 1024,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/healthz", s.handleHealth)

	if cfg.JWTSecret == "" {
		s.logger.Warn("authentication disabled: no jwt secret configured")
		s.app.Post(ChatPath, s.handleChat)
	} else {
		s.app.Post(ChatPath, jwtMiddleware(cfg.JWTSecret), s.handleChat)
	}

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Stats returns a snapshot of the request counters.
func (s *Server) Stats() Stats {
	return Stats{
		ChatRequests: s.chatRequests.Load(),
		CacheHits:    s.cacheHits.Load(),
		Rejected:     s.rejected.Load(),
	}
}

// Listen serves until Shutdown.
func (s *Server) Listen() error {
	s.logger.Info("dev backend listening", zap.String("addr", s.cfg.Addr), zap.String("chat", ChatPath))
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(ctx *fiber.Ctx) error {
	n, err := s.store.Count(ctx.UserContext())
	if err != nil {
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"status": "ok", "notices": n})
}

func (s *Server) handleChat(ctx *fiber.Ctx) error {
	s.chatRequests.Add(1)

	var req aiclient.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return s.reject(ctx, RejectBadBody, err)
	}
	if err := s.validate.Struct(req); err != nil {
		return s.reject(ctx, validationMessage(err), err)
	}

	if s.cfg.Latency > 0 {
		select {
		case <-time.After(s.cfg.Latency):
		case <-ctx.UserContext().Done():
			return ctx.UserContext().Err()
		}
	}

	records, err := s.search(ctx.UserContext(), ParseQuery(req.Message))
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		return ctx.JSON(aiclient.ChatResponse{Success: false, Error: SearchFailedMessage})
	}

	return ctx.JSON(aiclient.ChatResponse{
		Success: true,
		Reply:   Reply(len(records)),
		Results: records,
	})
}

// search answers q from the cache or the store. The returned slice is never
// nil, so an empty answer clears the client's results.
func (s *Server) search(ctx context.Context, q Query) ([]model.ResultRecord, error) {
	key := q.Key()
	if cached, ok := s.cache.Get(key); ok {
		s.cacheHits.Add(1)
		return cached.([]model.ResultRecord), nil
	}

	notices, err := s.store.Search(ctx, q, DefaultSearchLimit)
	if err != nil {
		return nil, err
	}
	records := make([]model.ResultRecord, 0, len(notices))
	for _, n := range notices {
		records = append(records, n.Record())
	}

	s.cache.Set(key, records, cache.DefaultExpiration)
	s.logger.Debug("search",
		zap.Strings("types", q.Types),
		zap.Strings("terms", q.Terms),
		zap.Int("hits", len(records)))
	return records, nil
}

// Reply is the assistant text for a search with n hits.
func Reply(n int) string {
	return fmt.Sprintf("Found %d %s", n, util.Plural(n, "entry", "entries"))
}

func (s *Server) reject(ctx *fiber.Ctx, msg string, cause error) error {
	s.rejected.Add(1)
	fields := []zap.Field{zap.String("reason", msg), zap.Error(cause)}
	var verrs validator.ValidationErrors
	if errors.As(cause, &verrs) && len(verrs) > 0 {
		fields = append(fields,
			zap.String("field", verrs[0].Namespace()),
			zap.String("rule", verrs[0].Tag()))
	}
	s.logger.Info("chat request rejected", fields...)
	return ctx.Status(fiber.StatusBadRequest).JSON(aiclient.ChatResponse{Success: false, Error: msg})
}

func (s *Server) handleError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", ctx.Path()), zap.Error(err))
	}
	return ctx.Status(code).JSON(fiber.Map{"success": false, "error": util.FirstLine(err.Error())})
}

func (s *Server) requestLogger(ctx *fiber.Ctx) error {
	start := time.Now()
	err := ctx.Next()
	s.logger.Debug("request",
		zap.String("method", ctx.Method()),
		zap.String("path", ctx.Path()),
		zap.Int("status", ctx.Response().StatusCode()),
		zap.Duration("elapsed", time.Since(start)))
	return err
}

// validationMessage turns the first failed rule into a plain sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return RejectInvalidRequest
	}
	fe := verrs[0]
	switch fe.StructNamespace() {
	case "ChatRequest.Message":
		if fe.Tag() == "required" {
			return RejectEmptyMessage
		}
		return RejectMessageTooLong
	case "ChatRequest.History":
		return RejectHistoryTooLong
	}
	if strings.HasPrefix(fe.StructNamespace(), "ChatRequest.History[") {
		return RejectHistoryInvalid
	}
	return RejectInvalidRequest
}
