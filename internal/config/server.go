package config

import (
	"ProctorGolang/database"
	proctoringHandler "ProctorGolang/internal/api/proctoring/handler"
	proctoringRepository "ProctorGolang/internal/api/proctoring/repository"
	proctoringService "ProctorGolang/internal/api/proctoring/service"
	"ProctorGolang/internal/middleware"
	"ProctorGolang/pkg/redis"
	"ProctorGolang/pkg/risk"
	"ProctorGolang/pkg/s3"
	"ProctorGolang/pkg/utils"
	"ProctorGolang/pkg/vision"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// defaultPort is where the browser client expects the API.
const defaultPort = "8000"

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	s3Client    s3.ItfS3
	detector    vision.Detector
	scorer      *risk.Scorer
}

type handler interface {
	Start(srv fiber.Router)
}

// rootHandler is implemented by handlers that also serve unversioned paths.
type rootHandler interface {
	StartRoot(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if server.middleware == nil {
		server.middleware = middleware.New(server.log)
	}
	if server.validator == nil {
		server.validator = NewValidator()
	}
	if server.utils == nil {
		server.utils = utils.New()
	}
	if server.scorer == nil {
		server.scorer = risk.NewScorer(risk.DefaultWeights(), server.log)
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := database.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

// WithDB uses an already opened database.
func WithDB(db *sqlx.DB) ServerOption {
	return func(s *Server) error {
		s.db = db
		return nil
	}
}

// WithRedisServer takes a possibly nil client; nil disables event fan-out.
func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithS3Client enables evidence snapshots when EVIDENCE_BUCKET is set.
func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithDetector(detector vision.Detector) ServerOption {
	return func(s *Server) error {
		s.detector = detector
		return nil
	}
}

// WithDetectorFromEnv builds the detector selected by DETECTOR_BACKEND.
func WithDetectorFromEnv() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before detector")
		}
		if s.utils == nil {
			s.utils = utils.New()
		}
		detector, err := NewDetector(s.utils, s.log)
		if err != nil {
			s.log.Errorf("Failed to create detector: %v", err)
			return fmt.Errorf("failed to create detector: %w", err)
		}
		s.detector = detector
		return nil
	}
}

// WithRiskWeights loads RISK_WEIGHTS_FILE; the baseline table applies when it
// is unset or missing.
func WithRiskWeights() ServerOption {
	return func(s *Server) error {
		weights, err := risk.LoadWeights(os.Getenv("RISK_WEIGHTS_FILE"))
		if err != nil {
			return fmt.Errorf("failed to load risk weights: %w", err)
		}
		s.scorer = risk.NewScorer(weights, s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Proctoring Domain
	proctoringRepo := proctoringRepository.New(s.db, s.log)
	proctoringServices := proctoringService.New(
		s.log,
		proctoringRepo,
		s.detector,
		vision.NewGazeEstimator(vision.DefaultGazeConfig()),
		s.scorer,
		s.redisServer,
		s.s3Client,
		s.utils,
	)
	proctoringHandlers := proctoringHandler.New(s.log, s.validator, s.middleware, proctoringServices, s.utils, s.redisServer)

	s.handlers = append(s.handlers, proctoringHandlers)
}

// App exposes the engine with every route mounted, for tests.
func (s *Server) App() *fiber.App {
	s.mount()
	return s.engine
}

func (s *Server) mount() {
	s.engine.Use(s.middleware.NewCORSMiddleware())
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()

	router := s.engine.Group("/api/v1")
	for _, h := range s.handlers {
		h.Start(router)
		if rh, ok := h.(rootHandler); ok {
			rh.StartRoot(s.engine)
		}
	}
}

func (s *Server) Run() error {
	s.mount()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = defaultPort
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops the HTTP server and releases the detector, redis and the
// database, in that order.
func (s *Server) Shutdown(timeout time.Duration) error {
	var errs []error

	if err := s.engine.ShutdownWithTimeout(timeout); err != nil {
		errs = append(errs, fmt.Errorf("fiber: %w", err))
	}
	if s.detector != nil {
		if err := s.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("detector: %w", err))
		}
	}
	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	return errors.Join(errs...)
}

func (s *Server) setupHealthCheck() {
	health := func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"status": "ok",
		})
	}
	s.engine.Get("/health", health)
	s.engine.Get("/", health)
}
