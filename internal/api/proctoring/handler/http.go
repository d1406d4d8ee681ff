package proctoringHandler

import (
	proctoringService "ProctorGolang/internal/api/proctoring/service"
	"ProctorGolang/internal/middleware"
	"ProctorGolang/pkg/redis"
	"ProctorGolang/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type ProctoringHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	proctoringService proctoringService.IProctoringService
	utils             utils.IUtils
	feed              redis.IRedis
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ps proctoringService.IProctoringService,
	utils utils.IUtils,
	feed redis.IRedis,
) *ProctoringHandler {
	return &ProctoringHandler{
		proctoringService: ps,
		log:               log,
		validator:         validator,
		middleware:        middleware,
		utils:             utils,
		feed:              feed,
	}
}

func (h *ProctoringHandler) requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *ProctoringHandler) Start(srv fiber.Router) {
	proctor := srv.Group("/proctor")

	proctor.Use("/ws", h.requireUpgrade)
	proctor.Get("/ws", websocket.New(h.handleEventWebSocket))

	proctor.Use("/frames/ws", h.requireUpgrade)
	proctor.Get("/frames/ws", websocket.New(h.handleFrameWebSocket))

	if h.feed != nil {
		proctor.Use("/live/ws", h.requireUpgrade)
		proctor.Get("/live/ws", websocket.New(h.handleLiveWebSocket))
	}

	proctor.Get("/events", h.middleware.NewRateLimiter, h.ListEvents)
	proctor.Get("/events/:id", h.middleware.NewRateLimiter, h.GetEvent)
	proctor.Post("/detect-face", h.middleware.NewRateLimiter, h.DetectFace)
}

// StartRoot mounts the unversioned paths the browser client calls:
// /ws/proctor for events and /detect_face for frames.
func (h *ProctoringHandler) StartRoot(srv fiber.Router) {
	srv.Use("/ws/proctor", h.requireUpgrade)
	srv.Get("/ws/proctor", websocket.New(h.handleEventWebSocket))

	srv.Post("/detect_face", h.middleware.NewRateLimiter, h.DetectFace)
}
