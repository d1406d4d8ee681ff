package config

import (
	"ProctorGolang/internal/middleware"
	"ProctorGolang/pkg/handlerUtil"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// bodyLimit bounds base64 and multipart frame uploads.
const bodyLimit = 10 * 1024 * 1024

func NewFiber(logger *logrus.Logger) *fiber.App {
	errorHandler := handlerUtil.New(logger)

	app := fiber.New(
		fiber.Config{
			AppName:           "Proctor Backend",
			BodyLimit:         bodyLimit,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: os.Getenv("APP_ENV") == "development",
			ErrorHandler:      errorHandler.FiberErrorHandler(middleware.RequestIDKey),
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
		})

	return app
}
