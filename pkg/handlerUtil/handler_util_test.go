package handlerUtil

import (
	"ProctorGolang/pkg/response"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func TestHandle(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantTrace  bool
	}{
		{"client error", response.NewError(400, "image is required"), 400, "BAD_REQUEST", false},
		{"not found", response.NewError(404, "event not found"), 404, "NOT_FOUND", false},
		{"unavailable", response.NewError(503, "detector unavailable"), 503, "SERVICE_UNAVAILABLE", false},
		{"unexpected", errors.New("boom"), 500, "INTERNAL_ERROR", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				return h.Handle(c, "req-1", tt.err, c.Path(), "test")
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body ErrorResponse
			raw, _ := io.ReadAll(resp.Body)
			if err := jsoniter.Unmarshal(raw, &body); err != nil {
				t.Fatalf("body %s: %v", raw, err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if (body.TraceID != "") != tt.wantTrace {
				t.Errorf("trace id = %q, want present %v", body.TraceID, tt.wantTrace)
			}
		})
	}
}

func TestFiberErrorHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)

	app := fiber.New(fiber.Config{ErrorHandler: h.FiberErrorHandler("X-Request-ID")})
	app.Get("/upgrade", func(c *fiber.Ctx) error { return fiber.ErrUpgradeRequired })
	app.Get("/domain", func(c *fiber.Ctx) error { return response.NewError(404, "event not found") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })

	tests := []struct {
		path       string
		wantStatus int
		wantCode   string
	}{
		{"/upgrade", 426, "UPGRADE_REQUIRED"},
		{"/domain", 404, "NOT_FOUND"},
		{"/boom", 500, "INTERNAL_ERROR"},
		{"/missing", 404, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			var body ErrorResponse
			raw, _ := io.ReadAll(resp.Body)
			if err := jsoniter.Unmarshal(raw, &body); err != nil {
				t.Fatalf("body %s: %v", raw, err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
		})
	}
}
