package middleware

import (
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func TestRequestIDMiddleware(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := New(logger)

	app := fiber.New()
	app.Use(m.NewRequestIDMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(m.GetRequestID(c))
	})

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"issued", "", false},
		{"propagated", "abc-123", true},
		{"too long", strings.Repeat("x", 65), false},
		{"max length", strings.Repeat("x", 64), true},
		{"spaces", "abc 123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDKey, tt.header)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			body, _ := io.ReadAll(resp.Body)
			got := string(body)

			if got == "" || got == "unknown" {
				t.Fatalf("request id = %q", got)
			}
			if (got == tt.header) != tt.keep {
				t.Errorf("request id = %q, header %q, keep %v", got, tt.header, tt.keep)
			}
			if resp.Header.Get(RequestIDKey) != got {
				t.Errorf("response header = %q, want %q", resp.Header.Get(RequestIDKey), got)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	m := &middleware{
		rateLimitter: newRateLimiter(rate.Limit(0.001), 2),
		log:          logger,
	}

	app := fiber.New()
	app.Get("/", m.NewRateLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	want := []int{200, 200, 429}
	for i, status := range want {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != status {
			t.Errorf("request %d status = %d, want %d", i, resp.StatusCode, status)
		}
		if status == 429 && resp.Header.Get("Retry-After") == "" {
			t.Error("missing Retry-After header")
		}
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r := newRateLimiter(rate.Limit(1), 1)
	r.now = func() time.Time { return now }

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		if ok, _ := r.reserve(ip); !ok {
			t.Fatalf("first request from %s rejected", ip)
		}
	}
	if ok, wait := r.reserve("10.0.0.1"); ok || wait != time.Second {
		t.Fatalf("second request = (%v, %v), want (false, 1s)", ok, wait)
	}

	now = now.Add(idleTTL + sweepInterval)
	if ok, _ := r.reserve("10.0.0.3"); !ok {
		t.Fatal("request from new ip rejected")
	}
	if got := r.size(); got != 1 {
		t.Errorf("buckets after sweep = %d, want 1", got)
	}
}

func TestSanitizeRequestBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"image elided", "application/json", `{"image":"aGVsbG8="}`, `{"image":"[elided 8 chars]"}`},
		{"data url elided", "application/json", `{"frame":"data:image/png;base64,AAAA"}`, `{"frame":"[elided 26 chars]"}`},
		{"small kept", "application/json", `{"type":"tab_switch"}`, `{"type":"tab_switch"}`},
		{"multipart", "multipart/form-data; boundary=x", `--x`, "[multipart body]"},
		{"not json", "text/plain", `hello`, "[non-JSON body]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeRequestBody(tt.contentType, []byte(tt.body)); got != tt.want {
				t.Errorf("sanitizeRequestBody() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEnvFloat(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	if got := envFloat("RATE_LIMIT_RPS", 50); got != 2.5 {
		t.Errorf("envFloat() = %v, want 2.5", got)
	}
	t.Setenv("RATE_LIMIT_RPS", "nope")
	if got := envFloat("RATE_LIMIT_RPS", 50); got != 50 {
		t.Errorf("envFloat() = %v, want default", got)
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		origin  string
		wantHdr string
	}{
		{name: "any origin by default", env: "", origin: "http://localhost:5173", wantHdr: "*"},
		{name: "listed origin", env: "http://exam.local, http://localhost:5173", origin: "http://localhost:5173", wantHdr: "http://localhost:5173"},
		{name: "unlisted origin", env: "http://exam.local", origin: "http://evil.local", wantHdr: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CORS_ALLOW_ORIGINS", tt.env)

			app := fiber.New()
			app.Use(NewCORSMiddleware())
			app.Post("/detect_face", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

			req := httptest.NewRequest("OPTIONS", "/detect_face", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", "POST")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != fiber.StatusNoContent {
				t.Errorf("status = %d, want 204", resp.StatusCode)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != tt.wantHdr {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantHdr)
			}
		})
	}
}
