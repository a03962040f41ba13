package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/test", func(c fiber.Ctx) error {
		if GetRequestID(c) == "" {
			t.Error("request ID should not be empty")
		}
		return c.SendString("OK")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID response header is empty")
	}
}

func TestRequestIDPreservesIncoming(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/test", func(c fiber.Ctx) error {
		return c.SendString("OK")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "incoming-42")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if got := resp.Header.Get("X-Request-ID"); got != "incoming-42" {
		t.Errorf("X-Request-ID = %q, want incoming-42", got)
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	app := fiber.New()
	app.Use(Recovery())
	app.Get("/panic", func(c fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/panic", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(DefaultCORSConfig()))
	app.Get("/test", func(c fiber.Ctx) error {
		return c.SendString("OK")
	})

	req := httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "https://app.example.com")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Errorf("Allow-Origin = %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}

	// L'API è solo lettura e invio messaggi
	methods := resp.Header.Get("Access-Control-Allow-Methods")
	if !strings.Contains(methods, fiber.MethodPost) {
		t.Errorf("Allow-Methods = %q, want POST allowed", methods)
	}
	for _, verb := range []string{fiber.MethodPut, fiber.MethodPatch, fiber.MethodDelete} {
		if strings.Contains(methods, verb) {
			t.Errorf("Allow-Methods = %q, %s must not be offered", methods, verb)
		}
	}
	if headers := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(headers, "X-Session-ID") {
		t.Errorf("Allow-Headers = %q, want X-Session-ID allowed", headers)
	}
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedOrigins: []string{"https://trusted.example.com"}}))
	app.Get("/test", func(c fiber.Ctx) error {
		return c.SendString("OK")
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Origin", "https://evil.example.org")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}
