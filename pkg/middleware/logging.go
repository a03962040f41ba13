package middleware

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ContextKey tipo per le chiavi del context
type ContextKey string

// RequestIDKey chiave per il request ID nel context
const RequestIDKey ContextKey = "request_id"

// LoggingConfig configurazione del middleware di logging
type LoggingConfig struct {
	// Logger personalizzato (opzionale)
	Logger *zerolog.Logger
	// Skip paths che non devono essere loggati
	SkipPaths []string
	// Log request body (attenzione: può contenere dati sensibili)
	LogRequestBody bool
}

// RequestID middleware per generare e tracciare request ID
func RequestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := c.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Locals(string(RequestIDKey), requestID)
		c.Set("X-Request-ID", requestID)

		return c.Next()
	}
}

// GetRequestID estrae il request ID dal context
func GetRequestID(c fiber.Ctx) string {
	requestID, ok := c.Locals(string(RequestIDKey)).(string)
	if !ok {
		return ""
	}
	return requestID
}

// Logging middleware per logging strutturato delle richieste
func Logging(config LoggingConfig) fiber.Handler {
	logger := log.Logger
	if config.Logger != nil {
		logger = *config.Logger
	}

	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c fiber.Ctx) error {
		if skipMap[c.Path()] {
			return c.Next()
		}

		start := time.Now()

		requestID := GetRequestID(c)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Locals(string(RequestIDKey), requestID)
		}

		logEvent := logger.Info().
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Str("user_agent", c.Get("User-Agent"))

		if config.LogRequestBody {
			logEvent = logEvent.Bytes("request_body", c.Body())
		}

		logEvent.Msg("request started")

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		// Il livello segue lo status di risposta
		var logFunc func() *zerolog.Event
		switch {
		case status >= 500:
			logFunc = logger.Error
		case status >= 400:
			logFunc = logger.Warn
		default:
			logFunc = logger.Info
		}

		logEvent = logFunc().
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", latency).
			Int64("bytes_sent", int64(len(c.Response().Body()))).
			Str("ip", c.IP())

		if err != nil {
			logEvent = logEvent.Err(err)
		}

		logEvent.Msg("request completed")

		return err
	}
}

// AccessLog middleware semplificato per access log
func AccessLog() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.Info().
			Str("remote_addr", c.IP()).
			Str("method", c.Method()).
			Str("uri", c.OriginalURL()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("access")

		return err
	}
}
