package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// CORSConfig configurazione CORS
type CORSConfig struct {
	// AllowedOrigins lista degli origin permessi
	// Usa "*" per permettere tutti (non raccomandato in produzione)
	AllowedOrigins []string

	// AllowedMethods metodi HTTP permessi
	AllowedMethods []string

	// AllowedHeaders headers permessi nelle richieste
	AllowedHeaders []string

	// ExposedHeaders headers esposti al client
	ExposedHeaders []string

	// AllowCredentials permette l'invio di credenziali
	AllowCredentials bool

	// MaxAge tempo di cache per preflight requests (in secondi)
	MaxAge int
}

// DefaultCORSConfig configurazione CORS di default
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		// L'API espone solo letture e invio messaggi, niente verbi di
		// mutazione REST
		AllowedMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodOptions,
		},
		AllowedHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Request-ID",
			"X-Session-ID",
		},
		ExposedHeaders: []string{
			"Content-Length",
			"X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           86400, // 24 ore
	}
}

// CORS middleware per gestire Cross-Origin Resource Sharing
func CORS(config CORSConfig) fiber.Handler {
	allowOriginFunc := func(origin string) bool {
		for _, allowedOrigin := range config.AllowedOrigins {
			if allowedOrigin == "*" {
				return true
			}
			if allowedOrigin == origin {
				return true
			}
			// Supporta wildcard subdomain (*.example.com)
			if strings.HasPrefix(allowedOrigin, "*.") {
				domain := strings.TrimPrefix(allowedOrigin, "*")
				if strings.HasSuffix(origin, domain) {
					return true
				}
			}
		}
		return false
	}

	allowMethods := strings.Join(config.AllowedMethods, ", ")
	allowHeaders := strings.Join(config.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposedHeaders, ", ")

	return func(c fiber.Ctx) error {
		origin := c.Get("Origin")

		// Se non c'è Origin header, non è una richiesta CORS
		if origin == "" {
			return c.Next()
		}

		if !allowOriginFunc(origin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "origin not allowed",
			})
		}

		c.Set("Access-Control-Allow-Origin", origin)

		if config.AllowCredentials {
			c.Set("Access-Control-Allow-Credentials", "true")
		}

		// Handle preflight request
		if c.Method() == fiber.MethodOptions {
			c.Set("Access-Control-Allow-Methods", allowMethods)
			c.Set("Access-Control-Allow-Headers", allowHeaders)

			if config.MaxAge > 0 {
				c.Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))
			}

			return c.SendStatus(fiber.StatusNoContent)
		}

		if exposeHeaders != "" {
			c.Set("Access-Control-Expose-Headers", exposeHeaders)
		}

		return c.Next()
	}
}

// CORSWithConfig crea un middleware CORS con configurazione custom
func CORSWithConfig(config CORSConfig) fiber.Handler {
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = DefaultCORSConfig().AllowedOrigins
	}
	if len(config.AllowedMethods) == 0 {
		config.AllowedMethods = DefaultCORSConfig().AllowedMethods
	}
	if len(config.AllowedHeaders) == 0 {
		config.AllowedHeaders = DefaultCORSConfig().AllowedHeaders
	}
	if config.MaxAge == 0 {
		config.MaxAge = DefaultCORSConfig().MaxAge
	}

	return CORS(config)
}
