package gateway

import (
	"errors"
	"time"

	"github.com/biodoia/agriconnect/internal/agents"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MessageRequest è il corpo delle richieste di conversazione
type MessageRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`

	// Transaction trasporta attributi noti della transazione in corso
	Transaction map[string]any `json:"transaction"`
}

// ResolveReviewRequest è il corpo della risoluzione di una revisione
type ResolveReviewRequest struct {
	Approved bool   `json:"approved"`
	Note     string `json:"note"`
}

// buildAgentRequest converte il corpo HTTP in una Request per gli agenti
func (g *Gateway) buildAgentRequest(c fiber.Ctx, req MessageRequest) *agents.Request {
	turn := &agents.TurnContext{
		SessionID:   req.SessionID,
		Transaction: req.Transaction,
	}
	if turn.SessionID == "" {
		turn.SessionID = c.Get("X-Session-ID")
	}

	if req.UserID != "" && g.db != nil {
		id, err := uuid.Parse(req.UserID)
		if err == nil {
			user, err := g.db.GetUserByID(c.Context(), id)
			if err == nil {
				turn.User = user
			} else {
				log.Warn().
					Str("user_id", req.UserID).
					Msg("Unknown user on incoming message")
			}
		}
	}

	return &agents.Request{Message: req.Message, Context: turn}
}

// handleMessage instrada un messaggio attraverso il supervisore
func (g *Gateway) handleMessage(c fiber.Ctx) error {
	var req MessageRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	start := time.Now()
	out := g.service.ProcessMessage(c.Context(), g.buildAgentRequest(c, req))

	g.metrics.ObserveTurn(out.Agent, out.Action, out.Success, out.Error, time.Since(start))
	g.metrics.SetOpenReviews(len(g.service.PendingReviews()))

	return c.JSON(out)
}

// handleDirectMessage invia un messaggio a un agente specifico
func (g *Gateway) handleDirectMessage(c fiber.Ctx) error {
	agentType := c.Params("type")

	var req MessageRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "message is required",
		})
	}

	start := time.Now()
	out, err := g.service.ProcessDirectAgentMessage(c.Context(), agentType, g.buildAgentRequest(c, req))
	if err != nil {
		if errors.Is(err, agents.ErrAgentNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "unknown agent type",
				"type":  agentType,
			})
		}
		return fiber.ErrInternalServerError
	}

	g.metrics.ObserveTurn(out.Agent, out.Action, out.Success, out.Error, time.Since(start))

	return c.JSON(out)
}

// handleListAgents elenca gli agenti disponibili
func (g *Gateway) handleListAgents(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"agents": g.service.AgentTypes(),
	})
}

// handleAgentsHealth sonda lo stato di tutti gli agenti
func (g *Gateway) handleAgentsHealth(c fiber.Ctx) error {
	results := g.service.HealthCheck(c.Context())

	healthy := true
	for _, ok := range results {
		if !ok {
			healthy = false
			break
		}
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"healthy":   healthy,
		"agents":    results,
		"timestamp": time.Now().Unix(),
	})
}

// handleCapabilities elenca le azioni di un agente
func (g *Gateway) handleCapabilities(c fiber.Ctx) error {
	agentType := c.Params("type")

	actions, err := g.service.Capabilities(agentType)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "unknown agent type",
			"type":  agentType,
		})
	}

	return c.JSON(fiber.Map{
		"agent":   agentType,
		"actions": actions,
	})
}

// handleListReviews elenca le pratiche di revisione aperte
func (g *Gateway) handleListReviews(c fiber.Ctx) error {
	pending := g.service.PendingReviews()
	g.metrics.SetOpenReviews(len(pending))

	return c.JSON(fiber.Map{
		"pending": pending,
		"count":   len(pending),
	})
}

// handleResolveReview chiude una pratica di revisione umana
func (g *Gateway) handleResolveReview(c fiber.Ctx) error {
	id := c.Params("id")

	var req ResolveReviewRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	review, err := g.service.ResolveReview(id, req.Approved, req.Note)
	if err != nil {
		if errors.Is(err, agents.ErrReviewNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "review not found",
				"id":    id,
			})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	g.metrics.SetOpenReviews(len(g.service.PendingReviews()))

	return c.JSON(review)
}
