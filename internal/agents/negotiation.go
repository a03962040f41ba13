package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const negotiatePriceSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["action"],
  "properties": {
    "negotiation_id": {"type": "string"},
    "action": {"type": "string", "enum": ["accept", "reject", "counter"]},
    "counter_offer": {"type": "number", "exclusiveMinimum": 0},
    "note": {"type": "string"}
  }
}`

// negotiatePriceAction è l'azione di trattativa condivisa tra gli agenti
// che possono negoziare (producer, consumer, exporter)
func negotiatePriceAction() ActionSpec {
	return ActionSpec{
		Name:        "negotiate_price",
		Description: "Accept, reject or counter an offer in a price negotiation",
		Schema:      negotiatePriceSchema,
		Keywords:    []string{"negotiate", "offer", "counter", "accept the", "deal"},
		Handler:     handleNegotiatePrice,
	}
}

func handleNegotiatePrice(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to handle a negotiation. Please sign in first.")
	}

	n, out := findNegotiation(ctx, rt, user, fieldString(fields, "negotiation_id"))
	if n == nil {
		return out
	}

	if n.Status != models.NegotiationStatusActive {
		return failureOutcome(fmt.Sprintf("This negotiation is already %s, nothing left to do.", n.Status))
	}
	if n.Expired(time.Now()) {
		if err := rt.Store.UpdateNegotiation(ctx, n.ID, map[string]any{"status": models.NegotiationStatusExpired}); err != nil {
			log.Warn().Err(err).Str("negotiation_id", n.ID.String()).Msg("Failed to mark negotiation expired")
		}
		return failureOutcome("This negotiation has expired. Start a new one if you are still interested.")
	}
	// L'ultima offerta in piedi deve venire dalla controparte
	if n.LastOfferBy == user.ID {
		return failureOutcome("You made the last offer. Wait for the counterparty to respond.")
	}

	counterparty := n.SellerID
	if user.ID == n.SellerID {
		counterparty = n.BuyerID
	}

	switch fieldString(fields, "action") {
	case "accept":
		return acceptNegotiation(ctx, rt, user, n, counterparty)
	case "reject":
		return rejectNegotiation(ctx, rt, user, n, counterparty)
	case "counter":
		return counterNegotiation(ctx, rt, user, n, counterparty, fields)
	default:
		return failureOutcome("Tell me whether you want to accept, reject or counter the current offer.")
	}
}

// findNegotiation risolve la trattativa dall'id estratto oppure ripiega
// sull'ultima trattativa attiva dell'utente
func findNegotiation(ctx context.Context, rt *Runtime, user *models.User, rawID string) (*models.Negotiation, Outcome) {
	if rawID != "" {
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, failureOutcome(fmt.Sprintf("%q does not look like a negotiation id.", rawID))
		}
		n, err := rt.Store.GetNegotiationByID(ctx, id)
		if err != nil {
			return nil, failureOutcome(fmt.Sprintf("I could not find negotiation %s.", rawID))
		}
		return n, Outcome{}
	}

	list, err := rt.Store.GetNegotiationsForUser(ctx, user.ID)
	if err != nil {
		return nil, errorOutcome("I could not look up your negotiations: %v", err)
	}
	for i := range list {
		if list[i].Status == models.NegotiationStatusActive {
			return &list[i], Outcome{}
		}
	}
	return nil, failureOutcome("You have no active negotiations.")
}

func acceptNegotiation(ctx context.Context, rt *Runtime, user *models.User, n *models.Negotiation, counterparty uuid.UUID) Outcome {
	if err := rt.Store.UpdateNegotiation(ctx, n.ID, map[string]any{"status": models.NegotiationStatusAccepted}); err != nil {
		return errorOutcome("I could not close the negotiation: %v", err)
	}

	// L'accordo genera subito l'ordine al prezzo concordato
	tx := &models.Transaction{
		BuyerID:     n.BuyerID,
		SellerID:    n.SellerID,
		ProductID:   n.ProductID,
		Quantity:    n.Quantity,
		UnitPrice:   n.CurrentOffer,
		TotalAmount: n.Quantity * n.CurrentOffer,
		Currency:    "EUR",
		Status:      models.TransactionStatusConfirmed,
	}
	if err := rt.Store.CreateTransaction(ctx, tx); err != nil {
		return errorOutcome("The negotiation was accepted but I could not create the order: %v", err)
	}

	rt.Notifier.Notify(ctx, counterparty, models.NotificationNegotiation,
		"Offer accepted",
		fmt.Sprintf("%s accepted the offer of %s per unit", user.Name, money(n.CurrentOffer, "EUR")),
		map[string]any{"negotiation_id": n.ID.String(), "transaction_id": tx.ID.String()})

	content := fmt.Sprintf("🤝 Offer accepted at %s per unit. Order for %g units confirmed, total %s.",
		money(n.CurrentOffer, "EUR"), n.Quantity, money(tx.TotalAmount, tx.Currency))

	return successOutcome(content, map[string]any{
		"negotiation_id": n.ID.String(),
		"transaction_id": tx.ID.String(),
		"agreed_price":   n.CurrentOffer,
	})
}

func rejectNegotiation(ctx context.Context, rt *Runtime, user *models.User, n *models.Negotiation, counterparty uuid.UUID) Outcome {
	if err := rt.Store.UpdateNegotiation(ctx, n.ID, map[string]any{"status": models.NegotiationStatusRejected}); err != nil {
		return errorOutcome("I could not close the negotiation: %v", err)
	}

	rt.Notifier.Notify(ctx, counterparty, models.NotificationNegotiation,
		"Offer rejected",
		fmt.Sprintf("%s rejected the offer of %s per unit", user.Name, money(n.CurrentOffer, "EUR")),
		map[string]any{"negotiation_id": n.ID.String()})

	return successOutcome(
		fmt.Sprintf("Offer of %s per unit rejected. The negotiation is closed.", money(n.CurrentOffer, "EUR")),
		map[string]any{"negotiation_id": n.ID.String()})
}

func counterNegotiation(ctx context.Context, rt *Runtime, user *models.User, n *models.Negotiation, counterparty uuid.UUID, fields map[string]any) Outcome {
	offer := fieldFloat(fields, "counter_offer")
	if offer <= 0 {
		return failureOutcome("Tell me the price per unit you want to counter with.")
	}

	history := negotiationHistory(n)
	history = append(history, map[string]any{
		"from":  user.ID.String(),
		"offer": offer,
		"note":  fieldString(fields, "note"),
		"at":    time.Now().UTC().Format(time.RFC3339),
	})
	raw, err := json.Marshal(history)
	if err != nil {
		return errorOutcome("I could not record the counter offer: %v", err)
	}

	updates := map[string]any{
		"current_offer": offer,
		"last_offer_by": user.ID,
		"messages":      datatypes.JSON(raw),
	}
	if err := rt.Store.UpdateNegotiation(ctx, n.ID, updates); err != nil {
		return errorOutcome("I could not record the counter offer: %v", err)
	}

	rt.Notifier.Notify(ctx, counterparty, models.NotificationNegotiation,
		"New counter offer",
		fmt.Sprintf("%s countered with %s per unit", user.Name, money(offer, "EUR")),
		map[string]any{"negotiation_id": n.ID.String(), "offer": offer})

	return successOutcome(
		fmt.Sprintf("💬 Counter offer of %s per unit sent. Waiting for the counterparty.", money(offer, "EUR")),
		map[string]any{"negotiation_id": n.ID.String(), "offer": offer})
}

func negotiationHistory(n *models.Negotiation) []map[string]any {
	var history []map[string]any
	if len(n.Messages) > 0 {
		if err := json.Unmarshal(n.Messages, &history); err != nil {
			log.Warn().Err(err).Str("negotiation_id", n.ID.String()).Msg("Unreadable negotiation history, starting fresh")
			history = nil
		}
	}
	return history
}
