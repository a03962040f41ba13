package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

const trackShipmentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["tracking_number"],
  "properties": {
    "tracking_number": {"type": "string", "minLength": 1}
  }
}`

const coordinateDeliverySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["transaction_id"],
  "properties": {
    "transaction_id": {"type": "string", "minLength": 1},
    "carrier": {"type": "string"},
    "estimated_days": {"type": "number", "minimum": 1}
  }
}`

const optimizeRouteSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["origin", "destination"],
  "properties": {
    "origin": {"type": "string", "minLength": 1},
    "destination": {"type": "string", "minLength": 1},
    "perishable": {"type": "boolean"}
  }
}`

var shipmentStatusEmoji = map[models.ShipmentStatus]string{
	models.ShipmentStatusPreparing: "📦",
	models.ShipmentStatusInTransit: "🚚",
	models.ShipmentStatusCustoms:   "🛃",
	models.ShipmentStatusDelivered: "✅",
	models.ShipmentStatusDelayed:   "⚠️",
}

// LogisticsConfig è il catalogo dell'agente logistica
func LogisticsConfig() Config {
	return Config{
		Name:        "logistics",
		Role:        "logistics coordinator",
		Description: "Tracks shipments, coordinates deliveries and advises on routes and carriers.",
		Catalog: Catalog{
			Default: "track_shipment",
			Actions: []ActionSpec{
				{
					Name:        "track_shipment",
					Description: "Look up a shipment by tracking number",
					Schema:      trackShipmentSchema,
					Keywords:    []string{"track", "where is", "tracking", "shipment status"},
					Handler:     handleTrackShipment,
				},
				{
					Name:        "optimize_route",
					Description: "Suggest a route between origin and destination",
					Schema:      optimizeRouteSchema,
					Keywords:    []string{"route", "fastest way", "transport from"},
					Handler:     handleOptimizeRoute,
				},
				{
					Name:        "coordinate_delivery",
					Description: "Arrange the shipment for a confirmed order",
					Schema:      coordinateDeliverySchema,
					Keywords:    []string{"arrange delivery", "ship order", "schedule pickup"},
					Handler:     handleCoordinateDelivery,
				},
				{
					Name:        "manage_carriers",
					Description: "Summarize carrier performance on the user's shipments",
					Keywords:    []string{"carrier", "courier", "which company delivers"},
					Handler:     handleManageCarriers,
				},
			},
		},
	}
}

func handleTrackShipment(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	tracking := strings.ToUpper(fieldString(fields, "tracking_number"))

	shipment, err := rt.Store.GetShipmentByTracking(ctx, tracking)
	if err != nil {
		return failureOutcome(fmt.Sprintf("I found no shipment with tracking number %s.", tracking))
	}

	emoji := shipmentStatusEmoji[shipment.Status]
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Shipment %s via %s is %s.",
		emoji, shipment.TrackingNumber, shipment.Carrier, strings.ReplaceAll(string(shipment.Status), "_", " "))
	if shipment.Status == models.ShipmentStatusDelivered && shipment.ActualDelivery != nil {
		fmt.Fprintf(&sb, " Delivered on %s.", shipment.ActualDelivery.Format("2 January 2006"))
	} else if shipment.EstimatedDelivery != nil {
		fmt.Fprintf(&sb, " Estimated delivery %s.", shipment.EstimatedDelivery.Format("2 January 2006"))
	}

	return successOutcome(sb.String(), map[string]any{
		"tracking_number": shipment.TrackingNumber,
		"status":          string(shipment.Status),
		"carrier":         shipment.Carrier,
	})
}

func handleOptimizeRoute(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	origin := fieldString(fields, "origin")
	destination := fieldString(fields, "destination")

	prompt := fmt.Sprintf("Suggest the best freight route from %s to %s for agricultural goods", origin, destination)
	if fieldBool(fields, "perishable") {
		prompt += " that are perishable and need refrigerated transport"
	}

	reply, err := rt.Registry.Invoke(ctx, providers.TaskReasoning, []providers.Message{
		providers.SystemMessage("You are a logistics coordinator for agricultural exports in Europe. " +
			"Answer with a short route recommendation: mode of transport, main legs and an estimated transit time."),
		providers.UserMessage(prompt),
	})
	if err != nil {
		return errorOutcome("I could not work out a route right now: %v", err)
	}

	return successOutcome(reply.Content, map[string]any{
		"origin":      origin,
		"destination": destination,
	})
}

func handleCoordinateDelivery(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	rawID := fieldString(fields, "transaction_id")
	id, err := uuid.Parse(rawID)
	if err != nil {
		return failureOutcome(fmt.Sprintf("%q does not look like an order id.", rawID))
	}

	tx, err := rt.Store.GetTransactionByID(ctx, id)
	if err != nil {
		return failureOutcome(fmt.Sprintf("I could not find order %s.", rawID))
	}
	if tx.Status != models.TransactionStatusConfirmed {
		return failureOutcome(fmt.Sprintf("Order %s is %s; only confirmed orders can be shipped.", shortID(tx.ID), tx.Status))
	}

	carrier := fieldString(fields, "carrier")
	if carrier == "" {
		carrier = "AgriFreight"
	}
	days := fieldFloat(fields, "estimated_days")
	if days <= 0 {
		days = 5
	}
	eta := time.Now().AddDate(0, 0, int(days))

	shipment := &models.Shipment{
		TransactionID:     tx.ID,
		Carrier:           carrier,
		TrackingNumber:    newTrackingNumber(),
		Status:            models.ShipmentStatusPreparing,
		Destination:       tx.DeliveryAddress,
		EstimatedDelivery: &eta,
	}
	if err := rt.Store.CreateShipment(ctx, shipment); err != nil {
		return errorOutcome("I could not create the shipment: %v", err)
	}

	updates := map[string]any{
		"status":          models.TransactionStatusShipped,
		"tracking_number": shipment.TrackingNumber,
	}
	if err := rt.Store.UpdateTransaction(ctx, tx.ID, updates); err != nil {
		return errorOutcome("The shipment was created but I could not update the order: %v", err)
	}

	rt.Notifier.Notify(ctx, tx.BuyerID, models.NotificationShipment,
		"Your order has shipped",
		fmt.Sprintf("Order %s is on its way via %s, tracking %s", shortID(tx.ID), carrier, shipment.TrackingNumber),
		map[string]any{"tracking_number": shipment.TrackingNumber})

	content := fmt.Sprintf("🚚 Order %s handed to %s. Tracking number %s, estimated delivery %s.",
		shortID(tx.ID), carrier, shipment.TrackingNumber, eta.Format("2 January 2006"))

	return successOutcome(content, map[string]any{
		"tracking_number":    shipment.TrackingNumber,
		"carrier":            carrier,
		"estimated_delivery": eta.Format(time.RFC3339),
	})
}

func handleManageCarriers(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to review your carriers. Please sign in first.")
	}

	shipments, err := rt.Store.GetShipmentsForUser(ctx, user.ID)
	if err != nil {
		return errorOutcome("I could not fetch your shipments: %v", err)
	}
	if len(shipments) == 0 {
		return successOutcome("You have no shipments on record yet.", map[string]any{"count": 0})
	}

	type carrierStats struct {
		total     int
		delivered int
		delayed   int
	}
	stats := map[string]*carrierStats{}
	var names []string
	for _, s := range shipments {
		cs, ok := stats[s.Carrier]
		if !ok {
			cs = &carrierStats{}
			stats[s.Carrier] = cs
			names = append(names, s.Carrier)
		}
		cs.total++
		switch s.Status {
		case models.ShipmentStatusDelivered:
			cs.delivered++
		case models.ShipmentStatusDelayed:
			cs.delayed++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🚛 Carriers on your shipments:\n")
	for _, name := range names {
		cs := stats[name]
		fmt.Fprintf(&sb, "• %s: %d shipments, %d delivered, %d delayed\n",
			name, cs.total, cs.delivered, cs.delayed)
	}

	return successOutcome(sb.String(), map[string]any{"carriers": len(names)})
}

// newTrackingNumber genera un codice di tracciamento univoco
func newTrackingNumber() string {
	return "AGC-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
