package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const searchProductsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "category": {"type": "string"},
    "organic_only": {"type": "boolean"},
    "max_price": {"type": "number", "minimum": 0}
  }
}`

const placeOrderSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["product_query", "quantity", "delivery_address"],
  "properties": {
    "product_query": {"type": "string", "minLength": 1},
    "quantity": {"type": "number", "exclusiveMinimum": 0},
    "delivery_address": {
      "type": "object",
      "required": ["city"],
      "properties": {
        "city": {"type": "string", "minLength": 1},
        "street": {"type": "string"},
        "postal_code": {"type": "string"},
        "country": {"type": "string"}
      }
    },
    "notes": {"type": "string"}
  }
}`

// ConsumerConfig è il catalogo dell'agente acquirente
func ConsumerConfig() Config {
	return Config{
		Name:        "consumer",
		Role:        "buyer assistant",
		Description: "Helps buyers discover agricultural products, place orders and follow them up.",
		Catalog: Catalog{
			Default: "search_products",
			Actions: []ActionSpec{
				{
					Name:        "search_products",
					Description: "Search the marketplace catalog for products",
					Schema:      searchProductsSchema,
					Keywords:    []string{"search", "find", "buy", "looking for", "available"},
					Handler:     handleSearchProducts,
				},
				{
					Name:        "place_order",
					Description: "Place an order for a product",
					Schema:      placeOrderSchema,
					Keywords:    []string{"order", "purchase", "deliver to"},
					Handler:     handlePlaceOrder,
				},
				{
					Name:        "track_orders",
					Description: "Show the status of the user's orders",
					Keywords:    []string{"my orders", "order status", "track order"},
					Handler:     handleTrackOrders,
				},
				{
					Name:        "product_recommendations",
					Description: "Recommend products based on the user's needs",
					Keywords:    []string{"recommend", "suggest", "what should"},
					Handler:     handleProductRecommendations,
				},
				negotiatePriceAction(),
			},
		},
	}
}

func handleSearchProducts(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	filter := database.ProductFilter{
		Query:       fieldString(fields, "query"),
		Category:    fieldString(fields, "category"),
		OrganicOnly: fieldBool(fields, "organic_only"),
		MaxPrice:    fieldFloat(fields, "max_price"),
	}

	products, err := rt.Store.GetProducts(ctx, filter)
	if err != nil {
		return errorOutcome("I could not search the catalog right now: %v", err)
	}

	if len(products) == 0 {
		return successOutcome(
			"I found no products matching your request. Try a broader search or a different category.",
			map[string]any{"count": 0})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🔍 I found %d products:\n", len(products))
	for _, p := range products {
		sb.WriteString(productLine(p))
		sb.WriteString("\n")
	}

	return successOutcome(sb.String(), map[string]any{"count": len(products)})
}

func handlePlaceOrder(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are before placing an order. Please sign in first.")
	}

	query := fieldString(fields, "product_query")
	quantity := fieldFloat(fields, "quantity")
	address := fieldMap(fields, "delivery_address")

	products, err := rt.Store.GetProducts(ctx, database.ProductFilter{Query: query, Limit: 1})
	if err != nil {
		return errorOutcome("I could not look up the product: %v", err)
	}
	if len(products) == 0 {
		return failureOutcome(fmt.Sprintf("I couldn't find any product matching %q.", query))
	}
	product := products[0]

	// Decremento atomico: la verifica di disponibilità e la prenotazione
	// sono un solo statement
	if _, err := rt.Store.ReserveQuantity(ctx, product.ID, quantity); err != nil {
		if errors.Is(err, database.ErrInsufficientQuantity) {
			return failureOutcome(fmt.Sprintf("Cannot place the order for %s: %v.", product.Name, err))
		}
		return errorOutcome("I could not reserve the quantity: %v", err)
	}

	tx := &models.Transaction{
		BuyerID:         user.ID,
		SellerID:        product.ProducerID,
		ProductID:       product.ID,
		Quantity:        quantity,
		UnitPrice:       product.PricePerUnit,
		TotalAmount:     quantity * product.PricePerUnit,
		Currency:        product.Currency,
		Status:          models.TransactionStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		DeliveryAddress: datatypes.JSONMap(address),
		Notes:           fieldString(fields, "notes"),
	}
	if err := rt.Store.CreateTransaction(ctx, tx); err != nil {
		if relErr := rt.Store.ReleaseQuantity(ctx, product.ID, quantity); relErr != nil {
			log.Error().
				Err(relErr).
				Str("product_id", product.ID.String()).
				Msg("Failed to release reserved quantity")
		}
		return errorOutcome("I could not record the order: %v", err)
	}

	rt.Notifier.Notify(ctx, product.ProducerID, models.NotificationOrder,
		"New order received",
		fmt.Sprintf("%s ordered %g %s of %s", user.Name, quantity, product.Unit, product.Name),
		map[string]any{"transaction_id": tx.ID.String()})

	content := fmt.Sprintf("✅ Order placed: %g %s of %s for %s. Status: %s, payment %s.",
		quantity, product.Unit, product.Name,
		money(tx.TotalAmount, tx.Currency), tx.Status, tx.PaymentStatus)

	return successOutcome(content, map[string]any{
		"transaction_id": tx.ID.String(),
		"total_amount":   tx.TotalAmount,
		"status":         string(tx.Status),
	})
}

func handleTrackOrders(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to look up your orders. Please sign in first.")
	}

	txs, err := rt.Store.GetTransactionsForUser(ctx, user.ID, 10)
	if err != nil {
		return errorOutcome("I could not fetch your orders: %v", err)
	}
	if len(txs) == 0 {
		return successOutcome("You have no orders yet.", map[string]any{"count": 0})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📦 Your latest %d orders:\n", len(txs))
	for _, tx := range txs {
		sb.WriteString(transactionLine(tx))
		sb.WriteString("\n")
	}

	return successOutcome(sb.String(), map[string]any{"count": len(txs)})
}

func handleProductRecommendations(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	products, err := rt.Store.GetProducts(ctx, database.ProductFilter{Limit: 8})
	if err != nil {
		return errorOutcome("I could not fetch the catalog: %v", err)
	}
	if len(products) == 0 {
		return successOutcome("The catalog is empty right now, nothing to recommend.", nil)
	}

	var listing strings.Builder
	for _, p := range products {
		listing.WriteString(productLine(p))
		listing.WriteString("\n")
	}

	reply, err := rt.Registry.Invoke(ctx, providers.TaskGeneration, []providers.Message{
		providers.SystemMessage("You are a buying assistant for an agricultural marketplace. " +
			"Recommend at most three products from the catalog below for the user's request, with one short reason each.\n" +
			listing.String()),
		providers.UserMessage(req.Message),
	})
	if err != nil {
		// Il catalogo resta una raccomandazione valida anche senza LLM
		return successOutcome("🌾 Fresh picks from the catalog:\n"+listing.String(),
			map[string]any{"count": len(products)})
	}

	return successOutcome(reply.Content, map[string]any{"count": len(products)})
}

// requestUser estrae l'utente dal contesto del turno
func requestUser(req *Request) *models.User {
	if req == nil || req.Context == nil {
		return nil
	}
	return req.Context.User
}
