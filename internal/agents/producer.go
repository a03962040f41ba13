package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

const listProductSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "category", "quantity"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "category": {"type": "string", "minLength": 1},
    "quantity": {"type": "number", "exclusiveMinimum": 0},
    "price_per_unit": {"type": "number", "exclusiveMinimum": 0},
    "unit": {"type": "string"},
    "description": {"type": "string"},
    "organic_certified": {"type": "boolean"}
  }
}`

const updateInventorySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["product_query", "quantity"],
  "properties": {
    "product_query": {"type": "string", "minLength": 1},
    "quantity": {"type": "number", "minimum": 0}
  }
}`

const managePricingSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["product_query", "new_price"],
  "properties": {
    "product_query": {"type": "string", "minLength": 1},
    "new_price": {"type": "number", "exclusiveMinimum": 0}
  }
}`

const handleOrdersSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "transaction_id": {"type": "string"},
    "decision": {"type": "string", "enum": ["confirm", "cancel"]}
  }
}`

// ProducerConfig è il catalogo dell'agente produttore
func ProducerConfig() Config {
	return Config{
		Name:        "producer",
		Role:        "producer assistant",
		Description: "Helps farmers and producers list products, manage inventory, pricing and incoming orders.",
		Catalog: Catalog{
			Default: "list_product",
			Actions: []ActionSpec{
				{
					Name:        "list_product",
					Description: "Publish a new product listing on the marketplace",
					Schema:      listProductSchema,
					Keywords:    []string{"list", "sell", "publish", "new product", "harvest"},
					Handler:     handleListProduct,
				},
				{
					Name:        "update_inventory",
					Description: "Update the available quantity of a listed product",
					Schema:      updateInventorySchema,
					Keywords:    []string{"inventory", "stock", "quantity left", "restock"},
					Handler:     handleUpdateInventory,
				},
				{
					Name:        "manage_pricing",
					Description: "Change the price of a listed product",
					Schema:      managePricingSchema,
					Keywords:    []string{"price", "pricing", "discount", "raise the"},
					Handler:     handleManagePricing,
				},
				{
					Name:        "view_analytics",
					Description: "Show sales figures for the producer's listings",
					Keywords:    []string{"analytics", "sales", "revenue", "how much did"},
					Handler:     handleViewAnalytics,
				},
				{
					Name:        "handle_orders",
					Description: "Review, confirm or cancel incoming orders",
					Schema:      handleOrdersSchema,
					Keywords:    []string{"incoming orders", "confirm order", "cancel order", "pending orders"},
					Handler:     handleIncomingOrders,
				},
				negotiatePriceAction(),
			},
		},
	}
}

func handleListProduct(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are before listing a product. Please sign in first.")
	}
	if user.Role != models.RoleProducer {
		return failureOutcome("Only producers can list products on the marketplace.")
	}

	unit := fieldString(fields, "unit")
	if unit == "" {
		unit = "kg"
	}

	product := &models.Product{
		ProducerID:       user.ID,
		Name:             fieldString(fields, "name"),
		Category:         strings.ToLower(fieldString(fields, "category")),
		Description:      fieldString(fields, "description"),
		Quantity:         fieldFloat(fields, "quantity"),
		Unit:             unit,
		PricePerUnit:     fieldFloat(fields, "price_per_unit"),
		Currency:         "EUR",
		OrganicCertified: fieldBool(fields, "organic_certified"),
		Status:           models.ProductStatusActive,
	}
	if err := rt.Store.CreateProduct(ctx, product); err != nil {
		return errorOutcome("I could not publish the listing: %v", err)
	}

	content := fmt.Sprintf("🌾 Listed %g %s of %s at %s per %s.",
		product.Quantity, product.Unit, product.Name,
		money(product.PricePerUnit, product.Currency), product.Unit)

	return successOutcome(content, map[string]any{
		"product_id": product.ID.String(),
		"name":       product.Name,
	})
}

func handleUpdateInventory(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to update inventory. Please sign in first.")
	}

	product, out := findOwnProduct(ctx, rt, user, fieldString(fields, "product_query"))
	if product == nil {
		return out
	}

	quantity := fieldFloat(fields, "quantity")
	updates := map[string]any{"available_quantity": quantity}
	if quantity == 0 {
		updates["status"] = models.ProductStatusSoldOut
	} else if product.Status == models.ProductStatusSoldOut {
		updates["status"] = models.ProductStatusActive
	}
	if err := rt.Store.UpdateProduct(ctx, product.ID, updates); err != nil {
		return errorOutcome("I could not update the inventory: %v", err)
	}

	return successOutcome(
		fmt.Sprintf("📋 %s now has %g %s available.", product.Name, quantity, product.Unit),
		map[string]any{"product_id": product.ID.String(), "available_quantity": quantity})
}

func handleManagePricing(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to change prices. Please sign in first.")
	}

	product, out := findOwnProduct(ctx, rt, user, fieldString(fields, "product_query"))
	if product == nil {
		return out
	}

	newPrice := fieldFloat(fields, "new_price")
	if err := rt.Store.UpdateProduct(ctx, product.ID, map[string]any{"price_per_unit": newPrice}); err != nil {
		return errorOutcome("I could not update the price: %v", err)
	}

	return successOutcome(
		fmt.Sprintf("💶 %s now costs %s per %s (was %s).",
			product.Name, money(newPrice, product.Currency), product.Unit,
			money(product.PricePerUnit, product.Currency)),
		map[string]any{"product_id": product.ID.String(), "new_price": newPrice})
}

func handleViewAnalytics(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to show analytics. Please sign in first.")
	}

	products, err := rt.Store.GetProducts(ctx, database.ProductFilter{ProducerID: user.ID})
	if err != nil {
		return errorOutcome("I could not fetch your listings: %v", err)
	}
	txs, err := rt.Store.GetTransactionsForUser(ctx, user.ID, 100)
	if err != nil {
		return errorOutcome("I could not fetch your sales: %v", err)
	}

	var revenue float64
	var sold int
	for _, tx := range txs {
		if tx.SellerID != user.ID || tx.Status == models.TransactionStatusCancelled {
			continue
		}
		revenue += tx.TotalAmount
		sold++
	}

	content := fmt.Sprintf("📊 You have %d active listings, %d orders sold, total revenue %s.",
		len(products), sold, money(revenue, "EUR"))

	return successOutcome(content, map[string]any{
		"listings": len(products),
		"orders":   sold,
		"revenue":  revenue,
	})
}

func handleIncomingOrders(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to review orders. Please sign in first.")
	}

	if rawID := fieldString(fields, "transaction_id"); rawID != "" {
		return decideOrder(ctx, rt, user, rawID, fieldString(fields, "decision"))
	}

	txs, err := rt.Store.GetTransactionsForUser(ctx, user.ID, 50)
	if err != nil {
		return errorOutcome("I could not fetch your orders: %v", err)
	}

	var sb strings.Builder
	var pending int
	for _, tx := range txs {
		if tx.SellerID != user.ID || tx.Status != models.TransactionStatusPending {
			continue
		}
		pending++
		sb.WriteString(transactionLine(tx))
		sb.WriteString("\n")
	}
	if pending == 0 {
		return successOutcome("You have no pending orders.", map[string]any{"pending": 0})
	}

	return successOutcome(
		fmt.Sprintf("📦 You have %d pending orders:\n%s", pending, sb.String()),
		map[string]any{"pending": pending})
}

func decideOrder(ctx context.Context, rt *Runtime, user *models.User, rawID, decision string) Outcome {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return failureOutcome(fmt.Sprintf("%q does not look like an order id.", rawID))
	}
	tx, err := rt.Store.GetTransactionByID(ctx, id)
	if err != nil {
		return failureOutcome(fmt.Sprintf("I could not find order %s.", rawID))
	}
	if tx.SellerID != user.ID {
		return failureOutcome("This order does not belong to you.")
	}
	if tx.Status != models.TransactionStatusPending {
		return failureOutcome(fmt.Sprintf("Order %s is already %s.", shortID(tx.ID), tx.Status))
	}

	switch decision {
	case "confirm":
		if err := rt.Store.UpdateTransaction(ctx, tx.ID, map[string]any{"status": models.TransactionStatusConfirmed}); err != nil {
			return errorOutcome("I could not confirm the order: %v", err)
		}
		rt.Notifier.Notify(ctx, tx.BuyerID, models.NotificationOrder,
			"Order confirmed",
			fmt.Sprintf("Your order %s was confirmed by the producer", shortID(tx.ID)),
			map[string]any{"transaction_id": tx.ID.String()})
		return successOutcome(fmt.Sprintf("✅ Order %s confirmed.", shortID(tx.ID)),
			map[string]any{"transaction_id": tx.ID.String()})
	case "cancel":
		if err := rt.Store.UpdateTransaction(ctx, tx.ID, map[string]any{"status": models.TransactionStatusCancelled}); err != nil {
			return errorOutcome("I could not cancel the order: %v", err)
		}
		// La merce prenotata torna disponibile
		if err := rt.Store.ReleaseQuantity(ctx, tx.ProductID, tx.Quantity); err != nil {
			return errorOutcome("The order was cancelled but I could not release the stock: %v", err)
		}
		rt.Notifier.Notify(ctx, tx.BuyerID, models.NotificationOrder,
			"Order cancelled",
			fmt.Sprintf("Your order %s was cancelled by the producer", shortID(tx.ID)),
			map[string]any{"transaction_id": tx.ID.String()})
		return successOutcome(fmt.Sprintf("Order %s cancelled and stock released.", shortID(tx.ID)),
			map[string]any{"transaction_id": tx.ID.String()})
	default:
		return failureOutcome("Tell me whether you want to confirm or cancel the order.")
	}
}

// findOwnProduct risolve un prodotto del produttore dalla query estratta
func findOwnProduct(ctx context.Context, rt *Runtime, user *models.User, query string) (*models.Product, Outcome) {
	products, err := rt.Store.GetProducts(ctx, database.ProductFilter{Query: query, ProducerID: user.ID, Limit: 1})
	if err != nil {
		return nil, errorOutcome("I could not look up your listings: %v", err)
	}
	if len(products) == 0 {
		return nil, failureOutcome(fmt.Sprintf("You have no listing matching %q.", query))
	}
	return &products[0], Outcome{}
}
