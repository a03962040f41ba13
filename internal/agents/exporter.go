package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/biodoia/agriconnect/pkg/database"
	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

const findSuppliersSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "category": {"type": "string"},
    "organic_only": {"type": "boolean"},
    "min_quantity": {"type": "number", "minimum": 0}
  }
}`

const bulkOrderingSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["items", "delivery_address"],
  "properties": {
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["product_query", "quantity"],
        "properties": {
          "product_query": {"type": "string", "minLength": 1},
          "quantity": {"type": "number", "exclusiveMinimum": 0}
        }
      }
    },
    "delivery_address": {
      "type": "object",
      "required": ["city"],
      "properties": {
        "city": {"type": "string", "minLength": 1},
        "country": {"type": "string"}
      }
    }
  }
}`

const supplierEvaluationSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["supplier_query"],
  "properties": {
    "supplier_query": {"type": "string", "minLength": 1}
  }
}`

// ExporterConfig è il catalogo dell'agente esportatore
func ExporterConfig() Config {
	return Config{
		Name:        "exporter",
		Role:        "export assistant",
		Description: "Helps exporters source suppliers, place bulk orders and evaluate trading partners.",
		Catalog: Catalog{
			Default: "find_suppliers",
			Actions: []ActionSpec{
				{
					Name:        "find_suppliers",
					Description: "Find producers that can supply a given category",
					Schema:      findSuppliersSchema,
					Keywords:    []string{"supplier", "source", "producers of", "who sells"},
					Handler:     handleFindSuppliers,
				},
				{
					Name:        "bulk_ordering",
					Description: "Place a multi-item bulk order",
					Schema:      bulkOrderingSchema,
					Keywords:    []string{"bulk", "wholesale", "container", "pallet"},
					Handler:     handleBulkOrdering,
				},
				{
					Name:        "supplier_evaluation",
					Description: "Evaluate a supplier's track record and certifications",
					Schema:      supplierEvaluationSchema,
					Keywords:    []string{"evaluate", "reliable", "track record", "references"},
					Handler:     handleSupplierEvaluation,
				},
				{
					Name:        "manage_contracts",
					Description: "Summarize the exporter's recurring orders and agreements",
					Keywords:    []string{"contract", "agreement", "recurring"},
					Handler:     handleManageContracts,
				},
				negotiatePriceAction(),
			},
		},
	}
}

func handleFindSuppliers(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	filter := database.ProductFilter{
		Category:    strings.ToLower(fieldString(fields, "category")),
		OrganicOnly: fieldBool(fields, "organic_only"),
		Limit:       50,
	}
	products, err := rt.Store.GetProducts(ctx, filter)
	if err != nil {
		return errorOutcome("I could not search for suppliers: %v", err)
	}

	minQuantity := fieldFloat(fields, "min_quantity")

	type supplier struct {
		name     string
		listings int
		volume   float64
	}
	byProducer := map[uuid.UUID]*supplier{}
	var order []uuid.UUID
	for _, p := range products {
		if minQuantity > 0 && p.AvailableQuantity < minQuantity {
			continue
		}
		s, ok := byProducer[p.ProducerID]
		if !ok {
			name := "Producer " + shortID(p.ProducerID)
			if p.Producer != nil {
				name = p.Producer.Name
			}
			s = &supplier{name: name}
			byProducer[p.ProducerID] = s
			order = append(order, p.ProducerID)
		}
		s.listings++
		s.volume += p.AvailableQuantity
	}

	if len(order) == 0 {
		return successOutcome("No suppliers match those requirements right now.", map[string]any{"count": 0})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🚢 %d suppliers can serve you:\n", len(order))
	for _, id := range order {
		s := byProducer[id]
		fmt.Fprintf(&sb, "• %s: %d listings, %g units available\n", s.name, s.listings, s.volume)
	}

	return successOutcome(sb.String(), map[string]any{"count": len(order)})
}

func handleBulkOrdering(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are before placing a bulk order. Please sign in first.")
	}

	items, _ := fields["items"].([]any)
	if len(items) == 0 {
		return failureOutcome("Tell me which products and quantities you want to order.")
	}
	address := fieldMap(fields, "delivery_address")

	// Ogni riga è un ordine separato verso il suo produttore; le righe
	// che falliscono vengono riportate senza annullare le altre
	var placed []string
	var skipped []string
	var total float64
	for _, raw := range items {
		item, _ := raw.(map[string]any)
		query := fieldString(item, "product_query")
		quantity := fieldFloat(item, "quantity")

		products, err := rt.Store.GetProducts(ctx, database.ProductFilter{Query: query, Limit: 1})
		if err != nil || len(products) == 0 {
			skipped = append(skipped, fmt.Sprintf("%s: not found", query))
			continue
		}
		product := products[0]

		if _, err := rt.Store.ReserveQuantity(ctx, product.ID, quantity); err != nil {
			if errors.Is(err, database.ErrInsufficientQuantity) {
				skipped = append(skipped, fmt.Sprintf("%s: %v", product.Name, err))
			} else {
				skipped = append(skipped, fmt.Sprintf("%s: unavailable", product.Name))
			}
			continue
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
		}
		if err := rt.Store.CreateTransaction(ctx, tx); err != nil {
			if relErr := rt.Store.ReleaseQuantity(ctx, product.ID, quantity); relErr != nil {
				log.Error().
					Err(relErr).
					Str("product_id", product.ID.String()).
					Msg("Failed to release reserved quantity")
			}
			skipped = append(skipped, fmt.Sprintf("%s: could not record the order", product.Name))
			continue
		}

		total += tx.TotalAmount
		placed = append(placed, fmt.Sprintf("%g %s of %s (%s)",
			quantity, product.Unit, product.Name, money(tx.TotalAmount, tx.Currency)))

		rt.Notifier.Notify(ctx, product.ProducerID, models.NotificationOrder,
			"New bulk order received",
			fmt.Sprintf("%s ordered %g %s of %s", user.Name, quantity, product.Unit, product.Name),
			map[string]any{"transaction_id": tx.ID.String()})
	}

	if len(placed) == 0 {
		return failureOutcome("I could not place any of the order lines:\n• " + strings.Join(skipped, "\n• "))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Bulk order placed, %d lines for %s:\n• %s",
		len(placed), money(total, "EUR"), strings.Join(placed, "\n• "))
	if len(skipped) > 0 {
		fmt.Fprintf(&sb, "\n⚠️ Skipped lines:\n• %s", strings.Join(skipped, "\n• "))
	}

	return successOutcome(sb.String(), map[string]any{
		"placed":       len(placed),
		"skipped":      len(skipped),
		"total_amount": total,
	})
}

func handleSupplierEvaluation(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	query := fieldString(fields, "supplier_query")

	products, err := rt.Store.GetProducts(ctx, database.ProductFilter{Query: query, Limit: 50})
	if err != nil {
		return errorOutcome("I could not look up the supplier: %v", err)
	}
	if len(products) == 0 {
		return failureOutcome(fmt.Sprintf("I found no supplier matching %q.", query))
	}

	producerID := products[0].ProducerID
	name := "Producer " + shortID(producerID)
	if products[0].Producer != nil {
		name = products[0].Producer.Name
	}

	var listings, organic int
	for _, p := range products {
		if p.ProducerID != producerID {
			continue
		}
		listings++
		if p.OrganicCertified {
			organic++
		}
	}

	certs, err := rt.Store.GetCertificationsForHolder(ctx, producerID)
	if err != nil {
		return errorOutcome("I could not fetch the supplier's certifications: %v", err)
	}
	var verified int
	for _, c := range certs {
		if c.VerificationStatus == models.VerificationStatusVerified {
			verified++
		}
	}

	content := fmt.Sprintf("📋 %s: %d active listings (%d organic), %d verified certifications out of %d on file.",
		name, listings, organic, verified, len(certs))

	return successOutcome(content, map[string]any{
		"supplier":       name,
		"listings":       listings,
		"certifications": verified,
	})
}

func handleManageContracts(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	user := requestUser(req)
	if user == nil {
		return failureOutcome("I need to know who you are to review your agreements. Please sign in first.")
	}

	txs, err := rt.Store.GetTransactionsForUser(ctx, user.ID, 100)
	if err != nil {
		return errorOutcome("I could not fetch your orders: %v", err)
	}

	// Un fornitore ricorrente è un venditore con più ordini non annullati
	counts := map[uuid.UUID]int{}
	for _, tx := range txs {
		if tx.BuyerID != user.ID || tx.Status == models.TransactionStatusCancelled {
			continue
		}
		counts[tx.SellerID]++
	}

	var recurring int
	for _, c := range counts {
		if c > 1 {
			recurring++
		}
	}

	content := fmt.Sprintf("📑 You trade with %d suppliers, %d of them on a recurring basis.",
		len(counts), recurring)

	return successOutcome(content, map[string]any{
		"suppliers": len(counts),
		"recurring": recurring,
	})
}
