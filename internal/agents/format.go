package agents

import (
	"fmt"
	"strings"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

// Accessori tolleranti per i campi estratti dal provider

func fieldString(fields map[string]any, key string) string {
	if fields == nil {
		return ""
	}
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

func fieldFloat(fields map[string]any, key string) float64 {
	if fields == nil {
		return 0
	}
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func fieldBool(fields map[string]any, key string) bool {
	if fields == nil {
		return false
	}
	b, _ := fields[key].(bool)
	return b
}

func fieldMap(fields map[string]any, key string) map[string]any {
	if fields == nil {
		return nil
	}
	m, _ := fields[key].(map[string]any)
	return m
}

// shortID restituisce il prefisso leggibile di un UUID per i messaggi
func shortID(id uuid.UUID) string {
	return "#" + id.String()[:8]
}

// money formatta un importo con la sua valuta
func money(amount float64, currency string) string {
	if currency == "" {
		currency = "EUR"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

// productLine formatta una riga di listino prodotto
func productLine(p models.Product) string {
	organic := ""
	if p.OrganicCertified {
		organic = " 🌱 organic"
	}
	return fmt.Sprintf("• %s (%s) — %s/%s, %g %s available%s",
		p.Name, p.Category, money(p.PricePerUnit, p.Currency), p.Unit,
		p.AvailableQuantity, p.Unit, organic)
}

// transactionLine formatta una riga di ordine
func transactionLine(tx models.Transaction) string {
	name := "product"
	if tx.Product != nil {
		name = tx.Product.Name
	}
	return fmt.Sprintf("• %s — %g × %s = %s [%s]",
		name, tx.Quantity, money(tx.UnitPrice, tx.Currency),
		money(tx.TotalAmount, tx.Currency), tx.Status)
}
