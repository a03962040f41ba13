package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/agriconnect/internal/providers"
	"github.com/biodoia/agriconnect/pkg/database"
)

const marketQuerySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["category"],
  "properties": {
    "category": {"type": "string", "minLength": 1},
    "region": {"type": "string"},
    "weeks": {"type": "number", "minimum": 1, "maximum": 52}
  }
}`

// AnalystConfig è il catalogo dell'agente analista di mercato
func AnalystConfig() Config {
	return Config{
		Name:        "market_analyst",
		Role:        "market analyst",
		Description: "Analyzes market prices, trends and demand for agricultural categories.",
		Catalog: Catalog{
			Default: "market_trends",
			Actions: []ActionSpec{
				{
					Name:        "market_trends",
					Description: "Report the recent price trend for a category",
					Schema:      marketQuerySchema,
					Keywords:    []string{"trend", "market", "price history", "going up"},
					Handler:     handleMarketTrends,
				},
				{
					Name:        "price_forecast",
					Description: "Forecast the near-term price for a category",
					Schema:      marketQuerySchema,
					Keywords:    []string{"forecast", "predict", "next month", "expect"},
					Handler:     handlePriceForecast,
				},
				{
					Name:        "competitive_analysis",
					Description: "Compare current listings within a category",
					Schema:      marketQuerySchema,
					Keywords:    []string{"competitor", "compare", "positioning", "cheapest"},
					Handler:     handleCompetitiveAnalysis,
				},
				{
					Name:        "demand_analysis",
					Description: "Summarize traded volumes for a category",
					Schema:      marketQuerySchema,
					Keywords:    []string{"demand", "volume", "how much is sold"},
					Handler:     handleDemandAnalysis,
				},
			},
		},
	}
}

// marketWindow risolve la finestra temporale richiesta, default 8 settimane
func marketWindow(fields map[string]any) time.Time {
	weeks := fieldFloat(fields, "weeks")
	if weeks <= 0 {
		weeks = 8
	}
	return time.Now().AddDate(0, 0, -int(weeks)*7)
}

func handleMarketTrends(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	category := strings.ToLower(fieldString(fields, "category"))

	data, err := rt.Store.GetMarketData(ctx, category, marketWindow(fields))
	if err != nil {
		return errorOutcome("I could not fetch market data: %v", err)
	}
	if len(data) == 0 {
		return failureOutcome(fmt.Sprintf("I have no market data for %q in that period.", category))
	}

	// I dati arrivano ordinati per data crescente
	first, last := data[0], data[len(data)-1]
	change := 0.0
	if first.AveragePrice > 0 {
		change = (last.AveragePrice - first.AveragePrice) / first.AveragePrice * 100
	}

	direction := "stable"
	switch {
	case change > 2:
		direction = "rising"
	case change < -2:
		direction = "falling"
	}

	content := fmt.Sprintf("📈 %s prices are %s: %s → %s over %d data points (%+.1f%%).",
		category, direction,
		money(first.AveragePrice, first.Currency), money(last.AveragePrice, last.Currency),
		len(data), change)

	return successOutcome(content, map[string]any{
		"category":       category,
		"direction":      direction,
		"change_percent": change,
		"latest_price":   last.AveragePrice,
	})
}

func handlePriceForecast(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	category := strings.ToLower(fieldString(fields, "category"))

	data, err := rt.Store.GetMarketData(ctx, category, marketWindow(fields))
	if err != nil {
		return errorOutcome("I could not fetch market data: %v", err)
	}
	if len(data) < 2 {
		return failureOutcome(fmt.Sprintf("I need more history on %q before forecasting.", category))
	}

	var series strings.Builder
	for _, d := range data {
		fmt.Fprintf(&series, "%s: avg %.2f, min %.2f, max %.2f, volume %.0f\n",
			d.RecordedDate.Format("2006-01-02"), d.AveragePrice, d.MinPrice, d.MaxPrice, d.VolumeTraded)
	}

	reply, err := rt.Registry.Invoke(ctx, providers.TaskReasoning, []providers.Message{
		providers.SystemMessage("You are an agricultural market analyst. Given the weekly price series below, " +
			"give a short forecast for the next four weeks with a price range and one sentence of rationale.\n" +
			series.String()),
		providers.UserMessage(req.Message),
	})
	if err != nil {
		// Senza LLM ripieghiamo su un'estrapolazione lineare
		first, last := data[0], data[len(data)-1]
		drift := (last.AveragePrice - first.AveragePrice) / float64(len(data)-1)
		projected := last.AveragePrice + drift*4
		return successOutcome(
			fmt.Sprintf("🔮 Based on the recent drift, %s should trade around %s in four weeks.",
				category, money(projected, last.Currency)),
			map[string]any{"category": category, "projected_price": projected})
	}

	return successOutcome(reply.Content, map[string]any{"category": category})
}

func handleCompetitiveAnalysis(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	category := strings.ToLower(fieldString(fields, "category"))

	products, err := rt.Store.GetProducts(ctx, database.ProductFilter{Category: category, Limit: 50})
	if err != nil {
		return errorOutcome("I could not fetch the listings: %v", err)
	}
	if len(products) == 0 {
		return failureOutcome(fmt.Sprintf("There are no active listings in %q to compare.", category))
	}

	low, high, sum := products[0].PricePerUnit, products[0].PricePerUnit, 0.0
	for _, p := range products {
		if p.PricePerUnit < low {
			low = p.PricePerUnit
		}
		if p.PricePerUnit > high {
			high = p.PricePerUnit
		}
		sum += p.PricePerUnit
	}
	avg := sum / float64(len(products))

	content := fmt.Sprintf("🏷️ %d listings in %s: prices range %s to %s, average %s.",
		len(products), category,
		money(low, "EUR"), money(high, "EUR"), money(avg, "EUR"))

	return successOutcome(content, map[string]any{
		"category":      category,
		"listings":      len(products),
		"lowest_price":  low,
		"highest_price": high,
		"average_price": avg,
	})
}

func handleDemandAnalysis(ctx context.Context, rt *Runtime, req *Request, fields map[string]any) Outcome {
	category := strings.ToLower(fieldString(fields, "category"))

	data, err := rt.Store.GetMarketData(ctx, category, marketWindow(fields))
	if err != nil {
		return errorOutcome("I could not fetch market data: %v", err)
	}
	if len(data) == 0 {
		return failureOutcome(fmt.Sprintf("I have no traded volumes for %q in that period.", category))
	}

	var volume float64
	for _, d := range data {
		volume += d.VolumeTraded
	}
	weekly := volume / float64(len(data))

	content := fmt.Sprintf("📊 %s traded %.0f units over %d weeks, about %.0f per week.",
		category, volume, len(data), weekly)

	return successOutcome(content, map[string]any{
		"category":      category,
		"total_volume":  volume,
		"weekly_volume": weekly,
	})
}
