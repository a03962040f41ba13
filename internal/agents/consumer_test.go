package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/biodoia/agriconnect/pkg/models"
	"github.com/google/uuid"
)

func TestPlaceOrderReservesAndNotifies(t *testing.T) {
	rt, store, _ := newTestRuntime(
		"place_order",
		`{"product_query": "olive", "quantity": 5, "delivery_address": {"city": "Milan", "country": "IT"}}`,
	)
	producerID := uuid.New()
	product := store.addProduct(models.Product{
		Name: "Olive Oil", Category: "oil", Quantity: 100, PricePerUnit: 12, ProducerID: producerID,
	})

	a := newConsumerAgent(t, rt)
	out := a.Execute(context.Background(), consumerRequest("five olive oil to Milan"))

	if !out.Success {
		t.Fatalf("Success = false, content: %s", out.Content)
	}

	left, _ := store.GetProductByID(context.Background(), product.ID)
	if left.AvailableQuantity != 95 {
		t.Errorf("AvailableQuantity = %g, want 95", left.AvailableQuantity)
	}

	if len(store.transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.transactions))
	}
	for _, tx := range store.transactions {
		if tx.SellerID != producerID {
			t.Errorf("SellerID = %s, want the producer", tx.SellerID)
		}
		if tx.TotalAmount != 60 {
			t.Errorf("TotalAmount = %g, want 60", tx.TotalAmount)
		}
		if tx.Status != models.TransactionStatusPending {
			t.Errorf("Status = %s, want pending", tx.Status)
		}
	}

	if got := store.notificationsFor(producerID); len(got) != 1 {
		t.Errorf("producer notifications = %d, want 1", len(got))
	}
}

func TestPlaceOrderInsufficientQuantity(t *testing.T) {
	rt, store, _ := newTestRuntime(
		"place_order",
		`{"product_query": "olive", "quantity": 500, "delivery_address": {"city": "Milan"}}`,
	)
	product := store.addProduct(models.Product{
		Name: "Olive Oil", Category: "oil", Quantity: 100, PricePerUnit: 12, ProducerID: uuid.New(),
	})

	a := newConsumerAgent(t, rt)
	out := a.Execute(context.Background(), consumerRequest("five hundred olive oil"))

	if out.Success {
		t.Fatal("Success = true, want a failure for insufficient quantity")
	}
	if out.Error {
		t.Fatal("Error = true, insufficient stock is a business failure")
	}
	if !strings.Contains(out.Content, "only 100 kg available") {
		t.Errorf("Content = %q, want the remaining quantity mentioned", out.Content)
	}

	left, _ := store.GetProductByID(context.Background(), product.ID)
	if left.AvailableQuantity != 100 {
		t.Errorf("AvailableQuantity = %g, want untouched 100", left.AvailableQuantity)
	}
	if len(store.transactions) != 0 {
		t.Errorf("transactions = %d, want none", len(store.transactions))
	}
}

func TestPlaceOrderReleasesOnCreateFailure(t *testing.T) {
	rt, store, _ := newTestRuntime(
		"place_order",
		`{"product_query": "olive", "quantity": 5, "delivery_address": {"city": "Milan"}}`,
	)
	product := store.addProduct(models.Product{
		Name: "Olive Oil", Category: "oil", Quantity: 100, PricePerUnit: 12, ProducerID: uuid.New(),
	})
	store.failCreateTransaction = true

	a := newConsumerAgent(t, rt)
	out := a.Execute(context.Background(), consumerRequest("five olive oil"))

	if !out.Error {
		t.Fatal("Error = false, want an internal error outcome")
	}

	// La quantità prenotata deve tornare disponibile
	left, _ := store.GetProductByID(context.Background(), product.ID)
	if left.AvailableQuantity != 100 {
		t.Errorf("AvailableQuantity = %g, want 100 after release", left.AvailableQuantity)
	}
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	rt, _, _ := newTestRuntime(
		"place_order",
		`{"product_query": "truffle", "quantity": 1, "delivery_address": {"city": "Milan"}}`,
	)

	a := newConsumerAgent(t, rt)
	out := a.Execute(context.Background(), consumerRequest("a truffle please"))

	if out.Success || out.Error {
		t.Fatalf("want a plain business failure, got Success=%v Error=%v", out.Success, out.Error)
	}
	if !strings.Contains(out.Content, "truffle") {
		t.Errorf("Content = %q, want the query echoed", out.Content)
	}
}

func TestPlaceOrderRequiresUser(t *testing.T) {
	rt, store, _ := newTestRuntime(
		"place_order",
		`{"product_query": "olive", "quantity": 5, "delivery_address": {"city": "Milan"}}`,
	)
	store.addProduct(models.Product{Name: "Olive Oil", Quantity: 100, PricePerUnit: 12, ProducerID: uuid.New()})

	a := newConsumerAgent(t, rt)
	out := a.Execute(context.Background(), &Request{Message: "five olive oil"})

	if out.Success {
		t.Fatal("Success = true, want a failure for the anonymous request")
	}
	if !strings.Contains(out.Content, "sign in") {
		t.Errorf("Content = %q, want a sign in hint", out.Content)
	}
}

func TestSearchProductsFilters(t *testing.T) {
	rt, store, _ := newTestRuntime(
		"search_products",
		`{"query": "", "category": "oil", "organic_only": true}`,
	)
	store.addProduct(models.Product{Name: "Olive Oil", Category: "oil", Quantity: 10, PricePerUnit: 12, OrganicCertified: true, ProducerID: uuid.New()})
	store.addProduct(models.Product{Name: "Sunflower Oil", Category: "oil", Quantity: 10, PricePerUnit: 4, ProducerID: uuid.New()})

	a := newConsumerAgent(t, rt)
	out := a.Execute(context.Background(), consumerRequest("organic oils"))

	if !out.Success {
		t.Fatalf("Success = false, content: %s", out.Content)
	}
	if count, _ := out.Data["count"].(int); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if !strings.Contains(out.Content, "Olive Oil") || strings.Contains(out.Content, "Sunflower") {
		t.Errorf("Content = %q, want only the organic listing", out.Content)
	}
}

func TestSearchProductsEmptyCatalog(t *testing.T) {
	rt, _, _ := newTestRuntime("search_products", `{"query": "mango"}`)

	a := newConsumerAgent(t, rt)
	out := a.Execute(context.Background(), consumerRequest("any mango?"))

	if !out.Success {
		t.Fatalf("an empty result is still a successful search, content: %s", out.Content)
	}
	if count, _ := out.Data["count"].(int); count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}
