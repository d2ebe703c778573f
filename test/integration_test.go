//go:build integration

package test

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/storefront-labs/order-service/internal/clients"
	"github.com/storefront-labs/order-service/internal/domain"
	"github.com/storefront-labs/order-service/internal/messaging"
	"github.com/storefront-labs/order-service/internal/orders"
	"github.com/storefront-labs/order-service/internal/resilience"
)

// fakeDownstream stands in for the product, customer, and inventory
// services during integration tests.
func fakeDownstream(t *testing.T, inStock bool, available int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/sku/{skuCode}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p1","skuCode":"` + r.PathValue("skuCode") + `","name":"Widget","price":"10.00"}`))
	})
	mux.HandleFunc("GET /api/customers/email/{email}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","email":"` + r.PathValue("email") + `"}`))
	})
	mux.HandleFunc("GET /api/inventory/check", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body, _ := json.Marshal(domain.StockStatus{InStock: inStock, AvailableQuantity: available})
		_, _ = w.Write(body)
	})

	return httptest.NewServer(mux)
}

func newOrderService(db *sql.DB, downstreamURL string, publisher orders.EventPublisher, client *http.Client) (*orders.Service, *orders.OrderRepository) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	policy := resilience.New[*domain.Order](resilience.Config{
		Name:           "orderService",
		AttemptTimeout: 5 * time.Second,
		MaxAttempts:    2,
		InitialBackoff: 10 * time.Millisecond,
		IsPermanent:    orders.IsBusinessRejection,
	}, logger)

	repo := orders.NewOrderRepository(db)
	service := orders.NewService(
		repo,
		clients.NewProductClient(downstreamURL, client),
		clients.NewCustomerClient(downstreamURL, client),
		clients.NewInventoryClient(downstreamURL, client),
		publisher,
		policy,
		nil,
		logger,
	)
	return service, repo
}

func orderMux(service *orders.Service, repo *orders.OrderRepository) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := orders.NewHandler(service, repo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", handler.HandlePlace)
	mux.HandleFunc("GET /orders", handler.HandleList)
	mux.HandleFunc("GET /orders/{id}", handler.HandleGet)
	mux.HandleFunc("GET /orders/number/{orderNumber}", handler.HandleGetByNumber)
	mux.HandleFunc("PUT /orders/{id}", handler.HandleUpdate)
	mux.HandleFunc("DELETE /orders/{id}", handler.HandleDelete)
	return mux
}

func TestOrderPlacementFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	brokers, cleanupKafka := SetupKafka(ctx, t)
	defer cleanupKafka()

	db, err := sql.Open("postgres", pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	downstream := fakeDownstream(t, true, 50)
	defer downstream.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	producer := messaging.NewProducer(brokers, "order.placed", logger)
	defer func() { _ = producer.Close() }()

	service, repo := newOrderService(db, downstream.URL, producer, downstream.Client())
	mux := orderMux(service, repo)

	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"skuCode":"SKU1","quantity":2,"email":"a@b.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var placed domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&placed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !placed.Price.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected price 10.00, got %s", placed.Price)
	}

	stored, err := repo.GetByOrderNumber(ctx, placed.OrderNumber)
	if err != nil {
		t.Fatalf("failed to fetch order: %v", err)
	}
	if stored == nil {
		t.Fatal("order not found in database")
	}
	if stored.Quantity != 2 || stored.Email != "a@b.com" {
		t.Fatalf("unexpected stored order: %+v", stored)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       "order.placed",
		GroupID:     "integration-test",
		StartOffset: kafka.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	msg, err := reader.ReadMessage(ctx)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.OrderNumber != placed.OrderNumber {
		t.Fatalf("event order number mismatch: %s vs %s", event.OrderNumber, placed.OrderNumber)
	}
	if !event.Amount.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected event amount 20.00, got %s", event.Amount)
	}
}

func TestPlacementRejectionPersistsNothing(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := sql.Open("postgres", pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	downstream := fakeDownstream(t, false, 1)
	defer downstream.Close()

	service, repo := newOrderService(db, downstream.URL, nil, downstream.Client())
	mux := orderMux(service, repo)

	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"skuCode":"SKU1","quantity":2,"email":"a@b.com"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["availableQuantity"] != float64(1) {
		t.Fatalf("expected availableQuantity 1, got %v", body["availableQuantity"])
	}

	stored, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("failed to list orders: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected no persisted orders, got %d", len(stored))
	}
}

func TestOrderLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pg := SetupPostgres(ctx, t)
	defer pg.Cleanup()

	db, err := sql.Open("postgres", pg.ConnStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	downstream := fakeDownstream(t, true, 50)
	defer downstream.Close()

	service, repo := newOrderService(db, downstream.URL, nil, downstream.Client())
	mux := orderMux(service, repo)

	req := httptest.NewRequest(http.MethodPost, "/orders",
		strings.NewReader(`{"skuCode":"SKU1","quantity":2,"email":"a@b.com"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var placed domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&placed); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders/"+placed.ID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by id: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders/number/"+placed.OrderNumber, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get by number: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders?email=a@b.com", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list by email: expected 200, got %d", rec.Code)
	}
	var listed []domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 order for email, got %d", len(listed))
	}

	req = httptest.NewRequest(http.MethodPut, "/orders/"+placed.ID,
		strings.NewReader(`{"quantity":7}`))
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Order
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode update: %v", err)
	}
	if updated.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", updated.Quantity)
	}

	req = httptest.NewRequest(http.MethodDelete, "/orders/"+placed.ID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/orders/"+placed.ID, nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}
