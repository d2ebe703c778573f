package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/order-service/internal/domain"
	"github.com/storefront-labs/order-service/internal/resilience"
)

// Downstream capabilities the placement service depends on. Concrete HTTP
// implementations live in internal/clients; tests inject fakes.

type ProductClient interface {
	GetBySkuCode(ctx context.Context, skuCode string) (*domain.Product, error)
}

type CustomerClient interface {
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
}

type InventoryClient interface {
	CheckStock(ctx context.Context, skuCode string, quantity int) (*domain.StockStatus, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, order *domain.Order) error
	DeleteByID(ctx context.Context, id string) error
}

// IsBusinessRejection reports whether err is a business outcome rather than
// a fault. Wired into the resilience policy as its permanent-error
// classifier: rejections are never retried and never trip the breaker.
func IsBusinessRejection(err error) bool {
	var rejection *domain.RejectionError
	return errors.As(err, &rejection)
}

// Service orchestrates order placement: sequential validation against the
// product, customer, and inventory services, the durable write, and the
// fire-and-forget event publish, all governed by one resilience policy.
type Service struct {
	store     OrderStore
	products  ProductClient
	customers CustomerClient
	inventory InventoryClient
	publisher EventPublisher
	policy    *resilience.Policy[*domain.Order]
	metrics   *Metrics
	logger    *slog.Logger
}

func NewService(
	store OrderStore,
	products ProductClient,
	customers CustomerClient,
	inventory InventoryClient,
	publisher EventPublisher,
	policy *resilience.Policy[*domain.Order],
	metrics *Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		products:  products,
		customers: customers,
		inventory: inventory,
		publisher: publisher,
		policy:    policy,
		metrics:   metrics,
		logger:    logger,
	}
}

// PlaceOrder validates the input, then runs the downstream checks, the
// write, and the event publish under the placement policy. It returns the
// persisted order, a *domain.RejectionError, or a *domain.UnavailableError.
func (s *Service) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if err := validateOrder(order); err != nil {
		s.metrics.OrderRejected(ctx)
		return nil, err
	}

	placed, err := s.policy.Execute(ctx,
		func(ctx context.Context) (*domain.Order, error) {
			return s.placeOnce(ctx, order)
		},
		func(cause error) (*domain.Order, error) {
			return nil, s.fallback(order, cause)
		},
	)
	if err != nil {
		var unavailable *domain.UnavailableError
		if errors.As(err, &unavailable) {
			s.metrics.PlacementUnavailable(ctx)
		} else {
			s.metrics.OrderRejected(ctx)
		}
		return nil, err
	}

	s.metrics.OrderPlaced(ctx)
	return placed, nil
}

func validateOrder(order *domain.Order) error {
	if order == nil {
		return domain.Reject("order body is required")
	}
	if strings.TrimSpace(order.SkuCode) == "" {
		return domain.Reject("order skuCode is required")
	}
	if order.Quantity <= 0 {
		return domain.Reject("order quantity must be positive")
	}
	if strings.TrimSpace(order.Email) == "" {
		return domain.Reject("customer email is required")
	}
	return nil
}

// placeOnce is a single attempt at steps 1-5. Each step gates the next; a
// rejection short-circuits the remaining downstream calls.
func (s *Service) placeOnce(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	product, err := s.products.GetBySkuCode(ctx, order.SkuCode)
	if errors.Is(err, domain.ErrProductNotFound) {
		return nil, domain.Reject("product not found for skuCode: %s", order.SkuCode)
	}
	if err != nil {
		return nil, err
	}
	order.Price = product.Price

	_, err = s.customers.GetByEmail(ctx, order.Email)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return nil, domain.Reject("customer not found for email: %s", order.Email)
	}
	if err != nil {
		return nil, err
	}

	stock, err := s.inventory.CheckStock(ctx, order.SkuCode, order.Quantity)
	if errors.Is(err, domain.ErrInventoryCheck) {
		return nil, domain.Reject("inventory check failed for skuCode: %s", order.SkuCode)
	}
	if err != nil {
		return nil, err
	}
	if !stock.InStock {
		available := stock.AvailableQuantity
		return nil, &domain.RejectionError{
			Reason:            fmt.Sprintf("insufficient stock for skuCode: %s", order.SkuCode),
			AvailableQuantity: &available,
		}
	}

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	// A fresh order number on every placement, caller input notwithstanding.
	order.OrderNumber = uuid.New().String()
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt

	if err := s.store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	s.logger.Info("order placed", "order_number", order.OrderNumber, "order_id", order.ID)

	if s.publisher != nil {
		event := domain.OrderPlacedEvent{
			OrderNumber: order.OrderNumber,
			OrderID:     order.ID,
			Email:       order.Email,
			SkuCode:     order.SkuCode,
			Quantity:    order.Quantity,
			Amount:      order.Total(),
		}
		// Best effort: the order is already durable, so a publish failure
		// is logged and the outcome stands.
		if err := s.publisher.Publish(ctx, order.OrderNumber, event); err != nil {
			s.logger.Error("failed to publish order placed event",
				"error", err, "order_number", order.OrderNumber)
		} else {
			s.metrics.EventPublished(ctx)
		}
	}

	return order, nil
}

// fallback degrades a placement that could not complete: circuit open,
// retries exhausted, or an unexpected downstream fault. Attribution of the
// failing service is a best-effort scan of the fault text; the clients wrap
// every error with their service name to keep it honest.
func (s *Service) fallback(order *domain.Order, cause error) *domain.UnavailableError {
	s.logger.Error("order placement fallback activated",
		"error", cause, "error_type", fmt.Sprintf("%T", cause))

	service := "downstream service"
	text := strings.ToLower(cause.Error())
	switch {
	case strings.Contains(text, "product"):
		service = "Product Service"
	case strings.Contains(text, "customer"):
		service = "Customer Service"
	case strings.Contains(text, "inventory"):
		service = "Inventory Service"
	}

	skuCode := order.SkuCode
	if skuCode == "" {
		skuCode = "N/A"
	}
	email := order.Email
	if email == "" {
		email = "N/A"
	}

	return &domain.UnavailableError{
		Message:    "Order placement service is temporarily unavailable. Please try again in a few moments.",
		Service:    service,
		Timestamp:  time.Now().UTC(),
		SkuCode:    skuCode,
		Quantity:   order.Quantity,
		Email:      email,
		Suggestion: "Our engineering team has been notified. Please retry your order in 30 seconds.",
	}
}
