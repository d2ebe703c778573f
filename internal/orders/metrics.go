package orders

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts placement outcomes on the global meter. A nil *Metrics is
// a no-op, which keeps unit tests free of meter setup.
type Metrics struct {
	placed      metric.Int64Counter
	rejected    metric.Int64Counter
	unavailable metric.Int64Counter
	published   metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("orders")

	placed, err := meter.Int64Counter("orders_placed_total",
		metric.WithDescription("Orders successfully placed"))
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("orders_rejected_total",
		metric.WithDescription("Placement requests rejected for business reasons"))
	if err != nil {
		return nil, err
	}

	unavailable, err := meter.Int64Counter("orders_unavailable_total",
		metric.WithDescription("Placement requests that ended in the fallback path"))
	if err != nil {
		return nil, err
	}

	published, err := meter.Int64Counter("order_events_published_total",
		metric.WithDescription("OrderPlacedEvents handed to the broker"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		placed:      placed,
		rejected:    rejected,
		unavailable: unavailable,
		published:   published,
	}, nil
}

func (m *Metrics) OrderPlaced(ctx context.Context) {
	if m != nil {
		m.placed.Add(ctx, 1)
	}
}

func (m *Metrics) OrderRejected(ctx context.Context) {
	if m != nil {
		m.rejected.Add(ctx, 1)
	}
}

func (m *Metrics) PlacementUnavailable(ctx context.Context) {
	if m != nil {
		m.unavailable.Add(ctx, 1)
	}
}

func (m *Metrics) EventPublished(ctx context.Context) {
	if m != nil {
		m.published.Add(ctx, 1)
	}
}
