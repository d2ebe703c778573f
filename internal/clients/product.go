// Package clients holds the HTTP accessors for the product, customer, and
// inventory services. Every transport or decode fault is wrapped with the
// service name so callers can attribute failures.
package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/storefront-labs/order-service/internal/domain"
)

type ProductClient struct {
	baseURL string
	client  *http.Client
}

func NewProductClient(baseURL string, client *http.Client) *ProductClient {
	return &ProductClient{baseURL: baseURL, client: client}
}

// GetBySkuCode looks up a product in the catalog. A non-2xx response is
// domain.ErrProductNotFound; transport and decode faults are returned as
// wrapped errors.
func (c *ProductClient) GetBySkuCode(ctx context.Context, skuCode string) (*domain.Product, error) {
	endpoint := c.baseURL + "/api/products/sku/" + url.PathEscape(skuCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("product service: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("product service: get product by sku %s: %w", skuCode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrProductNotFound
	}

	var product domain.Product
	if err := decodeBody(resp, &product); err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}
	return &product, nil
}
