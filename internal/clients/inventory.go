package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/storefront-labs/order-service/internal/domain"
)

type InventoryClient struct {
	baseURL string
	client  *http.Client
}

func NewInventoryClient(baseURL string, client *http.Client) *InventoryClient {
	return &InventoryClient{baseURL: baseURL, client: client}
}

// CheckStock queries availability for a sku and requested quantity. A
// non-2xx response is domain.ErrInventoryCheck.
func (c *InventoryClient) CheckStock(ctx context.Context, skuCode string, quantity int) (*domain.StockStatus, error) {
	query := url.Values{}
	query.Set("skuCode", skuCode)
	query.Set("quantity", strconv.Itoa(quantity))
	endpoint := c.baseURL + "/api/inventory/check?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("inventory service: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inventory service: check stock for sku %s: %w", skuCode, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrInventoryCheck
	}

	var status domain.StockStatus
	if err := decodeBody(resp, &status); err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}
	return &status, nil
}

func decodeBody(resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
