package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/storefront-labs/order-service/internal/domain"
)

type CustomerClient struct {
	baseURL string
	client  *http.Client
}

func NewCustomerClient(baseURL string, client *http.Client) *CustomerClient {
	return &CustomerClient{baseURL: baseURL, client: client}
}

// GetByEmail looks up a customer in the directory. A non-2xx response is
// domain.ErrCustomerNotFound.
func (c *CustomerClient) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	endpoint := c.baseURL + "/api/customers/email/" + url.PathEscape(email)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("customer service: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("customer service: get customer by email %s: %w", email, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.ErrCustomerNotFound
	}

	var customer domain.Customer
	if err := decodeBody(resp, &customer); err != nil {
		return nil, fmt.Errorf("customer service: %w", err)
	}
	return &customer, nil
}
