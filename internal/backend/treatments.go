package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/fisioagenda/scheduling-platform/internal/treatment"
)

// ListActiveOfferings returns the treatments currently offered for booking.
func (c *Client) ListActiveOfferings(ctx context.Context) ([]treatment.Offering, error) {
	var offerings []treatment.Offering
	if err := c.get(ctx, "/v1/treatments?active=true", &offerings); err != nil {
		return nil, fmt.Errorf("backend: list active offerings: %w", err)
	}
	return offerings, nil
}

// ListAccountsByOwner returns the treatment accounts held by one patient.
// The gate decides from these whether a new booking may start.
func (c *Client) ListAccountsByOwner(ctx context.Context, ownerRef string) ([]treatment.Account, error) {
	var accounts []treatment.Account
	path := "/v1/treatment-accounts?owner=" + url.QueryEscape(ownerRef)
	if err := c.get(ctx, path, &accounts); err != nil {
		return nil, fmt.Errorf("backend: list accounts by owner: %w", err)
	}
	return accounts, nil
}

// GetAccount returns a single treatment account by ID.
func (c *Client) GetAccount(ctx context.Context, id string) (*treatment.Account, error) {
	var acct treatment.Account
	if err := c.get(ctx, "/v1/treatment-accounts/"+url.PathEscape(id), &acct); err != nil {
		return nil, fmt.Errorf("backend: get treatment account: %w", err)
	}
	return &acct, nil
}

// CreateAccount opens a new treatment account. Evaluation-required
// offerings create the account in pending_evaluation with no appointments;
// staff review happens out-of-band.
func (c *Client) CreateAccount(ctx context.Context, acct treatment.Account) (*treatment.Account, error) {
	var created treatment.Account
	if err := c.do(ctx, "POST", "/v1/treatment-accounts", acct, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateAccount persists a lifecycle transition (evaluation passed,
// attendance recorded).
func (c *Client) UpdateAccount(ctx context.Context, acct treatment.Account) (*treatment.Account, error) {
	var updated treatment.Account
	if err := c.do(ctx, "PUT", "/v1/treatment-accounts/"+url.PathEscape(acct.ID), acct, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}
