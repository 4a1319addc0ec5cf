package alertapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"mergealert/models"
)

func (c *Client) ListAccounts(ctx context.Context, q models.AccountQuery) (*models.AccountPage, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Role != "" {
		params.Set("role", q.Role)
	}
	var page models.AccountPage
	if err := c.gw.Get(ctx, "/accounts", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) CreateAccount(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error) {
	var account models.Account
	if err := c.gw.Post(ctx, "/accounts", req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) UpdateAccount(ctx context.Context, id uint, req models.UpdateAccountRequest) (*models.Account, error) {
	var account models.Account
	if err := c.gw.Put(ctx, fmt.Sprintf("/accounts/%d", id), req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id uint) error {
	return c.gw.Delete(ctx, fmt.Sprintf("/accounts/%d", id), nil)
}

// ResetAccountPassword sets a new password for another account (admin only).
func (c *Client) ResetAccountPassword(ctx context.Context, id uint, newPassword string) error {
	return c.gw.Put(ctx, fmt.Sprintf("/accounts/%d/password", id), map[string]string{"new_password": newPassword}, nil)
}
