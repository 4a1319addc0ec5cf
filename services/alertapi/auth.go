package alertapi

import (
	"context"
	"net/http"

	"mergealert/models"
	"mergealert/services/gateway"
)

// Login exchanges credentials for an access token. A 401 here is returned as
// is and never triggers a refresh.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/login", Body: req, SkipAuthFailure: true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/register", Body: req, SkipAuthFailure: true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout is sent without the auth failure handler: an expired session is already logged out.
func (c *Client) Logout(ctx context.Context) error {
	return c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/logout", SkipAuthFailure: true}, nil)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	body := map[string]string{"token": refreshToken}
	if err := c.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/refresh", Body: body, SkipAuthFailure: true}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Profile(ctx context.Context) (*models.Account, error) {
	var account models.Account
	if err := c.gw.Get(ctx, "/auth/profile", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	return c.gw.Post(ctx, "/auth/change-password", req, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.Account, error) {
	var account models.Account
	if err := c.gw.Put(ctx, "/auth/profile", req, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) UploadAvatar(ctx context.Context, filename string, data []byte) (string, error) {
	var resp models.AvatarResponse
	if err := c.gw.PostMultipart(ctx, "/auth/avatar", "avatar", filename, data, &resp); err != nil {
		return "", err
	}
	return resp.Avatar, nil
}
