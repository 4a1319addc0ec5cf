// Package alertapi wraps every REST endpoint of the merge alert server in a typed call.
package alertapi

import (
	"context"
	"net/url"

	"mergealert/services/gateway"
)

// Gateway is the subset of *gateway.Client the wrappers need.
type Gateway interface {
	Do(ctx context.Context, req gateway.Request, out any) error
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
	PostMultipart(ctx context.Context, path, field, filename string, data []byte, out any) error
}

// Client groups the endpoint wrappers.
type Client struct {
	gw Gateway
}

func New(gw Gateway) *Client {
	return &Client{gw: gw}
}
