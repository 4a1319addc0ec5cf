package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mergealert/models"
)

type fakeAPI struct {
	calls    int
	required bool
	err      error
	setupErr error
	setups   []models.SetupAdminRequest
}

func (f *fakeAPI) Bootstrap(context.Context) (*models.BootstrapStatus, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.BootstrapStatus{AdminSetupRequired: f.required}, nil
}

func (f *fakeAPI) SetupAdmin(_ context.Context, req models.SetupAdminRequest) error {
	f.setups = append(f.setups, req)
	return f.setupErr
}

func TestCheckAdminSetup_Caches(t *testing.T) {
	api := &fakeAPI{required: true}
	b := NewBootstrap(api)
	ctx := context.Background()

	_, known := b.Cached()
	assert.False(t, known)

	assert.True(t, b.CheckAdminSetup(ctx, false))
	api.required = false
	assert.True(t, b.CheckAdminSetup(ctx, false), "cached value wins without force")
	assert.Equal(t, 1, api.calls)

	assert.False(t, b.CheckAdminSetup(ctx, true))
	assert.Equal(t, 2, api.calls)
}

func TestCheckAdminSetup_ErrorCachesFalse(t *testing.T) {
	api := &fakeAPI{err: errors.New("connection refused")}
	b := NewBootstrap(api)

	assert.False(t, b.CheckAdminSetup(context.Background(), false))
	v, known := b.Cached()
	assert.True(t, known)
	assert.False(t, v)
}

func TestSetupAdmin(t *testing.T) {
	api := &fakeAPI{required: true}
	b := NewBootstrap(api)
	ctx := context.Background()
	require.True(t, b.CheckAdminSetup(ctx, false))

	req := models.SetupAdminRequest{Token: "setup-token", Email: "root@example.com", Password: "pw"}
	require.NoError(t, b.SetupAdmin(ctx, req))
	assert.False(t, b.CheckAdminSetup(ctx, false))
	assert.Equal(t, []models.SetupAdminRequest{req}, api.setups)
}

func TestSetupAdmin_FailureKeepsState(t *testing.T) {
	api := &fakeAPI{required: true, setupErr: errors.New("Invalid setup token")}
	b := NewBootstrap(api)
	ctx := context.Background()
	require.True(t, b.CheckAdminSetup(ctx, false))

	require.Error(t, b.SetupAdmin(ctx, models.SetupAdminRequest{Token: "bad"}))
	assert.True(t, b.CheckAdminSetup(ctx, false))
}

func TestMarkAdminSetupRequired(t *testing.T) {
	api := &fakeAPI{}
	b := NewBootstrap(api)
	ctx := context.Background()
	require.False(t, b.CheckAdminSetup(ctx, false))

	b.MarkAdminSetupRequired()
	assert.True(t, b.CheckAdminSetup(ctx, false))
	assert.Equal(t, 1, api.calls)
}
