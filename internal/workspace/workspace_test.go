package workspace_test

import (
	"context"
	"html/template"
	"testing"
	"time"

	"boltvault/internal/domain/models"
	"boltvault/internal/events"
	"boltvault/internal/gallery"
	"boltvault/internal/gateway"
	"boltvault/internal/gateway/gatewaytest"
	"boltvault/internal/lib/logger/handlers/slogdiscard"
	"boltvault/internal/router"
	"boltvault/internal/workspace"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPages struct{}

func (nopPages) Landing(context.Context) (template.HTML, error)              { return "", nil }
func (nopPages) Gallery(context.Context, gallery.View) (template.HTML, error) { return "", nil }
func (nopPages) CharacterList(context.Context) (template.HTML, error)        { return "", nil }
func (nopPages) CharacterProfile(context.Context, uuid.UUID) (template.HTML, error) {
	return "", nil
}
func (nopPages) Settings(context.Context) (template.HTML, error) { return "", nil }
func (nopPages) Modal(context.Context, router.Modal, gallery.View) (template.HTML, error) {
	return "", nil
}
func (nopPages) Error(error) template.HTML { return "" }

func newRegistry(t *testing.T, gw gateway.Gateway, ttl time.Duration) (*workspace.Registry, *int) {
	t.Helper()

	log := slogdiscard.NewDiscardLogger()
	bus := events.NewBus()
	built := 0

	reg := workspace.NewRegistry(log, ttl, func(key string, _ uuid.UUID) *router.Router {
		built++
		return router.New(log, nopPages{}, gw, gallery.NewController(log, gw, 0), nil, bus, key)
	})
	bus.Subscribe(reg.Handle)

	return reg, &built
}

func TestRegistry_GetReusesWorkspace(t *testing.T) {
	reg, built := newRegistry(t, gatewaytest.New(20), time.Minute)
	userID := uuid.New()

	a := reg.Get("token-a", userID)
	b := reg.Get("token-a", userID)

	assert.Same(t, a, b)
	assert.Equal(t, 1, *built)
	assert.Equal(t, 1, reg.Len())

	other := reg.Get("token-a", uuid.New())
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, *built)
}

func TestRegistry_Drop(t *testing.T) {
	reg, _ := newRegistry(t, gatewaytest.New(20), time.Minute)

	reg.Get("token-a", uuid.New())
	reg.Drop("token-a")

	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Expires(t *testing.T) {
	reg, built := newRegistry(t, gatewaytest.New(20), 20*time.Millisecond)
	userID := uuid.New()

	reg.Get("token-a", userID)
	time.Sleep(40 * time.Millisecond)
	reg.Get("token-a", userID)

	assert.Equal(t, 2, *built)
}

func TestRegistry_DataChangedInvalidatesOtherWorkspaces(t *testing.T) {
	gw := gatewaytest.New(20)
	reg, _ := newRegistry(t, gw, time.Minute)
	userID := uuid.New()
	ctx := gateway.WithSession(context.Background(), &models.Session{UserID: userID})

	a := reg.Get("token-a", userID)
	b := reg.Get("token-b", userID)
	require.NoError(t, a.Router.Gallery().Load(ctx))
	require.NoError(t, b.Router.Gallery().Load(ctx))

	reg.Handle(events.Data(userID).From("token-a"))

	assert.True(t, a.Router.Gallery().Snapshot().Loaded)
	assert.False(t, b.Router.Gallery().Snapshot().Loaded)
}

func TestRegistry_SignOutDropsOrigin(t *testing.T) {
	reg, _ := newRegistry(t, gatewaytest.New(20), time.Minute)
	userID := uuid.New()

	reg.Get("token-a", userID)
	reg.Get("token-b", userID)

	reg.Handle(events.Auth(userID, false).From("token-a"))

	assert.Equal(t, 1, reg.Len())
}
