package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/events"
	"storefront-service/internal/models"
	"storefront-service/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShopAPI struct {
	mu        sync.Mutex
	submitted []models.OrderPayload
	result    apiclient.OrderResult
	submitErr error
}

func (f *fakeShopAPI) FetchProducts(ctx context.Context) ([]models.Product, error) {
	return nil, errors.New("not used in flow tests")
}

func (f *fakeShopAPI) SubmitOrder(ctx context.Context, payload models.OrderPayload, idempotencyKey string) (*apiclient.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, payload)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	result := f.result
	return &result, nil
}

func (f *fakeShopAPI) submittedPayloads() []models.OrderPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderPayload(nil), f.submitted...)
}

func price(v int64) *int64 {
	return &v
}

func testCatalog() *models.Catalog {
	c := models.NewCatalog()
	c.Replace([]models.Product{
		{ID: "p1", Title: "alpha", Category: models.CategorySoftSkill, Price: price(100)},
		{ID: "p2", Title: "beta", Category: models.CategoryOther, Price: price(50)},
		{ID: "priceless", Title: "gamma", Category: models.CategoryButton},
	})
	return c
}

func newTestFlow(catalog *models.Catalog, api apiclient.ShopAPI) (*Flow, *view.State) {
	bus := events.NewBus()
	state := view.NewState(bus)
	flow := NewFlow("test-session", bus, catalog, api, []string{"card", "cash"}, 2*time.Second, nil)
	flow.Init()
	return flow, state
}

func fillStage1(flow *Flow) {
	flow.Dispatch(events.OrderOpen, nil)
	flow.Dispatch(events.OrderField, events.FieldPayload{Field: "payment", Value: "card"})
	flow.Dispatch(events.OrderField, events.FieldPayload{Field: "address", Value: "123 Main St"})
}

func fillStage2(flow *Flow) {
	flow.Dispatch(events.ContactsField, events.FieldPayload{Field: "email", Value: "user@example.com"})
	flow.Dispatch(events.ContactsField, events.FieldPayload{Field: "phone", Value: "+7 999 123 45 67"})
}

func TestInitialScreenIsCatalog(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	assert.Equal(t, events.ScreenCatalog, flow.Screen())

	snap := state.Snapshot()
	assert.Equal(t, events.ScreenCatalog, snap.Screen)
	render, ok := snap.ScreenData.(CatalogRender)
	require.True(t, ok)
	assert.Len(t, render.Products, 3)
	assert.Empty(t, snap.Notice)
}

func TestEmptyCatalogRendersUnavailableNotice(t *testing.T) {
	flow, state := newTestFlow(models.NewCatalog(), &fakeShopAPI{})

	assert.Equal(t, events.ScreenCatalog, flow.Screen())
	assert.Equal(t, "catalog unavailable", state.Snapshot().Notice)
}

func TestProductDetailCarriesMembership(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	flow.Dispatch(events.ProductSelected, events.ProductPayload{ID: "p1"})

	snap := state.Snapshot()
	require.Equal(t, events.ScreenProduct, snap.Screen)
	render, ok := snap.ScreenData.(ProductRender)
	require.True(t, ok)
	assert.Equal(t, "p1", render.Product.ID)
	assert.False(t, render.InBasket)
}

func TestAddFromDetailFlipsMembershipAndStays(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	flow.Dispatch(events.ProductSelected, events.ProductPayload{ID: "p1"})
	flow.Dispatch(events.BasketAdd, events.ProductPayload{ID: "p1"})

	snap := state.Snapshot()
	assert.Equal(t, events.ScreenProduct, snap.Screen)
	render := snap.ScreenData.(ProductRender)
	assert.True(t, render.InBasket)
	assert.Equal(t, 1, snap.CartCount)

	flow.Dispatch(events.BasketRemove, events.RemovePayload{ID: "p1", Origin: events.OriginProduct})

	snap = state.Snapshot()
	assert.Equal(t, events.ScreenProduct, snap.Screen)
	render = snap.ScreenData.(ProductRender)
	assert.False(t, render.InBasket)
	assert.Equal(t, 0, snap.CartCount)
}

func TestUnknownProductIsNoop(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	flow.Dispatch(events.ProductSelected, events.ProductPayload{ID: "missing"})
	flow.Dispatch(events.BasketAdd, events.ProductPayload{ID: "missing"})

	assert.Equal(t, events.ScreenCatalog, flow.Screen())
	assert.Equal(t, 0, state.Snapshot().CartCount)
}

func TestRemoveFromBasketViewRerendersInPlace(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	flow.Dispatch(events.BasketAdd, events.ProductPayload{ID: "p1"})
	flow.Dispatch(events.BasketAdd, events.ProductPayload{ID: "p2"})
	flow.Dispatch(events.BasketOpen, nil)

	snap := state.Snapshot()
	require.Equal(t, events.ScreenBasket, snap.Screen)
	render := snap.ScreenData.(BasketRender)
	assert.Equal(t, int64(150), render.Total)
	require.Len(t, render.Products, 2)

	flow.Dispatch(events.BasketRemove, events.RemovePayload{ID: "p1", Origin: events.OriginBasket})

	snap = state.Snapshot()
	assert.Equal(t, events.ScreenBasket, snap.Screen)
	render = snap.ScreenData.(BasketRender)
	assert.Equal(t, int64(50), render.Total)
	require.Len(t, render.Products, 1)
	assert.Equal(t, "p2", render.Products[0].ID)
	assert.Equal(t, 1, snap.CartCount)
}

func TestStepOneGateBlocksInvalidDraft(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	flow.Dispatch(events.OrderOpen, nil)
	flow.Dispatch(events.OrderField, events.FieldPayload{Field: "address", Value: "ab"})
	flow.Dispatch(events.OrderSubmit, nil)

	snap := state.Snapshot()
	assert.Equal(t, events.ScreenOrder, snap.Screen)
	assert.NotEmpty(t, snap.Errors)
	assert.False(t, snap.SubmitEnabled)
}

func TestStepOneAdvancesWhenValid(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	fillStage1(flow)
	assert.True(t, state.Snapshot().SubmitEnabled)

	flow.Dispatch(events.OrderSubmit, nil)

	assert.Equal(t, events.ScreenContacts, flow.Screen())
}

func TestCheckoutHappyPath(t *testing.T) {
	api := &fakeShopAPI{result: apiclient.OrderResult{ID: "ord-1", Total: 9999}}
	flow, state := newTestFlow(testCatalog(), api)

	flow.Dispatch(events.BasketAdd, events.ProductPayload{ID: "p2"})
	fillStage1(flow)
	flow.Dispatch(events.OrderSubmit, nil)
	fillStage2(flow)
	flow.Dispatch(events.ContactsSubmit, nil)

	require.Eventually(t, func() bool {
		return flow.Screen() == events.ScreenSuccess
	}, 2*time.Second, 10*time.Millisecond)

	// The success screen carries the server's authoritative total, not the
	// locally computed one.
	snap := state.Snapshot()
	render := snap.ScreenData.(SuccessRender)
	assert.Equal(t, "ord-1", render.OrderID)
	assert.Equal(t, int64(9999), render.Total)

	payloads := api.submittedPayloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "card", payloads[0].Payment)
	assert.Equal(t, int64(50), payloads[0].Total)
	assert.Equal(t, []string{"p2"}, payloads[0].Items)

	flow.Dispatch(events.SuccessClose, nil)

	snap = state.Snapshot()
	assert.Equal(t, events.ScreenCatalog, snap.Screen)
	assert.Equal(t, 0, snap.CartCount)
	assert.Equal(t, 0, flow.Basket().Len())
}

func TestSubmitFailureKeepsStateIntact(t *testing.T) {
	api := &fakeShopAPI{submitErr: errors.New("insufficient funds")}
	flow, state := newTestFlow(testCatalog(), api)

	flow.Dispatch(events.BasketAdd, events.ProductPayload{ID: "p1"})
	fillStage1(flow)
	flow.Dispatch(events.OrderSubmit, nil)
	fillStage2(flow)
	flow.Dispatch(events.ContactsSubmit, nil)

	require.Eventually(t, func() bool {
		return state.Snapshot().Notice != ""
	}, 2*time.Second, 10*time.Millisecond)

	snap := state.Snapshot()
	assert.Equal(t, events.ScreenContacts, snap.Screen)
	assert.Contains(t, snap.Notice, "insufficient funds")

	// Basket and draft survive for a retry.
	assert.Equal(t, 1, flow.Basket().Len())

	api.mu.Lock()
	api.submitErr = nil
	api.result = apiclient.OrderResult{ID: "ord-2", Total: 100}
	api.mu.Unlock()

	flow.Dispatch(events.ContactsSubmit, nil)
	require.Eventually(t, func() bool {
		return flow.Screen() == events.ScreenSuccess
	}, 2*time.Second, 10*time.Millisecond)
}

func TestContactsSubmitValidatesFullDraft(t *testing.T) {
	api := &fakeShopAPI{}
	flow, state := newTestFlow(testCatalog(), api)

	fillStage1(flow)
	flow.Dispatch(events.OrderSubmit, nil)
	flow.Dispatch(events.ContactsField, events.FieldPayload{Field: "email", Value: "no-at-sign"})
	flow.Dispatch(events.ContactsSubmit, nil)

	snap := state.Snapshot()
	assert.Equal(t, events.ScreenContacts, snap.Screen)
	assert.NotEmpty(t, snap.Errors)
	assert.Empty(t, api.submittedPayloads())
}

func TestFieldEditsValidateEagerly(t *testing.T) {
	flow, state := newTestFlow(testCatalog(), &fakeShopAPI{})

	flow.Dispatch(events.OrderOpen, nil)
	assert.False(t, state.Snapshot().SubmitEnabled)

	flow.Dispatch(events.OrderField, events.FieldPayload{Field: "payment", Value: "cash"})
	snap := state.Snapshot()
	assert.False(t, snap.SubmitEnabled)
	assert.NotEmpty(t, snap.Errors)

	flow.Dispatch(events.OrderField, events.FieldPayload{Field: "address", Value: "Lenina 15, kv 3"})
	snap = state.Snapshot()
	assert.True(t, snap.SubmitEnabled)
	assert.Empty(t, snap.Errors)
}
