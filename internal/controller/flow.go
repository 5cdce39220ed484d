// Package controller contains the flow controller that coordinates the
// storefront: it subscribes to user-intent events, mutates the basket and
// order form, calls the upstream shop API and emits render events for the
// view layer. It is the only writer of a session's models.
package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/apiclient"
	"storefront-service/internal/events"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Analytics receives checkout lifecycle notifications. Implementations must
// not block checkout: failures are logged, never surfaced to the user.
type Analytics interface {
	OrderCompleted(ctx context.Context, sessionID string, payload models.OrderPayload, result apiclient.OrderResult) error
	OrderFailed(ctx context.Context, sessionID string, reason string) error
}

// Render models per screen.

type CatalogRender struct {
	Products []models.Product `json:"products"`
}

type ProductRender struct {
	Product  models.Product `json:"product"`
	InBasket bool           `json:"in_basket"`
}

type BasketRender struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

type OrderRender struct {
	PaymentMethods []string `json:"payment_methods"`
}

type ContactsRender struct{}

type SuccessRender struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
}

// Flow sequences the storefront screens for one session. External intents
// enter through Dispatch, which serializes under a mutex: bus publishes
// inside a dispatch are synchronous and depth-first on the same goroutine,
// and async submit completions re-enter through the same lock, so there is
// exactly one logical writer.
type Flow struct {
	mu sync.Mutex

	sessionID     string
	bus           *events.Bus
	catalog       *models.Catalog
	basket        *models.Basket
	form          *models.OrderForm
	api           apiclient.ShopAPI
	analytics     Analytics
	submitTimeout time.Duration
	logger        *zap.Logger

	screen        string
	activeProduct string
	submitting    bool
}

// NewFlow wires a controller to bus and renders the initial catalog screen.
// analytics may be nil.
func NewFlow(
	sessionID string,
	bus *events.Bus,
	catalog *models.Catalog,
	api apiclient.ShopAPI,
	paymentMethods []string,
	submitTimeout time.Duration,
	analytics Analytics,
) *Flow {
	f := &Flow{
		sessionID:     sessionID,
		bus:           bus,
		catalog:       catalog,
		basket:        models.NewBasket(),
		form:          models.NewOrderForm(paymentMethods),
		api:           api,
		analytics:     analytics,
		submitTimeout: submitTimeout,
		logger:        util.GetLogger().With(zap.String("session_id", sessionID)),
	}

	f.register()
	return f
}

// Dispatch delivers an external intent. It must not be called from inside an
// event handler; handlers publish on the bus directly.
func (f *Flow) Dispatch(name string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bus.Publish(name, payload)
}

// Init renders the initial catalog screen.
func (f *Flow) Init() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showCatalog()
}

// Screen returns the active screen name.
func (f *Flow) Screen() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.screen
}

// Basket exposes the session basket for read-only inspection.
func (f *Flow) Basket() *models.Basket {
	return f.basket
}

func (f *Flow) register() {
	f.bus.Subscribe(events.ProductSelected, func(payload interface{}) {
		p, ok := payload.(events.ProductPayload)
		if !ok {
			return
		}
		f.handleProductSelected(p.ID)
	})

	f.bus.Subscribe(events.BasketAdd, func(payload interface{}) {
		p, ok := payload.(events.ProductPayload)
		if !ok {
			return
		}
		f.handleBasketAdd(p.ID)
	})

	f.bus.Subscribe(events.BasketRemove, func(payload interface{}) {
		p, ok := payload.(events.RemovePayload)
		if !ok {
			return
		}
		f.handleBasketRemove(p.ID, p.Origin)
	})

	f.bus.Subscribe(events.BasketChanged, func(interface{}) {
		// Basket screen re-renders in place when its contents change.
		if f.screen == events.ScreenBasket {
			f.setScreen(events.ScreenBasket, f.renderBasket())
		}
	})

	f.bus.Subscribe(events.BasketOpen, func(interface{}) {
		f.setScreen(events.ScreenBasket, f.renderBasket())
	})

	f.bus.Subscribe(events.OrderOpen, func(interface{}) {
		f.setScreen(events.ScreenOrder, OrderRender{PaymentMethods: f.form.PaymentMethods()})
		valid, _ := f.form.ValidateStage1()
		f.bus.Publish(events.RenderErrors, events.ErrorsPayload{SubmitEnabled: valid})
	})

	f.bus.Subscribe(events.OrderField, func(payload interface{}) {
		p, ok := payload.(events.FieldPayload)
		if !ok {
			return
		}
		f.form.SetField(p.Field, p.Value)
		valid, errs := f.form.ValidateStage1()
		f.countFieldFailure(p.Field, errs)
		f.bus.Publish(events.RenderErrors, events.ErrorsPayload{Errors: errs, SubmitEnabled: valid})
	})

	f.bus.Subscribe(events.OrderSubmit, func(interface{}) {
		valid, errs := f.form.ValidateStage1()
		if !valid {
			f.bus.Publish(events.RenderErrors, events.ErrorsPayload{Errors: errs})
			return
		}
		// Advancing is itself an event so the step transition exercises the
		// bus's depth-first nested publish ordering.
		f.bus.Publish(events.ContactsOpen, nil)
	})

	f.bus.Subscribe(events.ContactsOpen, func(interface{}) {
		f.setScreen(events.ScreenContacts, ContactsRender{})
		valid, _ := f.form.Validate()
		f.bus.Publish(events.RenderErrors, events.ErrorsPayload{SubmitEnabled: valid})
	})

	f.bus.Subscribe(events.ContactsField, func(payload interface{}) {
		p, ok := payload.(events.FieldPayload)
		if !ok {
			return
		}
		f.form.SetField(p.Field, p.Value)
		valid, errs := f.form.Validate()
		f.countFieldFailure(p.Field, errs)
		f.bus.Publish(events.RenderErrors, events.ErrorsPayload{Errors: errs, SubmitEnabled: valid})
	})

	f.bus.Subscribe(events.ContactsSubmit, func(interface{}) {
		f.handleContactsSubmit()
	})

	f.bus.Subscribe(events.SuccessClose, func(interface{}) {
		f.basket.Clear()
		f.form.Reset()
		f.bus.Publish(events.RenderCounter, events.CounterPayload{Count: 0})
		f.showCatalog()
	})
}

func (f *Flow) handleProductSelected(id string) {
	product, ok := f.catalog.Get(id)
	if !ok {
		f.logger.Warn("Unknown product selected", zap.String("product_id", id))
		return
	}

	f.activeProduct = id
	// Membership is recomputed from the basket on every entry, never cached.
	f.setScreen(events.ScreenProduct, ProductRender{
		Product:  product,
		InBasket: f.basket.Contains(id),
	})
}

func (f *Flow) handleBasketAdd(id string) {
	product, ok := f.catalog.Get(id)
	if !ok {
		f.logger.Warn("Unknown product added", zap.String("product_id", id))
		return
	}

	f.basket.Add(product)
	util.BasketAddsTotal.Inc()

	f.bus.Publish(events.RenderCounter, events.CounterPayload{Count: f.basket.Len()})
	f.bus.Publish(events.BasketChanged, nil)

	if f.screen == events.ScreenProduct && f.activeProduct == id {
		f.setScreen(events.ScreenProduct, ProductRender{Product: product, InBasket: true})
	}
}

func (f *Flow) handleBasketRemove(id, origin string) {
	f.basket.Remove(id)
	util.BasketRemovesTotal.Inc()

	f.bus.Publish(events.RenderCounter, events.CounterPayload{Count: f.basket.Len()})
	f.bus.Publish(events.BasketChanged, nil)

	if origin != events.OriginBasket && f.screen == events.ScreenProduct && f.activeProduct == id {
		if product, ok := f.catalog.Get(id); ok {
			f.setScreen(events.ScreenProduct, ProductRender{Product: product, InBasket: false})
		}
	}
}

func (f *Flow) handleContactsSubmit() {
	if f.submitting {
		f.logger.Warn("Order submission already in flight")
		return
	}

	valid, errs := f.form.Validate()
	if !valid {
		f.bus.Publish(events.RenderErrors, events.ErrorsPayload{Errors: errs})
		return
	}

	payload, err := f.form.PrepareForAPI(f.basket)
	if err != nil {
		// Validation passed yet the snapshot is incomplete: a defect, not a
		// user-recoverable condition.
		f.logger.Error("Order snapshot contract violation", zap.Error(err))
		f.bus.Publish(events.RenderNotice, events.NoticePayload{Message: "internal error, order not sent"})
		return
	}

	f.submitting = true
	util.OrdersSubmittedTotal.Inc()
	go f.submitOrder(payload)
}

// submitOrder runs off the dispatch lock; its completion re-enters under it.
func (f *Flow) submitOrder(payload models.OrderPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), f.submitTimeout)
	defer cancel()

	start := time.Now()
	idempotencyKey := uuid.New().String()
	result, err := f.api.SubmitOrder(ctx, payload, idempotencyKey)
	util.OrderSubmitLatency.Observe(time.Since(start).Seconds())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false

	if err != nil {
		// Basket and form stay intact and the screen stays on the contacts
		// step so the user can retry or correct input.
		util.OrdersFailedTotal.WithLabelValues("api_error").Inc()
		f.logger.Error("Order submission failed", zap.Error(err))
		f.bus.Publish(events.RenderNotice, events.NoticePayload{Message: "order submission failed: " + err.Error()})
		f.notifyFailed(err.Error())
		return
	}

	util.OrdersCompletedTotal.Inc()
	f.notifyCompleted(payload, *result)

	// The server's total is authoritative in case of drift.
	f.setScreen(events.ScreenSuccess, SuccessRender{OrderID: result.ID, Total: result.Total})
}

func (f *Flow) notifyCompleted(payload models.OrderPayload, result apiclient.OrderResult) {
	if f.analytics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.analytics.OrderCompleted(ctx, f.sessionID, payload, result); err != nil {
		f.logger.Error("Failed to publish OrderCompleted analytics", zap.Error(err))
	}
}

func (f *Flow) notifyFailed(reason string) {
	if f.analytics == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.analytics.OrderFailed(ctx, f.sessionID, reason); err != nil {
		f.logger.Error("Failed to publish OrderFailed analytics", zap.Error(err))
	}
}

func (f *Flow) showCatalog() {
	products := f.catalog.List()
	f.setScreen(events.ScreenCatalog, CatalogRender{Products: products})
	if len(products) == 0 {
		f.bus.Publish(events.RenderNotice, events.NoticePayload{Message: "catalog unavailable"})
	}
}

func (f *Flow) renderBasket() BasketRender {
	return BasketRender{Products: f.basket.Products(), Total: f.basket.Total()}
}

func (f *Flow) setScreen(screen string, data interface{}) {
	f.screen = screen
	util.ScreenTransitionsTotal.WithLabelValues(screen).Inc()
	f.bus.Publish(events.RenderScreen, events.ScreenPayload{Screen: screen, Data: data})
}

// countFieldFailure attributes a validation failure to the field that was
// just edited. Error messages lead with the field name.
func (f *Flow) countFieldFailure(field string, errs []string) {
	for _, msg := range errs {
		if strings.HasPrefix(msg, field) {
			util.ValidationFailuresTotal.WithLabelValues(field).Inc()
			return
		}
	}
}
