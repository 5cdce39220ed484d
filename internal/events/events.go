package events

import (
	"encoding/json"
	"fmt"
)

// User-intent events emitted by the view layer.
const (
	ProductSelected = "product:selected"
	BasketAdd       = "basket:add"
	BasketRemove    = "basket:remove"
	BasketOpen      = "basket:open"
	OrderOpen       = "order:open"
	OrderField      = "order:field"
	OrderSubmit     = "order:submit"
	ContactsOpen    = "contacts:open"
	ContactsField   = "contacts:field"
	ContactsSubmit  = "contacts:submit"
	SuccessClose    = "success:close"
)

// Internal events published by the flow controller.
const (
	BasketChanged = "basket:changed"
)

// Render events consumed by the render state.
const (
	RenderScreen  = "render:screen"
	RenderCounter = "render:counter"
	RenderErrors  = "render:errors"
	RenderNotice  = "render:notice"
)

// Screen names carried by RenderScreen.
const (
	ScreenCatalog  = "catalog"
	ScreenProduct  = "product"
	ScreenBasket   = "basket"
	ScreenOrder    = "order"
	ScreenContacts = "contacts"
	ScreenSuccess  = "success"
)

// Origin screens for BasketRemove.
const (
	OriginProduct = "product"
	OriginBasket  = "basket"
)

// ProductPayload accompanies ProductSelected, BasketAdd.
type ProductPayload struct {
	ID string `json:"id"`
}

// RemovePayload accompanies BasketRemove. Origin names the screen the
// removal was issued from so the controller can refresh it in place.
type RemovePayload struct {
	ID     string `json:"id"`
	Origin string `json:"origin"`
}

// FieldPayload accompanies OrderField and ContactsField.
type FieldPayload struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ScreenPayload accompanies RenderScreen. Data is the screen-specific render
// model produced by the flow controller.
type ScreenPayload struct {
	Screen string      `json:"screen"`
	Data   interface{} `json:"data"`
}

// CounterPayload accompanies RenderCounter.
type CounterPayload struct {
	Count int `json:"count"`
}

// ErrorsPayload accompanies RenderErrors.
type ErrorsPayload struct {
	Errors        []string `json:"errors"`
	SubmitEnabled bool     `json:"submit_enabled"`
}

// NoticePayload accompanies RenderNotice.
type NoticePayload struct {
	Message string `json:"message"`
}

// DecodePayload maps an event name to its payload type and decodes raw into
// it. The vocabulary is closed: unknown names and malformed payloads are
// rejected, so a caller can never publish a structurally invalid event.
func DecodePayload(name string, raw json.RawMessage) (interface{}, error) {
	switch name {
	case ProductSelected, BasketAdd:
		var p ProductPayload
		if err := decodeInto(raw, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("event %s: missing id", name)
		}
		return p, nil

	case BasketRemove:
		var p RemovePayload
		if err := decodeInto(raw, &p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			return nil, fmt.Errorf("event %s: missing id", name)
		}
		if p.Origin == "" {
			p.Origin = OriginProduct
		}
		return p, nil

	case OrderField, ContactsField:
		var p FieldPayload
		if err := decodeInto(raw, &p); err != nil {
			return nil, err
		}
		if p.Field == "" {
			return nil, fmt.Errorf("event %s: missing field", name)
		}
		return p, nil

	case BasketOpen, OrderOpen, OrderSubmit, ContactsOpen, ContactsSubmit, SuccessClose:
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown event: %s", name)
	}
}

func decodeInto(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
