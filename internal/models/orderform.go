package models

import (
	"fmt"
	"strings"
	"unicode"
)

// Order form field names as they appear in field-change events.
const (
	FieldPayment = "payment"
	FieldAddress = "address"
	FieldEmail   = "email"
	FieldPhone   = "phone"
)

const minAddressLen = 5

const minPhoneDigits = 10

// OrderForm accumulates the checkout fields across the two order steps.
// The form itself does not enforce step order; the flow controller decides
// when to validate and which screen to advance to.
type OrderForm struct {
	paymentMethods []string

	payment string
	address string
	email   string
	phone   string
}

// OrderPayload is the value snapshot submitted to the upstream shop API.
// Later basket or form mutations never change a prepared payload.
type OrderPayload struct {
	Payment string   `json:"payment"`
	Address string   `json:"address"`
	Email   string   `json:"email"`
	Phone   string   `json:"phone"`
	Total   int64    `json:"total"`
	Items   []string `json:"items"`
}

// NewOrderForm creates an empty form accepting the given payment methods.
func NewOrderForm(paymentMethods []string) *OrderForm {
	return &OrderForm{paymentMethods: paymentMethods}
}

// PaymentMethods returns the offered payment tokens.
func (f *OrderForm) PaymentMethods() []string {
	return append([]string(nil), f.paymentMethods...)
}

func (f *OrderForm) SetPayment(payment string) {
	f.payment = payment
}

func (f *OrderForm) SetAddress(address string) {
	f.address = address
}

func (f *OrderForm) SetEmail(email string) {
	f.email = email
}

// SetPhone stores the phone normalized: digits only, a single leading 7 or 8
// folded away, prefixed with +7.
func (f *OrderForm) SetPhone(phone string) {
	f.phone = NormalizePhone(phone)
}

// SetField routes a named field to its setter. Unknown fields are ignored.
func (f *OrderForm) SetField(field, value string) {
	switch field {
	case FieldPayment:
		f.SetPayment(value)
	case FieldAddress:
		f.SetAddress(value)
	case FieldEmail:
		f.SetEmail(value)
	case FieldPhone:
		f.SetPhone(value)
	}
}

// Reset clears all fields.
func (f *OrderForm) Reset() {
	f.payment = ""
	f.address = ""
	f.email = ""
	f.phone = ""
}

// Validate checks all four fields. Errors come in fixed field order
// (payment, address, email, phone), one message per unmet rule, so the
// output is deterministic for a given field state.
func (f *OrderForm) Validate() (bool, []string) {
	var errs []string
	errs = f.appendStage1Errors(errs)
	errs = f.appendStage2Errors(errs)
	return len(errs) == 0, errs
}

// ValidateStage1 checks only the step-one fields, payment and address.
func (f *OrderForm) ValidateStage1() (bool, []string) {
	errs := f.appendStage1Errors(nil)
	return len(errs) == 0, errs
}

// ValidateStage2 checks only the step-two fields, email and phone.
func (f *OrderForm) ValidateStage2() (bool, []string) {
	errs := f.appendStage2Errors(nil)
	return len(errs) == 0, errs
}

func (f *OrderForm) appendStage1Errors(errs []string) []string {
	if !f.paymentOffered() {
		errs = append(errs, "payment method must be one of the offered options")
	}
	if len(strings.TrimSpace(f.address)) < minAddressLen {
		errs = append(errs, fmt.Sprintf("address must be at least %d characters", minAddressLen))
	}
	return errs
}

func (f *OrderForm) appendStage2Errors(errs []string) []string {
	if !strings.Contains(f.email, "@") {
		errs = append(errs, "email must contain @")
	}
	if countDigits(f.phone) < minPhoneDigits {
		errs = append(errs, fmt.Sprintf("phone must contain at least %d digits", minPhoneDigits))
	}
	return errs
}

func (f *OrderForm) paymentOffered() bool {
	if f.payment == "" {
		return false
	}
	if len(f.paymentMethods) == 0 {
		return true
	}
	for _, m := range f.paymentMethods {
		if f.payment == m {
			return true
		}
	}
	return false
}

// PrepareForAPI snapshots the form plus the basket's total and product ids
// at call time. Calling it with any field unset is a contract violation and
// returns an error rather than producing a malformed submission.
func (f *OrderForm) PrepareForAPI(basket *Basket) (OrderPayload, error) {
	if f.payment == "" || f.address == "" || f.email == "" || f.phone == "" {
		return OrderPayload{}, fmt.Errorf("order form incomplete: payment=%t address=%t email=%t phone=%t",
			f.payment != "", f.address != "", f.email != "", f.phone != "")
	}

	return OrderPayload{
		Payment: f.payment,
		Address: f.address,
		Email:   f.email,
		Phone:   f.phone,
		Total:   basket.Total(),
		Items:   basket.ProductIDs(),
	}, nil
}

// NormalizePhone strips everything but digits, folds a single leading 7 or 8
// away and prefixes +7, matching the shop's expected format.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	d := digits.String()
	if strings.HasPrefix(d, "7") || strings.HasPrefix(d, "8") {
		d = d[1:]
	}
	return "+7" + d
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
