package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentMethods = []string{"card", "cash"}

func validForm() *OrderForm {
	f := NewOrderForm(paymentMethods)
	f.SetPayment("card")
	f.SetAddress("123 Main St")
	f.SetEmail("user@example.com")
	f.SetPhone("+7 (999) 123-45-67")
	return f
}

func TestValidateEmptyForm(t *testing.T) {
	f := NewOrderForm(paymentMethods)

	valid, errs := f.Validate()

	assert.False(t, valid)
	assert.Len(t, errs, 4)
}

func TestValidateDeterministicFieldOrder(t *testing.T) {
	f := NewOrderForm(paymentMethods)
	f.SetEmail("not-an-email")
	f.SetAddress("ab")

	valid, errs := f.Validate()
	assert.False(t, valid)

	// Same field state, same output, every time.
	for i := 0; i < 3; i++ {
		v, e := f.Validate()
		assert.False(t, v)
		assert.Equal(t, errs, e)
	}

	// Always payment, address, email, phone, never another order.
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "payment")
	assert.Contains(t, errs[1], "address")
	assert.Contains(t, errs[2], "email")
	assert.Contains(t, errs[3], "phone")
}

func TestValidateAddressTooShort(t *testing.T) {
	f := validForm()
	f.SetAddress("ab")

	valid, errs := f.Validate()
	assert.False(t, valid)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "address")

	// Fixing the field clears that specific error on the next validation.
	f.SetAddress("123 Main St")
	valid, errs = f.Validate()
	assert.True(t, valid)
	assert.Empty(t, errs)
}

func TestValidateAddressWhitespaceTrimmed(t *testing.T) {
	f := validForm()
	f.SetAddress("  ab  ")

	valid, _ := f.Validate()
	assert.False(t, valid)
}

func TestValidatePaymentMustBeOffered(t *testing.T) {
	f := validForm()
	f.SetPayment("bitcoin")

	valid, errs := f.Validate()
	assert.False(t, valid)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "payment")
}

func TestValidateEmailNeedsAtSign(t *testing.T) {
	f := validForm()
	f.SetEmail("user.example.com")

	valid, errs := f.Validate()
	assert.False(t, valid)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "email")
}

func TestValidatePhoneNeedsTenDigits(t *testing.T) {
	f := validForm()
	f.SetPhone("12345")

	valid, errs := f.Validate()
	assert.False(t, valid)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "phone")
}

func TestValidateStage1ChecksPaymentAndAddressOnly(t *testing.T) {
	f := NewOrderForm(paymentMethods)
	f.SetPayment("cash")
	f.SetAddress("Lenina 15, kv 3")

	valid, errs := f.ValidateStage1()
	assert.True(t, valid)
	assert.Empty(t, errs)

	// The full draft is still invalid.
	valid, _ = f.Validate()
	assert.False(t, valid)
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+79991234567", NormalizePhone("8 (999) 123-45-67"))
	assert.Equal(t, "+79991234567", NormalizePhone("+7 999 123 45 67"))
	assert.Equal(t, "+79991234567", NormalizePhone("9991234567"))
}

func TestPrepareForAPISnapshot(t *testing.T) {
	f := validForm()

	b := NewBasket()
	b.Add(testProduct("p2", price(50)))

	payload, err := f.PrepareForAPI(b)
	require.NoError(t, err)

	assert.Equal(t, "card", payload.Payment)
	assert.Equal(t, "123 Main St", payload.Address)
	assert.Equal(t, "user@example.com", payload.Email)
	assert.Equal(t, "+79991234567", payload.Phone)
	assert.Equal(t, int64(50), payload.Total)
	assert.Equal(t, []string{"p2"}, payload.Items)
}

func TestPrepareForAPISnapshotImmuneToLaterMutations(t *testing.T) {
	f := validForm()

	b := NewBasket()
	b.Add(testProduct("p1", price(100)))
	b.Add(testProduct("p2", price(50)))

	payload, err := f.PrepareForAPI(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, payload.Items)
	assert.Equal(t, int64(150), payload.Total)

	b.Remove("p1")
	b.Add(testProduct("p3", price(25)))

	assert.Equal(t, []string{"p1", "p2"}, payload.Items)
	assert.Equal(t, int64(150), payload.Total)
}

func TestPrepareForAPIIncompleteDraftFailsLoudly(t *testing.T) {
	f := NewOrderForm(paymentMethods)
	f.SetPayment("card")

	_, err := f.PrepareForAPI(NewBasket())
	assert.Error(t, err)
}
