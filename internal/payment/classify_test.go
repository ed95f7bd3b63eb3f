package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReturnURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want ReturnStatus
	}{
		{"success path", "https://shop.test/success/payment/123", ReturnSuccess},
		{"failed path", "https://shop.test/failed/payment/123", ReturnFailed},
		{"failure path variant", "https://shop.test/failure/payment/123", ReturnFailed},
		{"paymentId query", "https://shop.test/checkout?paymentId=abc", ReturnSuccess},
		{"Id query", "https://shop.test/checkout?Id=abc", ReturnSuccess},
		{"error query", "https://shop.test/checkout?error=card_declined", ReturnFailed},
		{"reason query", "https://shop.test/checkout?reason=timeout", ReturnFailed},
		{"error outranks paymentId", "https://shop.test/checkout?paymentId=abc&error=declined", ReturnFailed},
		{"failed path outranks paymentId", "https://shop.test/failed/payment/1?paymentId=abc", ReturnFailed},
		{"ordinary navigation", "https://shop.test/menu/place-1", ReturnNone},
		{"unparseable", "://bad", ReturnNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyReturnURL(tt.url).Status)
		})
	}
}

func TestClassifyReturnURL_ExtractsFields(t *testing.T) {
	c := ClassifyReturnURL("https://shop.test/success/payment/x?paymentId=pay-9&order_id=ord-4")
	assert.Equal(t, ReturnSuccess, c.Status)
	assert.Equal(t, "pay-9", c.PaymentID)
	assert.Equal(t, "ord-4", c.OrderID)

	c = ClassifyReturnURL("https://shop.test/failed/payment/x?reason=insufficient_funds")
	assert.Equal(t, "insufficient_funds", c.Reason)
}

func TestDedupKey_NormalizesQueryOrder(t *testing.T) {
	a := ClassifyReturnURL("https://shop.test/checkout?paymentId=1&order_id=2")
	b := ClassifyReturnURL("https://shop.test/checkout?order_id=2&paymentId=1")
	c := ClassifyReturnURL("https://shop.test/checkout?order_id=3&paymentId=1")

	assert.Equal(t, a.DedupKey, b.DedupKey, "query order must not create a second key")
	assert.NotEqual(t, a.DedupKey, c.DedupKey)
}
