package payment

import (
	"net/url"
	"sort"
	"strings"
)

type ReturnStatus string

const (
	ReturnSuccess ReturnStatus = "success"
	ReturnFailed  ReturnStatus = "failed"
	ReturnNone    ReturnStatus = "none"
)

// Classification is the result of inspecting a gateway return URL. DedupKey
// is path plus normalized query, so re-renders of the same navigation map to
// the same key.
type Classification struct {
	Status    ReturnStatus
	OrderID   string
	PaymentID string
	Reason    string
	DedupKey  string
}

// ClassifyReturnURL decides, from the URL alone, whether a navigation is a
// payment-gateway return and with which outcome. Path markers are
// authoritative; for query-only matches an explicit error/reason parameter
// outranks the presence of a payment id.
func ClassifyReturnURL(raw string) Classification {
	u, err := url.Parse(raw)
	if err != nil {
		return Classification{Status: ReturnNone}
	}

	q := u.Query()
	c := Classification{
		Status:    ReturnNone,
		OrderID:   firstOf(q, "order_id", "orderId"),
		PaymentID: firstOf(q, "paymentId", "Id"),
		Reason:    firstOf(q, "error", "reason"),
		DedupKey:  dedupKey(u),
	}

	path := strings.ToLower(u.Path)
	switch {
	case strings.Contains(path, "failed/payment/"), strings.Contains(path, "failure/payment/"):
		c.Status = ReturnFailed
	case strings.Contains(path, "success/payment/"):
		c.Status = ReturnSuccess
	case c.Reason != "":
		c.Status = ReturnFailed
	case c.PaymentID != "":
		c.Status = ReturnSuccess
	}
	return c
}

func firstOf(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

// dedupKey normalizes the query (sorted key=value pairs) so parameter order
// never produces a second key for the same navigation.
func dedupKey(u *url.URL) string {
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(u.Path)
	b.WriteByte('?')
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(v)
			b.WriteByte('&')
		}
	}
	return b.String()
}
