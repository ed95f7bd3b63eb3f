package cart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/omarabozied5/zonak-sub000/internal/domain"
)

// fingerprint canonicalizes the attributes that decide whether two cart
// additions are the same line: product, place, unit price and the options
// snapshot. Optional options are sorted before comparison so selection order
// never affects identity; required options are compared by sorted key with
// their values; notes are trimmed.
func fingerprint(item domain.CartItem) string {
	var b strings.Builder

	b.WriteString(item.ProductID)
	b.WriteByte('|')
	b.WriteString(item.PlaceID)
	fmt.Fprintf(&b, "|%.2f|", item.UnitPrice)
	b.WriteString(item.Options.Size)
	b.WriteByte('|')

	keys := make([]string, 0, len(item.Options.Required))
	for k := range item.Options.Required {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%q=%q;", k, item.Options.Required[k])
	}
	b.WriteByte('|')

	optional := make([]string, len(item.Options.Optional))
	copy(optional, item.Options.Optional)
	sort.Strings(optional)
	for _, o := range optional {
		fmt.Fprintf(&b, "%q;", o)
	}
	b.WriteByte('|')

	b.WriteString(strings.TrimSpace(item.Options.Notes))
	return b.String()
}

// newLineID builds a line id from the catalog product id plus a unique
// suffix. Only the product-id prefix participates in line identity.
func newLineID(productID, suffix string) string {
	return productID + "-" + suffix
}
