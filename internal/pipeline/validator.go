package pipeline

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/printops/labelflow/internal/queue"
)

// Row field schema. Field order here is also the artifact column order.
type fieldKind int

const (
	kindText fieldKind = iota
	kindQty
)

type field struct {
	name     string
	maxLen   int
	kind     fieldKind
	optional bool
}

// qty bounds are inclusive.
const (
	qtyMin = 1
	qtyMax = 999
)

var rowSchema = []field{
	{name: "batch_id", maxLen: 40, kind: kindText},
	{name: "site", maxLen: 60, kind: kindText},
	{name: "template_name", maxLen: 80, kind: kindText},
	{name: "language", maxLen: 10, kind: kindText},
	{name: "product_name", maxLen: 120, kind: kindText},
	// Allergens are legitimately absent for many products; only the length
	// bound applies.
	{name: "allergens_short", maxLen: 80, kind: kindText, optional: true},
	{name: "qty", kind: kindQty},
}

// fieldValue returns a row field as its artifact string form.
func fieldValue(r queue.Row, name string) string {
	switch name {
	case "batch_id":
		return r.BatchID
	case "site":
		return r.Site
	case "template_name":
		return r.TemplateName
	case "language":
		return r.Language
	case "product_name":
		return r.ProductName
	case "allergens_short":
		return r.AllergensShort
	case "qty":
		return strconv.Itoa(r.Qty)
	}
	return ""
}

// ValidateRow checks a single queue row against the field schema. The first
// failing field wins; a valid row returns ok with an empty reason.
func ValidateRow(r queue.Row) (bool, string) {
	for _, f := range rowSchema {
		if f.kind == kindQty {
			if r.Qty < qtyMin || r.Qty > qtyMax {
				return false, fmt.Sprintf("qty must be %d..%d", qtyMin, qtyMax)
			}
			continue
		}

		v := fieldValue(r, f.name)
		if v == "" {
			if f.optional {
				continue
			}
			return false, fmt.Sprintf("Missing required field: %s", f.name)
		}
		if f.maxLen > 0 && utf8.RuneCountInString(v) > f.maxLen {
			return false, fmt.Sprintf("Field too long: %s (max %d)", f.name, f.maxLen)
		}
	}
	return true, ""
}
