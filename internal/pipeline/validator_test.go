package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printops/labelflow/internal/queue"
)

func validRow() queue.Row {
	return queue.Row{
		ID:             1,
		BatchID:        "B1",
		Site:           "Lyon",
		TemplateName:   "labels/standard",
		Language:       "fr",
		ProductName:    "Quiche Lorraine",
		AllergensShort: "gluten, egg",
		Qty:            10,
		Status:         "READY",
	}
}

func TestValidateRow_Valid(t *testing.T) {
	ok, reason := ValidateRow(validRow())
	require.True(t, ok)
	assert.Empty(t, reason)
}

func TestValidateRow_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*queue.Row)
	}{
		{"batch_id", func(r *queue.Row) { r.BatchID = "" }},
		{"site", func(r *queue.Row) { r.Site = "" }},
		{"template_name", func(r *queue.Row) { r.TemplateName = "" }},
		{"language", func(r *queue.Row) { r.Language = "" }},
		{"product_name", func(r *queue.Row) { r.ProductName = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRow()
			tc.mutate(&r)

			ok, reason := ValidateRow(r)
			require.False(t, ok)
			assert.Equal(t, "Missing required field: "+tc.name, reason)
		})
	}
}

func TestValidateRow_FieldTooLong(t *testing.T) {
	cases := []struct {
		name   string
		maxLen int
		mutate func(*queue.Row, string)
	}{
		{"batch_id", 40, func(r *queue.Row, v string) { r.BatchID = v }},
		{"site", 60, func(r *queue.Row, v string) { r.Site = v }},
		{"template_name", 80, func(r *queue.Row, v string) { r.TemplateName = v }},
		{"language", 10, func(r *queue.Row, v string) { r.Language = v }},
		{"product_name", 120, func(r *queue.Row, v string) { r.ProductName = v }},
		{"allergens_short", 80, func(r *queue.Row, v string) { r.AllergensShort = v }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRow()

			tc.mutate(&r, strings.Repeat("x", tc.maxLen))
			ok, _ := ValidateRow(r)
			assert.True(t, ok, "value at the bound should pass")

			tc.mutate(&r, strings.Repeat("x", tc.maxLen+1))
			ok, reason := ValidateRow(r)
			require.False(t, ok)
			assert.Contains(t, reason, "Field too long: "+tc.name)
		})
	}
}

func TestValidateRow_AllergensOptional(t *testing.T) {
	r := validRow()
	r.AllergensShort = ""

	ok, reason := ValidateRow(r)
	require.True(t, ok, "empty allergens_short must pass: %s", reason)
}

func TestValidateRow_QtyBounds(t *testing.T) {
	cases := []struct {
		qty int
		ok  bool
	}{
		{0, false},
		{1, true},
		{500, true},
		{999, true},
		{1000, false},
		{-3, false},
	}

	for _, tc := range cases {
		r := validRow()
		r.Qty = tc.qty

		ok, reason := ValidateRow(r)
		assert.Equal(t, tc.ok, ok, "qty=%d", tc.qty)
		if !tc.ok {
			assert.Equal(t, "qty must be 1..999", reason)
		}
	}
}

func TestValidateRow_FirstFailingFieldWins(t *testing.T) {
	r := validRow()
	r.Site = ""
	r.Qty = 0

	ok, reason := ValidateRow(r)
	require.False(t, ok)
	assert.Equal(t, "Missing required field: site", reason)
}
