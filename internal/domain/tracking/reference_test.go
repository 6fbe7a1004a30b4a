package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, tag := range []string{"SALES_ORDER", "PURCHASE_ORDER", "OTHER"} {
		cat, err := ParseCategory(tag)
		require.NoError(t, err)
		assert.Equal(t, ReferenceCategory(tag), cat)
	}

	_, err := ParseCategory("DELIVERY_NOTE")
	assert.Error(t, err)

	_, err = ParseCategory("")
	assert.Error(t, err)
}

func TestSpec(t *testing.T) {
	t.Run("purchase orders read upstream totals", func(t *testing.T) {
		spec, err := Spec(CategoryPurchaseOrder)
		require.NoError(t, err)
		assert.Equal(t, "Purchase Order", spec.SourceDoctype)
		assert.Equal(t, UpstreamFromReference, spec.UpstreamMode)
		assert.Equal(t, DirectionOutward, spec.Direction)
	})

	t.Run("sales orders are inward with no upstream", func(t *testing.T) {
		spec, err := Spec(CategorySalesOrder)
		require.NoError(t, err)
		assert.Equal(t, DirectionInward, spec.Direction)
		assert.Equal(t, UpstreamNone, spec.UpstreamMode)
	})

	t.Run("other mirrors the request totals", func(t *testing.T) {
		spec, err := Spec(CategoryOther)
		require.NoError(t, err)
		assert.Equal(t, UpstreamMirrorsRequest, spec.UpstreamMode)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := Spec(ReferenceCategory("BOGUS"))
		assert.ErrorIs(t, err, ErrInvalidReferenceCategory)
	})
}

func TestCategoryForDoctype(t *testing.T) {
	cat, ok := CategoryForDoctype("Sales Order")
	assert.True(t, ok)
	assert.Equal(t, CategorySalesOrder, cat)

	cat, ok = CategoryForDoctype("Purchase Order")
	assert.True(t, ok)
	assert.Equal(t, CategoryPurchaseOrder, cat)

	_, ok = CategoryForDoctype("Journal Entry")
	assert.False(t, ok)
}
