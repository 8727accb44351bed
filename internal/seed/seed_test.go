package seed

import (
	"context"
	"testing"

	"storefront/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_IsIdempotent(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, st, "JPY"))
	require.NoError(t, Apply(ctx, st, "JPY"))

	list, err := st.Repos().Products.ListActive(ctx, 50, 0)
	require.NoError(t, err)
	assert.Len(t, list, len(products))

	slugs := map[string]bool{}
	for _, p := range list {
		slugs[p.Slug] = true
		assert.Equal(t, "JPY", p.Currency)
	}
	assert.True(t, slugs["demo-t-shirt"])
	assert.True(t, slugs["demo-mug"])

	c, err := st.Repos().Coupons.GetActiveByCode(ctx, "save10")
	require.NoError(t, err)
	require.NotNil(t, c.PercentOff)
	assert.Equal(t, "10", c.PercentOff.String())
}
