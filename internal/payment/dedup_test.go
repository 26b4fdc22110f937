package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduper_ClaimOnce(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper()

	ok, err := d.Claim(ctx, DedupPayPalCapture, "ORDER1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(ctx, DedupPayPalCapture, "ORDER1")
	assert.False(t, ok)

	// Другой вид операции с тем же ключом независим.
	ok, _ = d.Claim(ctx, DedupStripeEvent, "ORDER1")
	assert.True(t, ok)
}

func TestMemoryDeduper_ReleaseAndExpiry(t *testing.T) {
	ctx := context.Background()
	d := NewMemoryDeduper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	ok, _ := d.Claim(ctx, DedupStripeEvent, "evt_1")
	require.True(t, ok)

	require.NoError(t, d.Release(ctx, DedupStripeEvent, "evt_1"))
	ok, _ = d.Claim(ctx, DedupStripeEvent, "evt_1")
	assert.True(t, ok)

	now = now.Add(dedupTTL + time.Second)
	ok, _ = d.Claim(ctx, DedupStripeEvent, "evt_1")
	assert.True(t, ok, "ключ должен истечь")
}

func TestDedupKey(t *testing.T) {
	assert.Equal(t, "dedup:paypal_capture:ORDER1", dedupKey(DedupPayPalCapture, "ORDER1"))
}
