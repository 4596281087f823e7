package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vjranagit/pricefeed/pkg/types"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	store, err := NewStore(&Config{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutAndLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, types.Record{
		Pair: "BTC-USDT", Timestamp: 1000, AveragePrice: 50000, Exchanges: []string{"A", "B"},
	}))
	require.NoError(t, store.Put(ctx, types.Record{
		Pair: "BTC-USDT", Timestamp: 2000, AveragePrice: 51000, Exchanges: []string{"C"},
	}))

	rec, err := store.Latest(ctx, "BTC-USDT")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), rec.Timestamp)
	assert.Equal(t, 51000.0, rec.AveragePrice)
	assert.Equal(t, []string{"C"}, rec.Exchanges)
}

func TestLatestNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Latest(context.Background(), "XRP-USDT")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestAcrossDigitBoundary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// 999999999 sorts above 1000000000 as text; the store must order
	// numerically.
	require.NoError(t, store.Put(ctx, types.Record{Pair: "S", Timestamp: 999999999, AveragePrice: 1}))
	require.NoError(t, store.Put(ctx, types.Record{Pair: "S", Timestamp: 1000000000, AveragePrice: 2}))

	rec, err := store.Latest(ctx, "S")
	require.NoError(t, err)
	assert.Equal(t, int64(1000000000), rec.Timestamp)
	assert.Equal(t, 2.0, rec.AveragePrice)
}

func TestPutOverwritesSameKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, types.Record{Pair: "BTC-USDT", Timestamp: 1000, AveragePrice: 1}))
	require.NoError(t, store.Put(ctx, types.Record{Pair: "BTC-USDT", Timestamp: 1000, AveragePrice: 2}))

	records, err := store.Range(ctx, "BTC-USDT", 0, 5000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2.0, records[0].AveragePrice)
}

func TestRangeInclusiveBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ts := range []int64{500, 1000, 1500, 2000} {
		require.NoError(t, store.Put(ctx, types.Record{
			Pair: "BTC-USDT", Timestamp: ts, AveragePrice: float64(ts),
		}))
	}

	records, err := store.Range(ctx, "BTC-USDT", 1000, 1500)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1000), records[0].Timestamp)
	assert.Equal(t, int64(1500), records[1].Timestamp)
}

func TestRangeExcludesAdjacentPair(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, types.Record{Pair: "BTC-USD", Timestamp: 1000, AveragePrice: 1}))
	require.NoError(t, store.Put(ctx, types.Record{Pair: "BTC-USDT", Timestamp: 1000, AveragePrice: 2}))

	records, err := store.Range(ctx, "BTC-USD", 0, 5000)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1.0, records[0].AveragePrice)

	rec, err := store.Latest(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.AveragePrice)
}

func TestRangeEmptyWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, types.Record{Pair: "BTC-USDT", Timestamp: 1000, AveragePrice: 1}))

	records, err := store.Range(ctx, "BTC-USDT", 2000, 3000)
	require.NoError(t, err)
	assert.Empty(t, records)

	// Inverted window is empty, not an error.
	records, err = store.Range(ctx, "BTC-USDT", 3000, 2000)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRoundTripFidelity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	want := types.Record{
		Pair: "ETH-USDT", Timestamp: 1700000000000,
		AveragePrice: 2134.5625, Exchanges: []string{"binance", "kraken", "coinbase"},
	}
	require.NoError(t, store.Put(ctx, want))

	rec, err := store.Latest(ctx, "ETH-USDT")
	require.NoError(t, err)
	assert.Equal(t, want, *rec)

	records, err := store.Range(ctx, "ETH-USDT", want.Timestamp, want.Timestamp)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, want, records[0])
}

func TestSeries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, pair := range []string{"ETH-USDT", "BTC-USDT", "BTC-USDT", "ADA-USDT"} {
		require.NoError(t, store.Put(ctx, types.Record{Pair: pair, Timestamp: 1000, AveragePrice: 1}))
		require.NoError(t, store.Put(ctx, types.Record{Pair: pair, Timestamp: 2000, AveragePrice: 2}))
	}

	pairs, err := store.Series(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ADA-USDT", "BTC-USDT", "ETH-USDT"}, pairs)
}

func TestIteratorOrderAndRewind(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, types.Record{Pair: "ETH-USDT", Timestamp: 500, AveragePrice: 3}))
	require.NoError(t, store.Put(ctx, types.Record{Pair: "BTC-USDT", Timestamp: 2000, AveragePrice: 2}))
	require.NoError(t, store.Put(ctx, types.Record{Pair: "BTC-USDT", Timestamp: 1000, AveragePrice: 1}))

	it := store.Records()
	defer it.Close()

	collect := func() []types.Record {
		var out []types.Record
		for it.Next() {
			out = append(out, *it.Record())
		}
		require.NoError(t, it.Err())
		return out
	}

	first := collect()
	require.Len(t, first, 3)
	assert.Equal(t, "BTC-USDT", first[0].Pair)
	assert.Equal(t, int64(1000), first[0].Timestamp)
	assert.Equal(t, int64(2000), first[1].Timestamp)
	assert.Equal(t, "ETH-USDT", first[2].Pair)

	// The walk restarts from the top.
	it.Rewind()
	assert.Equal(t, first, collect())
}

func TestPutRejectsBadPair(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.Put(ctx, types.Record{Pair: "", Timestamp: 1}))
	assert.Error(t, store.Put(ctx, types.Record{Pair: "A\x00B", Timestamp: 1}))
}
