package rewards

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestNewTierTable(t *testing.T) {
	t.Run("default table is valid", func(t *testing.T) {
		table, err := NewTierTable(DefaultTiers())
		require.NoError(t, err)
		require.Len(t, table.Tiers(), 4)
	})

	t.Run("rejects empty table", func(t *testing.T) {
		_, err := NewTierTable(nil)
		require.Error(t, err)
	})

	t.Run("rejects table not starting at zero", func(t *testing.T) {
		_, err := NewTierTable([]Tier{
			{Name: "Silver", MinPoints: 100, Multiplier: 1.0},
		})
		require.Error(t, err)
	})

	t.Run("rejects gap between bands", func(t *testing.T) {
		_, err := NewTierTable([]Tier{
			{Name: "Silver", MinPoints: 0, MaxPoints: 100, Multiplier: 1.0},
			{Name: "Gold", MinPoints: 200, Multiplier: 1.5},
		})
		require.Error(t, err)
	})

	t.Run("rejects bounded top band", func(t *testing.T) {
		_, err := NewTierTable([]Tier{
			{Name: "Silver", MinPoints: 0, MaxPoints: 100, Multiplier: 1.0},
			{Name: "Gold", MinPoints: 100, MaxPoints: 200, Multiplier: 1.5},
		})
		require.Error(t, err)
	})

	t.Run("rejects multiplier below one", func(t *testing.T) {
		_, err := NewTierTable([]Tier{
			{Name: "Silver", MinPoints: 0, Multiplier: 0.5},
		})
		require.Error(t, err)
	})
}

func TestTierTableResolve(t *testing.T) {
	table, err := NewTierTable(DefaultTiers())
	require.NoError(t, err)

	cases := []struct {
		points int64
		want   string
	}{
		{0, "Wanderer"},
		{999, "Wanderer"},
		{1000, "Explorer"},
		{4999, "Explorer"},
		{5000, "Voyager"},
		{14999, "Voyager"},
		{15000, "Globetrotter"},
		{1000000, "Globetrotter"},
	}
	for _, tc := range cases {
		tier, err := table.Resolve(tc.points)
		require.NoError(t, err)
		require.Equal(t, tc.want, tier.Name, "points=%d", tc.points)
	}

	_, err = table.Resolve(-1)
	require.ErrorIs(t, err, ErrInvalidBalance)
}

func TestCalculateAwardUsesPreAwardTier(t *testing.T) {
	table, err := NewTierTable(DefaultTiers())
	require.NoError(t, err)

	// balance 995 is still Wanderer, so the award that crosses into
	// Explorer territory earns at the 1.0 rate
	award, tier, err := table.CalculateAward(10, 995)
	require.NoError(t, err)
	require.Equal(t, "Wanderer", tier.Name)
	require.Equal(t, int64(10), award)

	// the next action earns at the Explorer rate
	award, tier, err = table.CalculateAward(10, 1005)
	require.NoError(t, err)
	require.Equal(t, "Explorer", tier.Name)
	require.Equal(t, int64(12), award)
}

func TestCalculateAwardIsExactIntegerMath(t *testing.T) {
	table, err := NewTierTable(DefaultTiers())
	require.NoError(t, err)

	// 5 * 1.2 must be exactly 6, not floor(5.999...)
	award, _, err := table.CalculateAward(5, 2000)
	require.NoError(t, err)
	require.Equal(t, int64(6), award)

	// 3 * 1.5 floors to 4
	award, _, err = table.CalculateAward(3, 6000)
	require.NoError(t, err)
	require.Equal(t, int64(4), award)

	_, _, err = table.CalculateAward(-1, 0)
	require.Error(t, err)
}

func TestNextThreshold(t *testing.T) {
	table, err := NewTierTable(DefaultTiers())
	require.NoError(t, err)

	threshold, ok := table.NextThreshold(500)
	require.True(t, ok)
	require.Equal(t, int64(1000), threshold)

	threshold, ok = table.NextThreshold(5000)
	require.True(t, ok)
	require.Equal(t, int64(15000), threshold)

	_, ok = table.NextThreshold(20000)
	require.False(t, ok)
}
