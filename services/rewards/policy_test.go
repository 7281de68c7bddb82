package rewards

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"voyage-rewards/pkg/errutil"
)

func TestNewPolicyCatalog(t *testing.T) {
	t.Run("default policies are valid", func(t *testing.T) {
		catalog, err := NewPolicyCatalog(DefaultPolicies())
		require.NoError(t, err)
		require.Len(t, catalog.All(), 5)
	})

	t.Run("rejects empty catalog", func(t *testing.T) {
		_, err := NewPolicyCatalog(nil)
		require.Error(t, err)
	})

	t.Run("rejects duplicate action", func(t *testing.T) {
		_, err := NewPolicyCatalog([]ActionPolicy{
			{Action: "review-posted", BasePoints: 100},
			{Action: "review-posted", BasePoints: 200},
		})
		require.Error(t, err)
	})

	t.Run("rejects negative limits", func(t *testing.T) {
		_, err := NewPolicyCatalog([]ActionPolicy{
			{Action: "review-posted", BasePoints: 100, MaxPerDay: -1},
		})
		require.Error(t, err)
	})

	t.Run("rejects malformed guard", func(t *testing.T) {
		_, err := NewPolicyCatalog([]ActionPolicy{
			{Action: "review-posted", BasePoints: 100, Guard: "this is not CEL !!!"},
		})
		require.Error(t, err)
	})
}

func TestPolicyCatalogResolve(t *testing.T) {
	catalog, err := NewPolicyCatalog(DefaultPolicies())
	require.NoError(t, err)

	policy, ok := catalog.Resolve("booking-completed")
	require.True(t, ok)
	require.Equal(t, int64(500), policy.BasePoints)
	require.True(t, policy.AutoVerify)

	_, ok = catalog.Resolve("no-such-action")
	require.False(t, ok)
}

func TestCheckGuard(t *testing.T) {
	catalog, err := NewPolicyCatalog(DefaultPolicies())
	require.NoError(t, err)

	booking, _ := catalog.Resolve("booking-completed")

	t.Run("passes with required metadata", func(t *testing.T) {
		err := booking.CheckGuard(booking.BasePoints, map[string]string{"booking_id": "BK-123"})
		require.NoError(t, err)
	})

	t.Run("fails without required metadata", func(t *testing.T) {
		err := booking.CheckGuard(booking.BasePoints, nil)
		require.Error(t, err)

		var be errutil.BaseError
		require.True(t, errors.As(err, &be))
		require.Equal(t, errutil.StatusValidationFailed, be.Code)
	})

	t.Run("fails with empty value", func(t *testing.T) {
		err := booking.CheckGuard(booking.BasePoints, map[string]string{"booking_id": ""})
		require.Error(t, err)
	})

	t.Run("no guard always passes", func(t *testing.T) {
		review, _ := catalog.Resolve("review-posted")
		require.NoError(t, review.CheckGuard(review.BasePoints, nil))
	})
}
