package rewards

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voyage-rewards/pkg/featureflags"
	"voyage-rewards/pkg/task"
)

// TierChangeEvent describes a detected promotion.
type TierChangeEvent struct {
	MemberID   string
	FromTier   string
	ToTier     string
	Balance    int64
	OccurredAt time.Time
}

// Notifier receives tier-change events after the ledger commit. Failures
// must never surface to the submitter; the commit already happened.
type Notifier interface {
	NotifyTierChange(ctx context.Context, event TierChangeEvent)
}

const featureTierNotifications = "tier_upgrade_notifications"

type queueNotifier struct {
	enqueuer task.Enqueuer
	flags    featureflags.FeatureFlag
}

func NewQueueNotifier(enqueuer task.Enqueuer, flags featureflags.FeatureFlag) Notifier {
	return &queueNotifier{enqueuer: enqueuer, flags: flags}
}

func (n *queueNotifier) NotifyTierChange(ctx context.Context, event TierChangeEvent) {
	if n.flags != nil && !n.flags.IsEnabled(ctx, featureTierNotifications) {
		zap.L().Info("tier notifications disabled by flag",
			zap.String("member_id", event.MemberID))
		return
	}

	t, err := NewTierUpgradeTask(TierUpgradePayload{
		MemberID:   event.MemberID,
		FromTier:   event.FromTier,
		ToTier:     event.ToTier,
		Balance:    event.Balance,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		zap.L().Error("failed to build tier upgrade task",
			zap.String("member_id", event.MemberID), zap.Error(err))
		return
	}

	if _, err := n.enqueuer.Enqueue(ctx, t); err != nil {
		zap.L().Error("failed to enqueue tier upgrade",
			zap.String("member_id", event.MemberID),
			zap.String("to_tier", event.ToTier), zap.Error(err))
	}
}

// NopNotifier drops events. Used when no queue is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyTierChange(ctx context.Context, event TierChangeEvent) {}
