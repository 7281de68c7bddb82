package rewards

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"voyage-rewards/pkg/kafka"
	"voyage-rewards/pkg/repository"
)

// TierUpgradeProcessor is the worker-side consumer of tier upgrade tasks.
// It writes the audit row and forwards the event to the analytics sink.
type TierUpgradeProcessor struct {
	node      *snowflake.Node
	events    repository.Repository[TierEvent]
	publisher kafka.Publisher
}

type ProcessorParams struct {
	fx.In

	DB        *gorm.DB
	Node      *snowflake.Node
	Publisher kafka.Publisher `optional:"true"`
}

func NewTierUpgradeProcessor(p ProcessorParams) *TierUpgradeProcessor {
	return &TierUpgradeProcessor{
		node:      p.Node,
		events:    repository.ProvideStore[TierEvent](p.DB),
		publisher: p.Publisher,
	}
}

func (p *TierUpgradeProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload TierUpgradePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		// malformed payloads never succeed, drop instead of retrying
		return fmt.Errorf("unmarshal tier upgrade payload: %v: %w", err, asynq.SkipRetry)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	event := &TierEvent{
		ID:         p.node.Generate().String(),
		MemberID:   payload.MemberID,
		FromTier:   payload.FromTier,
		ToTier:     payload.ToTier,
		Balance:    payload.Balance,
		OccurredAt: payload.OccurredAt,
		Payload:    datatypes.JSON(raw),
	}
	if err := p.events.Create(ctx, event); err != nil {
		zap.L().Error("failed to persist tier event",
			zap.String("member_id", payload.MemberID), zap.Error(err))
		return err
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, []byte(payload.MemberID), raw); err != nil {
			// audit row is already durable, analytics delivery is best effort
			zap.L().Warn("failed to publish tier event",
				zap.String("member_id", payload.MemberID), zap.Error(err))
		}
	}

	zap.L().Info("tier upgrade processed",
		zap.String("member_id", payload.MemberID),
		zap.String("from_tier", payload.FromTier),
		zap.String("to_tier", payload.ToTier))
	return nil
}
