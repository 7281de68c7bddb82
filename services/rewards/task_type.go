package rewards

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTierUpgrade = "rewards:tier_upgrade"

// TierUpgradePayload travels on the queue from the engine to the worker.
type TierUpgradePayload struct {
	MemberID   string    `json:"member_id"`
	FromTier   string    `json:"from_tier"`
	ToTier     string    `json:"to_tier"`
	Balance    int64     `json:"balance"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewTierUpgradeTask(payload TierUpgradePayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTierUpgrade, b, asynq.Queue("rewards"), asynq.MaxRetry(5)), nil
}
