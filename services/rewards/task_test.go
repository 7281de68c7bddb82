package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"voyage-rewards/services/testutil"
)

type publisherRecorder struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (r *publisherRecorder) Publish(ctx context.Context, key, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, value)
	return nil
}

func newTestProcessor(t *testing.T, publisher *publisherRecorder) (*TierUpgradeProcessor, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &TierEvent{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewTierUpgradeProcessor(ProcessorParams{
		DB:        db,
		Node:      node,
		Publisher: publisher,
	}), db
}

func TestProcessTierUpgrade(t *testing.T) {
	publisher := &publisherRecorder{}
	processor, db := newTestProcessor(t, publisher)

	payload := TierUpgradePayload{
		MemberID:   "m-1",
		FromTier:   "Wanderer",
		ToTier:     "Explorer",
		Balance:    1200,
		OccurredAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	task, err := NewTierUpgradeTask(payload)
	require.NoError(t, err)

	require.NoError(t, processor.ProcessTask(context.Background(), task))

	var events []TierEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, "m-1", events[0].MemberID)
	require.Equal(t, "Explorer", events[0].ToTier)
	require.Equal(t, int64(1200), events[0].Balance)

	require.Len(t, publisher.messages, 1)
	var published TierUpgradePayload
	require.NoError(t, json.Unmarshal(publisher.messages[0], &published))
	require.Equal(t, payload.MemberID, published.MemberID)
}

func TestProcessTierUpgradeMalformedPayload(t *testing.T) {
	processor, db := newTestProcessor(t, nil)

	task := asynq.NewTask(TaskTierUpgrade, []byte("not json"))
	err := processor.ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.True(t, errors.Is(err, asynq.SkipRetry))

	var count int64
	require.NoError(t, db.Model(&TierEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestProcessTierUpgradePublishFailureIsBestEffort(t *testing.T) {
	publisher := &publisherRecorder{err: errors.New("broker down")}
	processor, db := newTestProcessor(t, publisher)

	task, err := NewTierUpgradeTask(TierUpgradePayload{MemberID: "m-1", ToTier: "Explorer"})
	require.NoError(t, err)

	// the audit row still lands even when the sink is unreachable
	require.NoError(t, processor.ProcessTask(context.Background(), task))

	var count int64
	require.NoError(t, db.Model(&TierEvent{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}
