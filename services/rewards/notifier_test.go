package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type enqueuerRecorder struct {
	tasks []*asynq.Task
	err   error
}

func (r *enqueuerRecorder) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type flagStub struct {
	enabled bool
}

func (f flagStub) IsEnabled(ctx context.Context, feature string) bool { return f.enabled }

func TestQueueNotifier(t *testing.T) {
	event := TierChangeEvent{
		MemberID:   "m-1",
		FromTier:   "Wanderer",
		ToTier:     "Explorer",
		Balance:    1200,
		OccurredAt: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	t.Run("enqueues tier upgrade task", func(t *testing.T) {
		enqueuer := &enqueuerRecorder{}
		notifier := NewQueueNotifier(enqueuer, flagStub{enabled: true})

		notifier.NotifyTierChange(context.Background(), event)

		require.Len(t, enqueuer.tasks, 1)
		require.Equal(t, TaskTierUpgrade, enqueuer.tasks[0].Type())

		var payload TierUpgradePayload
		require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
		require.Equal(t, "m-1", payload.MemberID)
		require.Equal(t, "Explorer", payload.ToTier)
	})

	t.Run("kill switch suppresses enqueue", func(t *testing.T) {
		enqueuer := &enqueuerRecorder{}
		notifier := NewQueueNotifier(enqueuer, flagStub{enabled: false})

		notifier.NotifyTierChange(context.Background(), event)

		require.Empty(t, enqueuer.tasks)
	})

	t.Run("enqueue failure does not panic", func(t *testing.T) {
		enqueuer := &enqueuerRecorder{err: errors.New("queue down")}
		notifier := NewQueueNotifier(enqueuer, nil)

		notifier.NotifyTierChange(context.Background(), event)
	})
}
