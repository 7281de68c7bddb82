package rewards

import (
	"time"

	"gorm.io/datatypes"
)

// ActionRecord is the append-only ledger row for one accepted submission.
// Records are immutable once written; moderation flips Verified through a
// separate administrative path, never through this engine.
type ActionRecord struct {
	ID            string         `gorm:"column:id;primaryKey"`
	CreatedAt     time.Time      `gorm:"column:created_at;index:idx_action_records_member_action_created,priority:3"`
	MemberID      string         `gorm:"column:member_id;index:idx_action_records_member_action_created,priority:1;not null"`
	Action        string         `gorm:"column:action;index:idx_action_records_member_action_created,priority:2;not null"`
	BasePoints    int64          `gorm:"column:base_points;not null"`
	PointsAwarded int64          `gorm:"column:points_awarded;not null"`
	Multiplier    float64        `gorm:"column:multiplier;not null"`
	TierAtAward   string         `gorm:"column:tier_at_award"`
	Verified      bool           `gorm:"column:verified"`
	ReferenceCode string         `gorm:"column:reference_code;index"`
	Metadata      datatypes.JSON `gorm:"column:metadata"`
}

func (ActionRecord) TableName() string { return "action_records" }

// MemberBalance is the running total of points awarded to a member. It is
// mutated only inside the submit transaction and only ever increases.
type MemberBalance struct {
	ID        string    `gorm:"column:id;primaryKey"`
	MemberID  string    `gorm:"column:member_id;uniqueIndex;not null"`
	Points    int64     `gorm:"column:points;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (MemberBalance) TableName() string { return "member_balances" }

// TierEvent is the audit row persisted by the worker for every detected
// promotion, before the event is forwarded to the analytics sink.
type TierEvent struct {
	ID         string         `gorm:"column:id;primaryKey"`
	MemberID   string         `gorm:"column:member_id;index;not null"`
	FromTier   string         `gorm:"column:from_tier"`
	ToTier     string         `gorm:"column:to_tier"`
	Balance    int64          `gorm:"column:balance"`
	OccurredAt time.Time      `gorm:"column:occurred_at"`
	Payload    datatypes.JSON `gorm:"column:payload"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (TierEvent) TableName() string { return "tier_events" }
