package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"voyage-rewards/pkg/db/option"
	"voyage-rewards/pkg/errutil"
	"voyage-rewards/pkg/repository"
	"voyage-rewards/pkg/sequence"
)

// ErrInvalidBalance marks a balance outside [0, inf). Balances only ever
// grow through the submit transaction, so seeing this means corrupted data.
var ErrInvalidBalance = errors.New("invalid balance")

// SubmitRequest is one claimed action. BasePoints overrides the policy's
// default when set; zero means "use the catalog value".
type SubmitRequest struct {
	MemberID   string            `json:"member_id"`
	Action     string            `json:"action"`
	BasePoints int64             `json:"base_points,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SubmitResult reports the outcome of a submission. A denied submission is
// a normal result carrying the eligibility report, not an error.
type SubmitResult struct {
	Accepted     bool               `json:"accepted"`
	Record       *ActionRecord      `json:"record,omitempty"`
	Rejection    *EligibilityReport `json:"rejection,omitempty"`
	NewBalance   int64              `json:"new_balance"`
	TierChanged  bool               `json:"tier_changed"`
	PreviousTier string             `json:"previous_tier,omitempty"`
	CurrentTier  string             `json:"current_tier"`
}

// TierInfo is the member's standing in the tier table.
type TierInfo struct {
	MemberID     string `json:"member_id"`
	Balance      int64  `json:"balance"`
	Tier         Tier   `json:"tier"`
	NextTier     string `json:"next_tier,omitempty"`
	PointsToNext int64  `json:"points_to_next,omitempty"`
}

// BalanceInfo is the member's running point total.
type BalanceInfo struct {
	MemberID  string    `json:"member_id"`
	Points    int64     `json:"points"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Catalog is the public projection of the engine's configuration.
type Catalog struct {
	Actions []ActionPolicy `json:"actions"`
	Tiers   []Tier         `json:"tiers"`
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	tiers    *TierTable
	policies *PolicyCatalog
	eval     *Evaluator
	notifier Notifier
	codes    sequence.Generator

	records  repository.Repository[ActionRecord]
	balances repository.Repository[MemberBalance]

	locks *keyedMutex
	now   func() time.Time
}

type ServiceParams struct {
	fx.In

	DB       *gorm.DB
	Node     *snowflake.Node
	Tiers    *TierTable
	Policies *PolicyCatalog
	Eval     *Evaluator
	Notifier Notifier           `optional:"true"`
	Codes    sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}

	return &Service{
		db:       p.DB,
		node:     p.Node,
		tiers:    p.Tiers,
		policies: p.Policies,
		eval:     p.Eval,
		notifier: notifier,
		codes:    p.Codes,

		records:  repository.ProvideStore[ActionRecord](p.DB),
		balances: repository.ProvideStore[MemberBalance](p.DB),

		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

// SubmitAction admits or denies one claimed action and, when admitted,
// commits the ledger record and the balance increment in one transaction.
// The pair never diverges: either both rows land or neither does.
func (s *Service) SubmitAction(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	span := trace.SpanFromContext(ctx)
	logFields := []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("member_id", req.MemberID),
		zap.String("action", req.Action),
	}

	if req.MemberID == "" {
		return nil, errutil.BadRequest("member_id is required", nil)
	}
	if req.Action == "" {
		return nil, errutil.BadRequest("action is required", nil)
	}

	policy, ok := s.policies.Resolve(req.Action)
	if !ok {
		return nil, errutil.NotFound("unknown action", nil,
			errutil.WithDetails(errutil.Detail{Field: "action", Message: req.Action}))
	}

	basePoints := req.BasePoints
	if basePoints < 0 {
		return nil, errutil.BadRequest("base_points must be >= 0", nil)
	}
	if basePoints == 0 {
		basePoints = policy.BasePoints
	}

	if err := policy.CheckGuard(basePoints, req.Metadata); err != nil {
		zap.L().With(logFields...).Warn("submission rejected by guard", zap.Error(err))
		return nil, err
	}

	key := req.MemberID + "|" + req.Action
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	now := s.now()
	result := &SubmitResult{}

	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		balanceTx := s.balances.WithTrx(tx)
		recordTx := s.records.WithTrx(tx)

		balance, err := balanceTx.FindOne(ctx,
			&MemberBalance{MemberID: req.MemberID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if balance == nil {
			balance = &MemberBalance{
				ID:        s.node.Generate().String(),
				MemberID:  req.MemberID,
				Points:    0,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := balanceTx.Create(ctx, balance); err != nil {
				return err
			}
		}

		history, err := recordTx.Find(ctx,
			&ActionRecord{MemberID: req.MemberID, Action: req.Action},
			option.ApplyOperator(option.Condition{
				Field:    "created_at",
				Operator: option.GTE,
				Value:    s.eval.HistoryCutoff(policy, now),
			}))
		if err != nil {
			return err
		}

		report := s.eval.Check(policy, history, now)
		if !report.Eligible {
			prevTier, err := s.tiers.Resolve(balance.Points)
			if err != nil {
				return err
			}
			result.Rejection = &report
			result.NewBalance = balance.Points
			result.CurrentTier = prevTier.Name
			return nil
		}

		award, tier, err := s.tiers.CalculateAward(basePoints, balance.Points)
		if err != nil {
			return err
		}

		record := &ActionRecord{
			ID:            s.node.Generate().String(),
			CreatedAt:     now,
			MemberID:      req.MemberID,
			Action:        req.Action,
			BasePoints:    basePoints,
			PointsAwarded: award,
			Multiplier:    tier.Multiplier,
			TierAtAward:   tier.Name,
			Verified:      policy.AutoVerify,
			ReferenceCode: s.referenceCode(ctx, req.Action),
		}
		if len(req.Metadata) > 0 {
			b, err := json.Marshal(req.Metadata)
			if err != nil {
				return errutil.BadRequest("invalid metadata", err)
			}
			record.Metadata = datatypes.JSON(b)
		}

		if err := recordTx.Create(ctx, record); err != nil {
			return err
		}

		newBalance := balance.Points + award
		if err := balanceTx.Update(ctx, balance.ID, map[string]interface{}{
			"points":     gorm.Expr("points + ?", award),
			"updated_at": now,
		}); err != nil {
			return err
		}

		newTier, err := s.tiers.Resolve(newBalance)
		if err != nil {
			return err
		}

		result.Accepted = true
		result.Record = record
		result.NewBalance = newBalance
		result.PreviousTier = tier.Name
		result.CurrentTier = newTier.Name
		result.TierChanged = newTier.Name != tier.Name
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrInvalidBalance) {
			// a negative balance means the ledger invariant was already
			// broken upstream; this is ours to alert on, never the caller's
			zap.L().With(logFields...).Error("balance invariant violated", zap.Error(txErr))
			return nil, errutil.Internal("balance invariant violated", txErr)
		}
		var base errutil.BaseError
		if errors.As(txErr, &base) {
			return nil, txErr
		}
		zap.L().With(logFields...).Error("submit transaction failed", zap.Error(txErr))
		return nil, errutil.ServiceUnavailable("submission could not be committed, retry later", txErr)
	}

	if result.Accepted {
		zap.L().With(logFields...).Info("action accepted",
			zap.Int64("points_awarded", result.Record.PointsAwarded),
			zap.Int64("new_balance", result.NewBalance))
	} else {
		zap.L().With(logFields...).Info("action rejected",
			zap.String("reason", string(result.Rejection.Reason)))
	}

	if result.TierChanged {
		s.notifier.NotifyTierChange(ctx, TierChangeEvent{
			MemberID:   req.MemberID,
			FromTier:   result.PreviousTier,
			ToTier:     result.CurrentTier,
			Balance:    result.NewBalance,
			OccurredAt: now,
		})
	}

	return result, nil
}

// GetEligibility previews the decision the engine would make right now. It
// is advisory; only SubmitAction holds the locks that make it binding.
func (s *Service) GetEligibility(ctx context.Context, memberID, action string) (*EligibilityReport, error) {
	if memberID == "" {
		return nil, errutil.BadRequest("member_id is required", nil)
	}

	policy, ok := s.policies.Resolve(action)
	if !ok {
		return nil, errutil.NotFound("unknown action", nil,
			errutil.WithDetails(errutil.Detail{Field: "action", Message: action}))
	}

	now := s.now()
	history, err := s.records.Find(ctx,
		&ActionRecord{MemberID: memberID, Action: action},
		option.ApplyOperator(option.Condition{
			Field:    "created_at",
			Operator: option.GTE,
			Value:    s.eval.HistoryCutoff(policy, now),
		}))
	if err != nil {
		return nil, errutil.ServiceUnavailable("eligibility lookup failed", err)
	}

	report := s.eval.Check(policy, history, now)
	return &report, nil
}

func (s *Service) GetTierInfo(ctx context.Context, memberID string) (*TierInfo, error) {
	balance, err := s.memberPoints(ctx, memberID)
	if err != nil {
		return nil, err
	}

	tier, err := s.tiers.Resolve(balance.Points)
	if err != nil {
		zap.L().Error("balance invariant violated",
			zap.String("member_id", memberID), zap.Error(err))
		return nil, errutil.Internal("tier resolution failed", err)
	}

	info := &TierInfo{MemberID: memberID, Balance: balance.Points, Tier: tier}
	if threshold, ok := s.tiers.NextThreshold(balance.Points); ok {
		for _, t := range s.tiers.Tiers() {
			if t.MinPoints == threshold {
				info.NextTier = t.Name
				break
			}
		}
		info.PointsToNext = threshold - balance.Points
	}
	return info, nil
}

func (s *Service) GetBalance(ctx context.Context, memberID string) (*BalanceInfo, error) {
	balance, err := s.memberPoints(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return &BalanceInfo{
		MemberID:  memberID,
		Points:    balance.Points,
		UpdatedAt: balance.UpdatedAt,
	}, nil
}

// ListActions returns the member's ledger rows, newest first.
func (s *Service) ListActions(ctx context.Context, memberID string, limit int) ([]*ActionRecord, error) {
	if memberID == "" {
		return nil, errutil.BadRequest("member_id is required", nil)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	records, err := s.records.Find(ctx, &ActionRecord{MemberID: memberID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "desc",
			Allow:   map[string]bool{"created_at": true},
		}),
		option.WithLimit(limit))
	if err != nil {
		return nil, errutil.ServiceUnavailable("history lookup failed", err)
	}
	return records, nil
}

func (s *Service) Catalog() Catalog {
	return Catalog{Actions: s.policies.All(), Tiers: s.tiers.Tiers()}
}

func (s *Service) memberPoints(ctx context.Context, memberID string) (*MemberBalance, error) {
	if memberID == "" {
		return nil, errutil.BadRequest("member_id is required", nil)
	}

	balance, err := s.balances.FindOne(ctx, &MemberBalance{MemberID: memberID})
	if err != nil {
		return nil, errutil.ServiceUnavailable("balance lookup failed", err)
	}
	if balance == nil {
		// unseen members start at zero rather than 404
		return &MemberBalance{MemberID: memberID, Points: 0}, nil
	}
	return balance, nil
}

func (s *Service) referenceCode(ctx context.Context, action string) string {
	if s.codes != nil {
		if code, err := s.codes.NextActionCode(ctx, action); err == nil {
			return code
		}
		zap.L().Warn("sequence generator unavailable, using fallback code")
	}
	code, err := sequence.FallbackCode("ACT")
	if err != nil {
		return "ACT-" + s.node.Generate().String()
	}
	return code
}
