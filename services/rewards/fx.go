package rewards

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"voyage-rewards/pkg/config"
	"voyage-rewards/pkg/featureflags"
	"voyage-rewards/pkg/task"
)

// Module wires the engine into the API process.
var Module = fx.Module("rewards.service",
	fx.Provide(
		ProvideLocation,
		ProvideTierTable,
		ProvidePolicyCatalog,
		NewEvaluator,
		ProvideNotifier,
		NewService,
		NewHandler,
		NewHealthServer,
	),
	fx.Invoke(
		migrate,
		registerRoutes,
		registerHealthServer,
	),
)

// TaskModule wires the worker-side consumer.
var TaskModule = fx.Module("rewards.task",
	fx.Provide(NewTierUpgradeProcessor),
	fx.Invoke(
		migrate,
		registerTaskHandler,
	),
)

func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	if cfg.Platform.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(cfg.Platform.Timezone)
}

func ProvideTierTable(cfg *config.Config) (*TierTable, error) {
	tiers := tiersFromConfig(cfg.Rewards.Tiers)
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return NewTierTable(tiers)
}

func ProvidePolicyCatalog(cfg *config.Config) (*PolicyCatalog, error) {
	policies := policiesFromConfig(cfg.Rewards.Actions)
	if len(policies) == 0 {
		policies = DefaultPolicies()
	}
	return NewPolicyCatalog(policies)
}

type notifierParams struct {
	fx.In

	Enqueuer task.Enqueuer            `optional:"true"`
	Flags    featureflags.FeatureFlag `optional:"true"`
}

func ProvideNotifier(p notifierParams) Notifier {
	if p.Enqueuer == nil {
		zap.L().Warn("task queue not configured, tier notifications disabled")
		return NopNotifier{}
	}
	return NewQueueNotifier(p.Enqueuer, p.Flags)
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&ActionRecord{}, &MemberBalance{}, &TierEvent{})
}

func registerRoutes(engine *gin.Engine, handler *Handler) {
	handler.Register(engine)
}

func registerHealthServer(server *grpc.Server, svc *HealthServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func registerTaskHandler(mux *asynq.ServeMux, processor *TierUpgradeProcessor) {
	mux.Handle(TaskTierUpgrade, processor)
}
