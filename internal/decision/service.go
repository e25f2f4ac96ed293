package decision

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
	"github.com/opensource-finance/fraudguard/internal/engine"
	"github.com/opensource-finance/fraudguard/internal/metrics"
	"github.com/opensource-finance/fraudguard/internal/rules"
	"github.com/opensource-finance/fraudguard/internal/text"
	"github.com/opensource-finance/fraudguard/internal/velocity"
)

// velocityWindowSecs is the lookback used for the advisory velocity_count.
const velocityWindowSecs = 3600

// Deps collects the collaborators of the decision pipeline.
type Deps struct {
	Thresholds domain.Thresholds
	Scorer     *text.Scorer
	Engine     *engine.Engine
	Classifier domain.Classifier
	Advisory   *rules.Engine
	Velocity   *velocity.Service
	Repo       domain.Repository
	Bus        domain.EventBus
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Service runs the full decision pipeline for one transaction:
// extract, score, classify, decide, flag, build.
type Service struct {
	deps    Deps
	builder *Builder
}

// NewService creates the pipeline service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{
		deps:    deps,
		builder: NewBuilder(),
	}
}

// Evaluate produces the decision for one transaction. A classifier outage
// degrades to the neutral prior; Evaluate itself never fails.
func (s *Service) Evaluate(ctx context.Context, tx *domain.Transaction, traceID string, start time.Time) (*domain.Decision, *domain.DecisionResponse) {
	fs := text.Extract(tx.Description)
	textScore := s.deps.Scorer.Score(fs, tx.Amount, tx.Hour())

	classifierScore, err := s.deps.Classifier.Score(ctx,
		tx.Amount, tx.Location, tx.Hour(), tx.DayOfWeek(), tx.IsWeekend())
	if err != nil {
		classifierScore = domain.NewSignalScore(domain.SourceClassifier,
			s.deps.Thresholds.NeutralPrior,
			[]string{"classifier unavailable, using neutral prior"})
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordClassifierFallback()
		}
		s.deps.Logger.Warn("classifier unavailable",
			"tx_id", tx.ID, "error", err)
	}

	verdict := s.deps.Engine.Decide(tx, fs, classifierScore, textScore)

	flags := s.evaluateFlags(ctx, tx, fs, verdict)

	d, resp := s.builder.Build(&BuildInput{
		Tx:              tx,
		TraceID:         traceID,
		StartTime:       start,
		Verdict:         verdict,
		Features:        fs,
		ClassifierScore: classifierScore,
		TextScore:       textScore,
		Flags:           flags,
	})

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordDecision(d.Fraud, time.Since(start).Seconds())
	}

	return d, resp
}

// evaluateFlags runs the advisory rules. Failures only cost the flags.
func (s *Service) evaluateFlags(ctx context.Context, tx *domain.Transaction, fs domain.FeatureSet, verdict domain.Verdict) []domain.RuleFlag {
	if s.deps.Advisory == nil || s.deps.Advisory.RulesCount() == 0 {
		return nil
	}

	var velocityCount int64
	if s.deps.Velocity != nil {
		if count, err := s.deps.Velocity.GetLocationCount(ctx, tx.Location, velocityWindowSecs); err == nil {
			velocityCount = count
		}
	}

	flags := s.deps.Advisory.EvaluateAll(&rules.FlagInput{
		Amount:        tx.Amount,
		Hour:          tx.Hour(),
		DayOfWeek:     tx.DayOfWeek(),
		IsWeekend:     tx.IsWeekend(),
		Location:      tx.Location,
		Features:      fs,
		VelocityCount: velocityCount,
		Confidence:    verdict.Confidence,
		Fraud:         verdict.IsFraud,
	})

	if s.deps.Metrics != nil {
		for _, f := range flags {
			s.deps.Metrics.RecordFlag(f.RuleID)
		}
	}

	return flags
}

// Commit persists the transaction and decision and fans the decision out
// on the bus. Persistence and publish failures are logged, not returned:
// the caller already holds a complete decision.
func (s *Service) Commit(ctx context.Context, tx *domain.Transaction, d *domain.Decision) {
	if s.deps.Repo != nil {
		if err := s.deps.Repo.SaveTransaction(ctx, tx); err != nil {
			s.deps.Logger.Error("failed to save transaction",
				"tx_id", tx.ID, "error", err)
		}
		if err := s.deps.Repo.SaveDecision(ctx, d); err != nil {
			s.deps.Logger.Error("failed to save decision",
				"decision_id", d.ID, "error", err)
		}
	}

	if s.deps.Bus == nil {
		return
	}

	payload, _ := json.Marshal(d)
	if err := s.deps.Bus.Publish(ctx, domain.TopicDecision, payload); err != nil {
		s.deps.Logger.Error("failed to publish decision",
			"decision_id", d.ID, "error", err)
	}
	if d.Fraud {
		if err := s.deps.Bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			s.deps.Logger.Error("failed to publish alert",
				"decision_id", d.ID, "error", err)
		}
	}
}
