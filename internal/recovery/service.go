package recovery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"policy-recovery-service/internal/models"
	"policy-recovery-service/internal/parsers"
	"policy-recovery-service/pkg/errors"
	"policy-recovery-service/pkg/logger"
)

// Purpose identifies which operation produced a RunResult. It feeds the
// report filename convention.
type Purpose string

const (
	PurposeBatch  Purpose = "next_cleared_batch"
	PurposeSearch Purpose = "policy_search"
)

// Outcome classifies a run's result. Empty results are defined outcomes
// with distinct user-facing explanations, never errors.
type Outcome string

const (
	// OutcomeMatched means at least one policy passed both filters.
	OutcomeMatched Outcome = "matched"

	// OutcomeEmptyBatch means the cleared-batch file contained no policy
	// numbers at all.
	OutcomeEmptyBatch Outcome = "empty_batch"

	// OutcomeNoBatchMatches means the batch had members but none of them
	// appeared in the dashboard extract.
	OutcomeNoBatchMatches Outcome = "no_batch_matches"

	// OutcomeNoneCleared means candidate policies existed but none passed
	// the recovery inference.
	OutcomeNoneCleared Outcome = "none_cleared"
)

// Message returns the user-facing explanation for an outcome
func (o Outcome) Message() string {
	switch o {
	case OutcomeMatched:
		return "Policies with cleared next payments found"
	case OutcomeEmptyBatch:
		return "The batch file contains no policy numbers"
	case OutcomeNoBatchMatches:
		return "No policies from the batch file appear in the dashboard extract"
	case OutcomeNoneCleared:
		return "No policies passed the payment-recovery check"
	default:
		return "Unknown outcome"
	}
}

// PremiumSummary totals the gross premium of the matched records. The
// per-record premium stays a raw string on the record; this summary is
// the only place the text is parsed into a decimal.
type PremiumSummary struct {
	TotalGrossPremium   decimal.Decimal `json:"total_gross_premium"`
	RecordsWithPremium  int             `json:"records_with_premium"`
	UnparseablePremiums int             `json:"unparseable_premiums"`
}

// RunResult is the outcome of one complete run of either operation.
type RunResult struct {
	Purpose Purpose `json:"purpose"`
	Outcome Outcome `json:"outcome"`

	// Records holds the matched policies sorted ascending by the numeric
	// suffix of the policy number.
	Records []*models.PolicyRecord `json:"records"`

	// Headers is the dashboard extract's original header row, for
	// round-trip CSV reporting.
	Headers []string `json:"headers"`

	MatchedCount int `json:"matched_count"`

	DashboardStats *parsers.ParseStats `json:"dashboard_stats,omitempty"`

	// BatchSize is the number of distinct policy numbers in the batch
	// file. Zero for the search operation.
	BatchSize int `json:"batch_size"`

	Summary *PremiumSummary `json:"summary"`

	AsOf        time.Time     `json:"as_of"`
	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"duration"`
}

// ServiceConfig aggregates the configuration of every pipeline stage
type ServiceConfig struct {
	Dashboard *parsers.DashboardConfig `json:"dashboard"`
	Batch     *parsers.BatchConfig     `json:"batch"`
	Engine    *EngineConfig            `json:"engine"`
}

// DefaultServiceConfig returns a configuration with all defaults
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		Dashboard: parsers.DefaultDashboardConfig(),
		Batch:     parsers.DefaultBatchConfig(),
		Engine:    DefaultEngineConfig(),
	}
}

// Service wires the parsers, engine and matcher into the two public
// operations. It works entirely on io.Reader inputs; opening files is the
// caller's concern.
type Service struct {
	dashboardParser *parsers.DashboardParser
	batchParser     *parsers.BatchParser
	matcher         *Matcher
	logger          logger.Logger
}

// NewService creates a Service from the given configuration
func NewService(config *ServiceConfig) (*Service, error) {
	if config == nil {
		config = DefaultServiceConfig()
	}

	dashboardParser, err := parsers.NewDashboardParser(config.Dashboard)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard parser: %w", err)
	}

	batchParser, err := parsers.NewBatchParser(config.Batch)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch parser: %w", err)
	}

	engine, err := NewEngine(config.Engine)
	if err != nil {
		return nil, fmt.Errorf("failed to create recovery engine: %w", err)
	}

	return &Service{
		dashboardParser: dashboardParser,
		batchParser:     batchParser,
		matcher:         NewMatcher(engine),
		logger:          logger.GetGlobalLogger().WithComponent("recovery_service"),
	}, nil
}

// NextClearedBatch runs the batch operation: parse both inputs, intersect
// the dashboard with the batch set, apply the recovery inference and sort
// the survivors.
func (s *Service) NextClearedBatch(ctx context.Context, dashboard, batch io.Reader, asOf time.Time) (*RunResult, error) {
	start := time.Now()

	s.logger.WithFields(logger.Fields{
		"operation": string(PurposeBatch),
		"as_of":     asOf.Format("2006-01-02"),
	}).Info("Starting batch run")

	batchSet, err := s.batchParser.Parse(batch, "batch")
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryParse, errors.CodeInvalidFormat, "failed to parse batch file")
	}

	if batchSet.IsEmpty() {
		s.logger.Warn("Batch file contains no policy numbers")
		return s.finishRun(&RunResult{
			Purpose: PurposeBatch,
			Outcome: OutcomeEmptyBatch,
			AsOf:    asOf,
		}, start), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extract, err := s.dashboardParser.Parse(dashboard, "dashboard")
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryParse, errors.CodeInvalidFormat, "failed to parse dashboard extract")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	match := s.matcher.MatchBatch(extract.Records, batchSet, asOf)

	outcome := OutcomeMatched
	if len(match.InBatch) == 0 {
		outcome = OutcomeNoBatchMatches
	} else if len(match.Cleared) == 0 {
		outcome = OutcomeNoneCleared
	}

	result := &RunResult{
		Purpose:        PurposeBatch,
		Outcome:        outcome,
		Records:        match.Cleared,
		Headers:        extract.Headers,
		MatchedCount:   len(match.Cleared),
		DashboardStats: extract.Stats,
		BatchSize:      batchSet.Len(),
		AsOf:           asOf,
	}

	return s.finishRun(result, start), nil
}

// PolicySearch runs the search operation: the recovery inference over the
// whole dashboard extract, with no batch restriction.
func (s *Service) PolicySearch(ctx context.Context, dashboard io.Reader, asOf time.Time) (*RunResult, error) {
	start := time.Now()

	s.logger.WithFields(logger.Fields{
		"operation": string(PurposeSearch),
		"as_of":     asOf.Format("2006-01-02"),
	}).Info("Starting search run")

	extract, err := s.dashboardParser.Parse(dashboard, "dashboard")
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryParse, errors.CodeInvalidFormat, "failed to parse dashboard extract")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	match := s.matcher.MatchAll(extract.Records, asOf)

	outcome := OutcomeMatched
	if len(match.Cleared) == 0 {
		outcome = OutcomeNoneCleared
	}

	result := &RunResult{
		Purpose:        PurposeSearch,
		Outcome:        outcome,
		Records:        match.Cleared,
		Headers:        extract.Headers,
		MatchedCount:   len(match.Cleared),
		DashboardStats: extract.Stats,
		AsOf:           asOf,
	}

	return s.finishRun(result, start), nil
}

// finishRun sorts the records, computes the premium summary and stamps
// the timing fields.
func (s *Service) finishRun(result *RunResult, start time.Time) *RunResult {
	models.SortByPolicyNumber(result.Records)
	result.Summary = s.summarizePremiums(result.Records)
	result.ProcessedAt = time.Now()
	result.Duration = time.Since(start)

	s.logger.WithFields(logger.Fields{
		"operation":     string(result.Purpose),
		"outcome":       string(result.Outcome),
		"matched_count": result.MatchedCount,
		"duration":      result.Duration.String(),
	}).Info("Run completed")

	return result
}

// summarizePremiums totals the gross premium over the matched records.
// Unparseable premium text is counted, not fatal.
func (s *Service) summarizePremiums(records []*models.PolicyRecord) *PremiumSummary {
	summary := &PremiumSummary{TotalGrossPremium: decimal.Zero}

	for _, record := range records {
		if record.GrossPremium == "" {
			continue
		}

		amount, err := models.ParsePremiumAmount(record.GrossPremium)
		if err != nil {
			s.logger.WithFields(logger.Fields{
				"policy_number": record.PolicyNumber,
				"premium":       record.GrossPremium,
			}).Warn("Unparseable premium amount, excluded from summary")
			summary.UnparseablePremiums++
			continue
		}

		summary.TotalGrossPremium = summary.TotalGrossPremium.Add(amount)
		summary.RecordsWithPremium++
	}

	return summary
}
