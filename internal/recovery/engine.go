// Package recovery implements payment-recovery inference: deciding, from
// a policy's arrear history and the current date, whether its next
// premium collection has already cleared.
package recovery

import (
	"fmt"
	"time"

	"policy-recovery-service/internal/dates"
	"policy-recovery-service/internal/models"
	"policy-recovery-service/pkg/logger"
)

// DefaultGraceDays is the number of days after the expected recovery due
// date before a collection is considered cleared.
const DefaultGraceDays = 5

// EngineConfig holds the tunable parameters of the inference
type EngineConfig struct {
	// GraceDays is the clearing grace window in days. Fixed-day
	// arithmetic, not calendar months.
	GraceDays int `json:"grace_days"`
}

// DefaultEngineConfig returns the standard engine configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		GraceDays: DefaultGraceDays,
	}
}

// Validate checks if the engine configuration is valid
func (ec *EngineConfig) Validate() error {
	if ec.GraceDays < 0 {
		return fmt.Errorf("grace days cannot be negative, got %d", ec.GraceDays)
	}
	return nil
}

// Engine evaluates the recovery inference for individual policy records.
// The reference date is always passed in by the caller; the engine never
// reads the wall clock, which keeps the decision reproducible.
type Engine struct {
	config *EngineConfig
	logger logger.Logger
}

// NewEngine creates an Engine with the given configuration
func NewEngine(config *EngineConfig) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("recovery_engine"),
	}, nil
}

// NextPaymentCleared reports whether the policy's next premium collection
// is inferred to have already cleared as of the given reference date.
//
// The decision is a conjunction; every condition must hold:
//   - the policy is not in a lapsed status
//   - it has exactly one or two missed payments (a third arrear moves the
//     policy into the cancellation track instead)
//   - the most recent missed date parses
//   - a next collection date is present, parses, and falls strictly after
//     the expected recovery due date (one calendar month after the last
//     missed payment)
//   - the reference date has passed the grace boundary (expected due date
//     plus the grace window)
//
// Any failed condition yields false; there is no error path. Records that
// merely lack the data to decide are indistinguishable from records whose
// collection has not cleared, and both stay out of the result set.
func (e *Engine) NextPaymentCleared(record *models.PolicyRecord, asOf time.Time) bool {
	log := e.logger.WithField("policy_number", record.PolicyNumber)

	if models.IsLapsedStatus(record.Status) {
		log.WithField("status", record.Status).Debug("Policy is lapsed, not eligible for recovery")
		return false
	}

	missedCount := record.MissedPaymentCount()
	if missedCount != 1 && missedCount != 2 {
		log.WithField("missed_count", missedCount).Debug("Missed payment count outside recovery range")
		return false
	}

	lastMissed, _ := record.LastMissedPayment()
	lastMissedDate, ok := dates.ParseDMY(lastMissed)
	if !ok {
		log.WithField("last_missed", lastMissed).Debug("Unparseable last missed payment date")
		return false
	}

	// The recovery attempt is assumed to run on the next monthly billing
	// cycle after the most recent miss.
	expectedDue := dates.AddMonths(lastMissedDate, 1)

	if record.NextCollectionDate == "" {
		log.Debug("No next collection date recorded")
		return false
	}

	nextCollection, ok := dates.ParseDMY(record.NextCollectionDate)
	if !ok {
		log.WithField("next_collection", record.NextCollectionDate).Debug("Unparseable next collection date")
		return false
	}

	// The scheduler only advances the next collection date past the
	// expected due date once that collection has been taken. An equal or
	// earlier date means the recovery attempt is still pending.
	if !nextCollection.After(expectedDue) {
		log.WithFields(logger.Fields{
			"next_collection": dates.FormatDMY(nextCollection),
			"expected_due":    dates.FormatDMY(expectedDue),
		}).Debug("Next collection date has not advanced past the expected due date")
		return false
	}

	graceBoundary := dates.AddDays(expectedDue, e.config.GraceDays)
	reference := dates.Truncate(asOf)

	if reference.Before(graceBoundary) {
		log.WithFields(logger.Fields{
			"reference":      dates.FormatDMY(reference),
			"grace_boundary": dates.FormatDMY(graceBoundary),
		}).Debug("Still inside the clearing grace window")
		return false
	}

	log.WithFields(logger.Fields{
		"expected_due":    dates.FormatDMY(expectedDue),
		"next_collection": dates.FormatDMY(nextCollection),
		"reference":       dates.FormatDMY(reference),
	}).Debug("Next payment inferred as cleared")

	return true
}
