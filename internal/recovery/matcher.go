package recovery

import (
	"time"

	"policy-recovery-service/internal/models"
	"policy-recovery-service/pkg/logger"
)

// Matcher narrows a dashboard extract down to the records whose next
// payment cleared. Matching is a two-stage filter: batch membership
// first, then the recovery inference on the survivors.
type Matcher struct {
	engine *Engine
	logger logger.Logger
}

// NewMatcher creates a Matcher around the given engine
func NewMatcher(engine *Engine) *Matcher {
	return &Matcher{
		engine: engine,
		logger: logger.GetGlobalLogger().WithComponent("matcher"),
	}
}

// MatchResult carries the outcome of both filter stages. Keeping the
// intermediate InBatch slice lets the caller distinguish "nothing was in
// the batch" from "batch members failed the inference".
type MatchResult struct {
	// InBatch holds the dashboard records whose policy number appears in
	// the cleared batch, in extract order.
	InBatch []*models.PolicyRecord

	// Cleared holds the subset of InBatch that passed the recovery
	// inference, in extract order.
	Cleared []*models.PolicyRecord
}

// MatchBatch intersects the dashboard records with the cleared-batch set
// and applies the recovery inference to the intersection.
func (m *Matcher) MatchBatch(records []*models.PolicyRecord, batch *models.ClearedBatchSet, asOf time.Time) *MatchResult {
	result := &MatchResult{}

	for _, record := range records {
		if !batch.Contains(record.PolicyNumber) {
			continue
		}

		result.InBatch = append(result.InBatch, record)
		if m.engine.NextPaymentCleared(record, asOf) {
			result.Cleared = append(result.Cleared, record)
		}
	}

	m.logger.WithFields(logger.Fields{
		"dashboard_records": len(records),
		"batch_size":        batch.Len(),
		"in_batch":          len(result.InBatch),
		"cleared":           len(result.Cleared),
	}).Info("Batch matching completed")

	return result
}

// MatchAll applies the recovery inference to every dashboard record, with
// no batch restriction.
func (m *Matcher) MatchAll(records []*models.PolicyRecord, asOf time.Time) *MatchResult {
	result := &MatchResult{InBatch: records}

	for _, record := range records {
		if m.engine.NextPaymentCleared(record, asOf) {
			result.Cleared = append(result.Cleared, record)
		}
	}

	m.logger.WithFields(logger.Fields{
		"dashboard_records": len(records),
		"cleared":           len(result.Cleared),
	}).Info("Full-dashboard matching completed")

	return result
}
