package reconcile

import (
	"satforge/internal/models"
)

// Stats reports everything a run did, for the metadata block and the
// operator summary. No failure here is fatal: the reconciler always
// produces a best-effort dataset plus this anomaly tally.
type Stats struct {
	Processed    int
	Merged       int
	Deduplicated int
	Matched      int
	Unmatched    int
	Malformed    int
	Flagged      int
}

// Reconciler runs the merge, dedupe and link passes over raw records.
// It owns its working set exclusively for the duration of one run; no
// locking, no cancellation semantics at this layer.
type Reconciler struct {
	policy MergePolicy
	norm   Normalizer
}

// New builds a reconciler with the default merge policy and normalizer.
func New() *Reconciler {
	return NewWith(DefaultMergePolicy(), NormalizeKey)
}

// NewWith builds a reconciler with a custom continuation policy and
// similarity normalizer.
func NewWith(policy MergePolicy, norm Normalizer) *Reconciler {
	if policy.Continues == nil {
		policy = DefaultMergePolicy()
	}
	if norm == nil {
		norm = NormalizeKey
	}
	return &Reconciler{policy: policy, norm: norm}
}

// Run reconciles raw records into a dataset: merge adjacent fragments
// per source file, promote questions, drop duplicates, link
// explanations, and number the survivors. Deterministic: the same
// input always yields the same output. Timestamps and model metadata
// are the caller's to fill.
func (r *Reconciler) Run(records []models.RawRecord) (models.Dataset, Stats) {
	var stats Stats
	stats.Processed = len(records)

	var questions, explanations []models.RawRecord
	for _, rec := range records {
		if rec.Type == models.RecordExplanation {
			explanations = append(explanations, rec)
		} else {
			questions = append(questions, rec)
		}
	}

	mergedQuestions, qStats := MergeAdjacent(questions, r.policy)
	mergedExplanations, eStats := MergeAdjacent(explanations, r.policy)
	stats.Merged = qStats.Merged + eStats.Merged
	stats.Malformed = qStats.Malformed + eStats.Malformed
	stats.Flagged = qStats.Unresolved + eStats.Unresolved

	promoted := Promote(mergedQuestions)

	deduped, removed := Deduplicate(promoted, r.norm)
	stats.Deduplicated = removed

	linked, linkStats := LinkExplanations(deduped, mergedExplanations, r.norm)
	stats.Matched = linkStats.Matched
	stats.Unmatched = linkStats.Unmatched

	final := ReassignIDs(linked)

	return models.Dataset{
		TotalCount: len(final),
		Questions:  final,
		Metadata: models.Metadata{
			TotalRawRecords:            stats.Processed,
			TotalUniqueQuestions:       len(final),
			UnmatchedExplanationsCount: stats.Unmatched,
			MalformedRecordsCount:      stats.Malformed,
		},
	}, stats
}
