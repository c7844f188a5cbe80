package verify

import "github.com/nocaplabs/claimcheck/core"

// Base confidence per resolving stage. The structured store is curated
// ground truth; the generative fallback without evidence trusts only
// the model.
const (
	baseConfidenceDB  = 90
	baseConfidenceWeb = 75
	baseConfidenceRAG = 70
	baseConfidenceLLM = 50

	evidenceBonus    = 5
	maxEvidenceBonus = 20
	maxConfidence    = 100
)

// confidenceFor computes the confidence score for a result: the stage
// base plus 5 per supporting evidence record, the bonus capped at 20
// and the total at 100.
func confidenceFor(source core.SourceType, evidenceCount int) int {
	base := baseConfidenceLLM
	switch source {
	case core.SourceTypeDB:
		base = baseConfidenceDB
	case core.SourceTypeWeb:
		base = baseConfidenceWeb
	case core.SourceTypeRAG:
		base = baseConfidenceRAG
	}

	bonus := evidenceCount * evidenceBonus
	if bonus > maxEvidenceBonus {
		bonus = maxEvidenceBonus
	}
	if base+bonus > maxConfidence {
		return maxConfidence
	}
	return base + bonus
}
