package verify

import "github.com/nocaplabs/claimcheck/core"

// CascadeMonitor provides hooks to observe the verification process.
// Implement this interface to track intermediate steps during verification.
type CascadeMonitor interface {
	Start(question string)
	CacheHit(result *core.VerificationResult)
	WebEvidenceGathered(results []core.WebResult, reputable int)
	WebSearchFailed(err error)
	StageResolved(stage core.SourceType, evidenceCount int)
	Finish(result *core.VerificationResult)
}

// noopMonitor is a no-op implementation of CascadeMonitor
type noopMonitor struct{}

var _ CascadeMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                {}
func (n *noopMonitor) CacheHit(_ *core.VerificationResult)           {}
func (n *noopMonitor) WebEvidenceGathered(_ []core.WebResult, _ int) {}
func (n *noopMonitor) WebSearchFailed(_ error)                       {}
func (n *noopMonitor) StageResolved(_ core.SourceType, _ int)        {}
func (n *noopMonitor) Finish(_ *core.VerificationResult)             {}
