package constants

// Status is the per-item outcome of a pipeline stage.
type Status string

// Stable values (these strings appear in logs and run summaries).
const (
	StatusProcessed Status = "PROCESSED" // sidecar or judgment produced
	StatusSkipped   Status = "SKIPPED"   // sidecar already present or claimed by another worker
	StatusErrored   Status = "ERRORED"   // item failed; batch continued
)

// SkipReason explains a StatusSkipped outcome.
type SkipReason string

const (
	SkipExists  SkipReason = "sidecar_exists"
	SkipClaimed SkipReason = "claimed"
)
