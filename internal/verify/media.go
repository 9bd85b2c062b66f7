package verify

import (
	"context"
	"strings"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
)

// clockSkewAllowance tolerates device clocks slightly ahead of ours when
// checking capture timestamps.
const clockSkewAllowance = 5 * time.Minute

// MediaValidator performs structural validation of photo and video evidence:
// the payload must carry a resolvable media reference and a plausible capture
// timestamp. No content analysis happens here; that is delegated to an
// external collaborator when richer verification is desired.
type MediaValidator struct {
	kind commitment.ProofKind
}

func (v *MediaValidator) Validate(ctx context.Context, sub commitment.ProofSubmission, cond commitment.Condition) commitment.ConditionResult {
	payload, err := commitment.DecodeMediaPayload(sub)
	if err != nil {
		return failed(cond, "%s evidence rejected: %v", v.kind, err)
	}

	if !resolvableReference(payload.Reference) {
		return failed(cond, "%s evidence rejected: missing or unresolvable media reference %q", v.kind, payload.Reference)
	}

	if payload.CapturedAt.IsZero() {
		return failed(cond, "%s evidence rejected: capture timestamp missing", v.kind)
	}
	if payload.CapturedAt.After(time.Now().Add(clockSkewAllowance)) {
		return failed(cond, "%s evidence rejected: capture timestamp %s is in the future", v.kind, payload.CapturedAt.Format(time.RFC3339))
	}

	if payload.Location != nil && !payload.Location.Valid() {
		return failed(cond, "%s evidence rejected: location tag has invalid coordinates", v.kind)
	}

	return passed(cond, "%s reference %s accepted, captured %s", v.kind, payload.Reference, payload.CapturedAt.Format(time.RFC3339))
}

// resolvableReference accepts http(s) URLs and storage keys. Whether the
// object actually exists is the media resolver's concern, not ours.
func resolvableReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return false
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return len(ref) > len("https://")
	}
	// Storage keys must not contain whitespace.
	return !strings.ContainsAny(ref, " \t\n")
}
