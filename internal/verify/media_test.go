package verify

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/geo"
)

func mediaSubmission(t *testing.T, kind commitment.ProofKind, payload commitment.MediaPayload) commitment.ProofSubmission {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return commitment.ProofSubmission{
		ID:          "sub-media",
		Kind:        kind,
		Payload:     raw,
		SubmittedAt: time.Now(),
	}
}

func photoCondition() commitment.Condition {
	return commitment.Condition{
		Kind:        commitment.KindProof,
		Description: "photo at the destination",
		Method:      commitment.MethodPhoto,
		Required:    true,
	}
}

func TestMediaValidator_AcceptsResolvableReference(t *testing.T) {
	validator := &MediaValidator{kind: commitment.ProofPhoto}

	sub := mediaSubmission(t, commitment.ProofPhoto, commitment.MediaPayload{
		Reference:  "https://media.stakeway.app/p/abc123.jpg",
		CapturedAt: time.Now().Add(-time.Minute),
	})

	result := validator.Validate(context.Background(), sub, photoCondition())
	if !result.Met {
		t.Errorf("Expected acceptance, got: %s", result.Message)
	}
}

func TestMediaValidator_AcceptsStorageKey(t *testing.T) {
	validator := &MediaValidator{kind: commitment.ProofVideo}

	sub := mediaSubmission(t, commitment.ProofVideo, commitment.MediaPayload{
		Reference:  "evidence/2026/08/run-final.mp4",
		CapturedAt: time.Now().Add(-time.Hour),
	})

	result := validator.Validate(context.Background(), sub, photoCondition())
	if !result.Met {
		t.Errorf("Expected storage key to be accepted, got: %s", result.Message)
	}
}

func TestMediaValidator_Rejections(t *testing.T) {
	validator := &MediaValidator{kind: commitment.ProofPhoto}
	cond := photoCondition()

	cases := []struct {
		name    string
		payload commitment.MediaPayload
		reason  string
	}{
		{
			name:    "missing reference",
			payload: commitment.MediaPayload{CapturedAt: time.Now()},
			reason:  "reference",
		},
		{
			name:    "whitespace reference",
			payload: commitment.MediaPayload{Reference: "two words", CapturedAt: time.Now()},
			reason:  "reference",
		},
		{
			name:    "missing timestamp",
			payload: commitment.MediaPayload{Reference: "https://media.stakeway.app/p/x.jpg"},
			reason:  "timestamp",
		},
		{
			name: "future timestamp",
			payload: commitment.MediaPayload{
				Reference:  "https://media.stakeway.app/p/x.jpg",
				CapturedAt: time.Now().Add(2 * time.Hour),
			},
			reason: "future",
		},
		{
			name: "invalid location tag",
			payload: commitment.MediaPayload{
				Reference:  "https://media.stakeway.app/p/x.jpg",
				CapturedAt: time.Now().Add(-time.Minute),
				Location:   &geo.Point{Lat: 120, Lng: 0},
			},
			reason: "coordinates",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := mediaSubmission(t, commitment.ProofPhoto, tc.payload)
			result := validator.Validate(context.Background(), sub, cond)
			if result.Met {
				t.Fatalf("Expected rejection, got success: %s", result.Message)
			}
			if !strings.Contains(result.Message, tc.reason) {
				t.Errorf("Expected reason containing %q, got: %s", tc.reason, result.Message)
			}
		})
	}
}

func TestMediaValidator_MalformedPayload(t *testing.T) {
	validator := &MediaValidator{kind: commitment.ProofPhoto}

	sub := commitment.ProofSubmission{
		ID:      "sub-bad",
		Kind:    commitment.ProofPhoto,
		Payload: json.RawMessage(`{"reference": 42`),
	}

	result := validator.Validate(context.Background(), sub, photoCondition())
	if result.Met {
		t.Error("Expected malformed payload to be rejected")
	}
}
