package commitment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/geo"
)

// GPSPayload is the evidence payload of a gps-kind submission: an ordered
// path of fixes plus the mode of transport the user declared.
type GPSPayload struct {
	Path []geo.Point `json:"path"`
	Mode string      `json:"mode,omitempty"`
}

// MediaPayload is the evidence payload of photo/video submissions. The core
// performs structural validation only; content analysis is delegated to an
// external collaborator.
type MediaPayload struct {
	Reference  string     `json:"reference"`
	CapturedAt time.Time  `json:"captured_at"`
	Location   *geo.Point `json:"location,omitempty"`
}

// ManualPayload is the evidence payload of manually reviewed submissions.
type ManualPayload struct {
	Note         string `json:"note,omitempty"`
	ReviewerHint string `json:"reviewer_hint,omitempty"`
}

// DecodeGPSPayload decodes and minimally checks a GPS payload.
func DecodeGPSPayload(sub ProofSubmission) (*GPSPayload, error) {
	if len(sub.Payload) == 0 {
		return nil, fmt.Errorf("%w: submission %s has no payload", ErrMalformedPayload, sub.ID)
	}

	var payload GPSPayload
	if err := json.Unmarshal(sub.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if len(payload.Path) == 0 {
		return nil, fmt.Errorf("%w: submission %s carries no path", ErrMalformedPayload, sub.ID)
	}

	return &payload, nil
}

// DecodeMediaPayload decodes and minimally checks a photo/video payload.
func DecodeMediaPayload(sub ProofSubmission) (*MediaPayload, error) {
	if len(sub.Payload) == 0 {
		return nil, fmt.Errorf("%w: submission %s has no payload", ErrMalformedPayload, sub.ID)
	}

	var payload MediaPayload
	if err := json.Unmarshal(sub.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return &payload, nil
}
