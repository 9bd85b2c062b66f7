package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/geo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func gpsSubmission(t *testing.T, payload commitment.GPSPayload) commitment.ProofSubmission {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return commitment.ProofSubmission{
		ID:          "sub-1",
		Kind:        commitment.ProofGPS,
		Payload:     raw,
		SubmittedAt: time.Now(),
	}
}

// straightPath builds a northward path of roughly the given length. One
// degree of latitude is ~111.19 km at this radius.
func straightPath(lengthKm float64, durationMin float64) []geo.Point {
	const kmPerDegreeLat = 111.19
	return []geo.Point{
		{Lat: 40.0, Lng: -74.0, TimestampMs: 0},
		{Lat: 40.0 + lengthKm/kmPerDegreeLat, Lng: -74.0, TimestampMs: int64(durationMin * 60000)},
	}
}

func TestGPSValidator_Distance_Success(t *testing.T) {
	validator := &GPSValidator{logger: testLogger()}
	cond := commitment.Condition{
		Kind:        commitment.KindDistance,
		Value:       5,
		Unit:        "kilometers",
		Description: "cover at least 5 km",
		Method:      commitment.MethodGPS,
		Required:    true,
	}

	sub := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(6.0, 60)})
	result := validator.Validate(context.Background(), sub, cond)

	if !result.Met {
		t.Fatalf("Expected success, got failure: %s", result.Message)
	}
	if !strings.Contains(result.Message, "6.00 km") {
		t.Errorf("Expected message to cite measured 6.00 km, got: %s", result.Message)
	}
	if !strings.Contains(result.Message, "5 km") {
		t.Errorf("Expected message to cite required 5 km, got: %s", result.Message)
	}
}

func TestGPSValidator_Distance_Failure(t *testing.T) {
	validator := &GPSValidator{logger: testLogger()}
	cond := commitment.Condition{
		Kind:        commitment.KindDistance,
		Value:       5,
		Unit:        "kilometers",
		Description: "cover at least 5 km",
		Method:      commitment.MethodGPS,
		Required:    true,
	}

	sub := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(3.0, 45)})
	result := validator.Validate(context.Background(), sub, cond)

	if result.Met {
		t.Fatalf("Expected failure, got success: %s", result.Message)
	}
	if !strings.Contains(result.Message, "3.00 km") {
		t.Errorf("Expected message to cite measured 3.00 km, got: %s", result.Message)
	}
}

func TestGPSValidator_Time(t *testing.T) {
	validator := &GPSValidator{logger: testLogger()}
	cond := commitment.Condition{
		Kind:        commitment.KindTime,
		Value:       30,
		Unit:        "minutes",
		Description: "arrive within 30 minutes",
		Method:      commitment.MethodGPS,
		Required:    true,
	}

	fast := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(4.0, 25)})
	if result := validator.Validate(context.Background(), fast, cond); !result.Met {
		t.Errorf("Expected 25 min path to pass 30 min condition: %s", result.Message)
	}

	slow := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(4.0, 40)})
	result := validator.Validate(context.Background(), slow, cond)
	if result.Met {
		t.Errorf("Expected 40 min path to fail 30 min condition: %s", result.Message)
	}
	if !strings.Contains(result.Message, "40.0 min") {
		t.Errorf("Expected message to cite measured time, got: %s", result.Message)
	}
}

func TestGPSValidator_Speed(t *testing.T) {
	validator := &GPSValidator{logger: testLogger()}
	cond := commitment.Condition{
		Kind:        commitment.KindSpeed,
		Value:       10,
		Unit:        "km/h",
		Description: "hold at least 10 km/h",
		Method:      commitment.MethodGPS,
		Required:    true,
	}

	// 6 km in 30 minutes is 12 km/h.
	fast := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(6.0, 30)})
	if result := validator.Validate(context.Background(), fast, cond); !result.Met {
		t.Errorf("Expected 12 km/h to pass: %s", result.Message)
	}

	// 6 km in 60 minutes is 6 km/h.
	slow := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(6.0, 60)})
	if result := validator.Validate(context.Background(), slow, cond); result.Met {
		t.Errorf("Expected 6 km/h to fail: %s", result.Message)
	}
}

func TestGPSValidator_Mode(t *testing.T) {
	validator := &GPSValidator{logger: testLogger()}
	cond := commitment.Condition{
		Kind:        commitment.KindMode,
		Value:       80,
		Unit:        "percentage",
		Description: "walk at least 80% of the route",
		Method:      commitment.MethodGPS,
		Required:    true,
	}

	// ~5.6 km in 60 min is walking pace across the whole path.
	walking := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(5.6, 60), Mode: "walk"})
	result := validator.Validate(context.Background(), walking, cond)
	if !result.Met {
		t.Errorf("Expected walking-pace path to satisfy walk condition: %s", result.Message)
	}
	if !strings.Contains(result.Message, "approximate") {
		t.Errorf("Mode verdicts must be flagged approximate, got: %s", result.Message)
	}

	// ~40 km in 60 min is driving pace; the declared walk share should be 0.
	driving := gpsSubmission(t, commitment.GPSPayload{Path: straightPath(40, 60), Mode: "walk"})
	if result := validator.Validate(context.Background(), driving, cond); result.Met {
		t.Errorf("Expected driving-pace path to fail walk condition: %s", result.Message)
	}
}

func TestGPSValidator_RejectsShortOrMissingPath(t *testing.T) {
	validator := &GPSValidator{logger: testLogger()}
	cond := commitment.Condition{
		Kind:        commitment.KindDistance,
		Value:       5,
		Description: "cover at least 5 km",
		Method:      commitment.MethodGPS,
		Required:    true,
	}

	single := gpsSubmission(t, commitment.GPSPayload{Path: []geo.Point{{Lat: 40, Lng: -74}}})
	if result := validator.Validate(context.Background(), single, cond); result.Met {
		t.Error("Expected single-point path to be rejected")
	}

	empty := commitment.ProofSubmission{ID: "sub-2", Kind: commitment.ProofGPS}
	result := validator.Validate(context.Background(), empty, cond)
	if result.Met {
		t.Error("Expected missing payload to be rejected")
	}
	if result.Message == "" {
		t.Error("Rejection must carry a reason")
	}
}

func TestGPSValidator_InvalidGeometryIsFailureNotPanic(t *testing.T) {
	validator := &GPSValidator{logger: testLogger()}
	cond := commitment.Condition{
		Kind:        commitment.KindDistance,
		Value:       1,
		Description: "cover at least 1 km",
		Method:      commitment.MethodGPS,
		Required:    true,
	}

	sub := gpsSubmission(t, commitment.GPSPayload{Path: []geo.Point{
		{Lat: 40, Lng: -74, TimestampMs: 0},
		{Lat: 95, Lng: -74, TimestampMs: 60000}, // latitude out of range
	}})

	result := validator.Validate(context.Background(), sub, cond)
	if result.Met {
		t.Error("Expected invalid geometry to fail verification")
	}
	if !strings.Contains(result.Message, "invalid geometry") {
		t.Errorf("Expected geometry reason in message, got: %s", result.Message)
	}
}
