package advisor

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/stakeway/stakeway-platform/pkg/commitment"
	"github.com/stakeway/stakeway-platform/pkg/postgres"
)

// FingerprintDim is the fixed dimensionality of a trip fingerprint.
const FingerprintDim = 32

// SimilarTrip is one nearest-neighbour hit from the fingerprint store.
type SimilarTrip struct {
	CommitmentID string
	PaceMinPerKm float64
	Distance     float64 // vector distance, smaller is more similar
}

// EncodeRequestFingerprint encodes an advice request into the shared
// fingerprint layout so it can be compared against past trips.
func EncodeRequestFingerprint(req commitment.AdviceRequest) pgvector.Vector {
	return encodeFeatures(req.Departure, req.DistanceKm, req.Mode, req.Urgency, req.Traffic)
}

// EncodeRecordFingerprint encodes a completed historical trip. Urgency and
// traffic are not recorded for past trips and stay zero.
func EncodeRecordFingerprint(r commitment.CommitmentRecord) pgvector.Vector {
	return encodeFeatures(r.CommittedDeparture, r.EstimatedDistanceKm, r.Mode, "", "")
}

// encodeFeatures lays out the 32-dim fingerprint:
//
//	[0:2]   hour of day, cyclical (sin/cos)
//	[2:4]   weekday, cyclical (sin/cos)
//	[4:10]  distance bucket one-hot (<1, <3, <8, <15, <30, >=30 km)
//	[10:14] mode one-hot (walk, run, cycle, drive)
//	[14:17] urgency one-hot (low, normal, high)
//	[17:20] traffic one-hot (light, moderate, heavy)
//	[20:32] reserved, zero
func encodeFeatures(departure time.Time, distanceKm float64, mode, urgency, traffic string) pgvector.Vector {
	features := make([]float32, FingerprintDim)

	if !departure.IsZero() {
		hour := float64(departure.Hour()) + float64(departure.Minute())/60.0
		features[0] = float32(math.Sin(2 * math.Pi * hour / 24))
		features[1] = float32(math.Cos(2 * math.Pi * hour / 24))

		weekday := float64(departure.Weekday())
		features[2] = float32(math.Sin(2 * math.Pi * weekday / 7))
		features[3] = float32(math.Cos(2 * math.Pi * weekday / 7))
	}

	features[4+distanceBucket(distanceKm)] = 1

	switch mode {
	case "walk", "walking", "foot":
		features[10] = 1
	case "run", "running":
		features[11] = 1
	case "cycle", "cycling", "bike":
		features[12] = 1
	case "drive", "driving", "car", "transit":
		features[13] = 1
	}

	switch urgency {
	case "low":
		features[14] = 1
	case "normal":
		features[15] = 1
	case "high":
		features[16] = 1
	}

	switch traffic {
	case "light":
		features[17] = 1
	case "moderate":
		features[18] = 1
	case "heavy":
		features[19] = 1
	}

	return pgvector.NewVector(features)
}

func distanceBucket(distanceKm float64) int {
	switch {
	case distanceKm < 1:
		return 0
	case distanceKm < 3:
		return 1
	case distanceKm < 8:
		return 2
	case distanceKm < 15:
		return 3
	case distanceKm < 30:
		return 4
	default:
		return 5
	}
}

// FingerprintStore persists trip fingerprints in Postgres (pgvector column)
// and retrieves nearest neighbours for the similar-trip aside.
type FingerprintStore struct {
	pg postgres.Client
}

// NewFingerprintStore creates a fingerprint store over the given client.
func NewFingerprintStore(pgClient postgres.Client) *FingerprintStore {
	return &FingerprintStore{pg: pgClient}
}

// Upsert stores the fingerprint of one completed trip. Re-upserting the same
// commitment is a no-op, which makes the advisor's history backfill
// idempotent.
func (s *FingerprintStore) Upsert(ctx context.Context, userID string, r commitment.CommitmentRecord) error {
	pace := r.RealizedPace()
	if pace <= 0 {
		return nil
	}

	query := `
		INSERT INTO trip_fingerprints (commitment_id, user_id, embedding, pace_min_per_km, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (commitment_id) DO NOTHING
	`

	_, err := s.pg.Exec(ctx, query, r.ID, userID, EncodeRecordFingerprint(r), pace)
	if err != nil {
		return fmt.Errorf("failed to upsert trip fingerprint for %s: %w", r.ID, err)
	}
	return nil
}

// SimilarTrips returns the k nearest past trips of a user by fingerprint
// distance.
func (s *FingerprintStore) SimilarTrips(ctx context.Context, userID string, fingerprint pgvector.Vector, k int) ([]SimilarTrip, error) {
	query := `
		SELECT commitment_id, pace_min_per_km, embedding <-> $2 AS distance
		FROM trip_fingerprints
		WHERE user_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`

	rows, err := s.pg.Query(ctx, query, userID, fingerprint, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar trips: %w", err)
	}
	defer rows.Close()

	var trips []SimilarTrip
	for rows.Next() {
		var trip SimilarTrip
		if err := rows.Scan(&trip.CommitmentID, &trip.PaceMinPerKm, &trip.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan similar trip: %w", err)
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}
