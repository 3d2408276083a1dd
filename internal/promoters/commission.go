package promoters

import (
	"bytes"
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/crowdstack/backend/pkg/database"
)

// Tally is the number of active checkins attributed to a promoter.
type Tally struct {
	PromoterID uuid.UUID
	Checkins   int
}

// Line is one promoter's commission for an event.
type Line struct {
	PromoterID   uuid.UUID `json:"promoter_id"`
	Checkins     int       `json:"checkins"`
	PerHeadCents int       `json:"commission_per_head_cents"`
	AmountCents  int       `json:"amount_cents"`
}

// ComputePayouts multiplies each assigned promoter's tally by its per-head rate.
// Promoters without terms on the event, or without checkins, earn nothing and
// get no line. Lines are ordered by promoter id.
func ComputePayouts(tallies []Tally, perHead map[uuid.UUID]int) []Line {
	counts := make(map[uuid.UUID]int, len(tallies))
	for _, t := range tallies {
		counts[t.PromoterID] += t.Checkins
	}
	lines := make([]Line, 0, len(counts))
	for id, n := range counts {
		rate, ok := perHead[id]
		if !ok || n <= 0 {
			continue
		}
		lines = append(lines, Line{PromoterID: id, Checkins: n, PerHeadCents: rate, AmountCents: n * rate})
	}
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].PromoterID[:], lines[j].PromoterID[:]) < 0
	})
	return lines
}

// LoadTallies counts active checkins per referring promoter.
func LoadTallies(ctx context.Context, q database.Querier, eventID uuid.UUID) ([]Tally, error) {
	rows, err := q.Query(ctx, `SELECT r.referral_promoter_id, COUNT(*)
		FROM checkins c
		JOIN registrations r ON r.id = c.registration_id
		WHERE c.event_id = $1 AND c.undo_at IS NULL AND r.referral_promoter_id IS NOT NULL
		GROUP BY r.referral_promoter_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tally
	for rows.Next() {
		var t Tally
		if err := rows.Scan(&t.PromoterID, &t.Checkins); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// LoadRates returns the per-head commission of every promoter assigned to the event.
func LoadRates(ctx context.Context, q database.Querier, eventID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := q.Query(ctx, `SELECT promoter_id, commission_per_head_cents FROM event_promoters WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var cents int
		if err := rows.Scan(&id, &cents); err != nil {
			return nil, err
		}
		out[id] = cents
	}
	return out, rows.Err()
}

// Commissions loads tallies and rates and computes the lines.
func Commissions(ctx context.Context, q database.Querier, eventID uuid.UUID) ([]Line, error) {
	tallies, err := LoadTallies(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	rates, err := LoadRates(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	return ComputePayouts(tallies, rates), nil
}
