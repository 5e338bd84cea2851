package sleep

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const seedDays = 14

var seedNotes = []string{"", "mind was racing", "heavy snoring", "woke from a nightmare", "slept deeply"}

// Seed fills an empty store with two weeks of plausible records ending the
// day before now. It returns the number of inserted records.
func Seed(ctx context.Context, store Store, now time.Time, rng *rand.Rand) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	for i := seedDays; i >= 1; i-- {
		day := now.AddDate(0, 0, -i)
		startHour := (22 + rng.Intn(3)) % 24
		rec := NewRecord{
			Date:       day.Format(DateLayout),
			SleepStart: fmt.Sprintf("%02d:%02d", startHour, rng.Intn(60)),
			SleepEnd:   fmt.Sprintf("%02d:%02d", 6+rng.Intn(4), rng.Intn(60)),
			Note:       seedNotes[rng.Intn(len(seedNotes))],
		}
		if _, err := store.Create(ctx, rec); err != nil {
			return seedDays - i, fmt.Errorf("seed %s: %w", rec.Date, err)
		}
	}
	return seedDays, nil
}
