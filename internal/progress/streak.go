package progress

import "time"

const day = 24 * time.Hour

// UpdateStreak computes the new current and best streak after activity at
// now. The day gap is elapsed time divided by 24h, not calendar-day
// boundaries: activity 23 hours apart across midnight counts as the same
// day. A gap of one day extends the streak, a longer gap restarts it at 1,
// and a same-day (or backwards) gap leaves it unchanged.
func UpdateStreak(lastActivityAt, now time.Time, streak, best int) (newStreak, newBest int) {
	newStreak = streak

	if elapsed := now.Sub(lastActivityAt); elapsed >= 0 {
		switch gap := int(elapsed / day); {
		case gap == 1:
			newStreak = streak + 1
		case gap > 1:
			newStreak = 1
		}
	}

	return newStreak, max(best, newStreak)
}
