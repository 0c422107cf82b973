package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"kosoku-tracker/models"
)

// Fingerprint reduces a schedule set to a deterministic hash for change
// detection. It folds in, in iteration order, each entry's boarding date and
// departure time, and for every retained fare plan its id, price and
// remaining-seat count. Parser output order is stable per page but not
// sorted by any business key, so a reordering of otherwise-identical
// schedules between polls counts as a change; that approximation is
// accepted.
func Fingerprint(entries []models.ScheduleEntry) string {
	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s|%s;", e.BoardingDate, e.DepartureTime)
		for _, p := range e.AvailablePlans {
			if p.RemainingSeats != nil {
				fmt.Fprintf(h, "%s:%d:%d;", p.PlanID, p.Price, *p.RemainingSeats)
			} else {
				fmt.Fprintf(h, "%s:%d:-;", p.PlanID, p.Price)
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
