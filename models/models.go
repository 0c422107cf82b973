package models

import (
	"fmt"
	"time"
)

const (
	dateFormatISO     = "2006-01-02"
	dateFormatCompact = "20060102"
)

// maxPassengers is the largest party size the reservation site accepts per booking.
const maxPassengers = 12

// DateWindow is an inclusive range of calendar dates. Start and End accept
// either YYYY-MM-DD or YYYYMMDD text.
type DateWindow struct {
	Start string
	End   string
}

func parseWindowDate(s string) (time.Time, error) {
	for _, layout := range []string{dateFormatISO, dateFormatCompact} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or YYYYMMDD", s)
}

// Dates expands the window into every calendar date in range, inclusive of
// both ends, as canonical YYYYMMDD strings. A start after the end is a
// configuration error, never silently swapped.
func (w DateWindow) Dates() ([]string, error) {
	start, err := parseWindowDate(w.Start)
	if err != nil {
		return nil, fmt.Errorf("date window start: %w", err)
	}
	end, err := parseWindowDate(w.End)
	if err != nil {
		return nil, fmt.Errorf("date window end: %w", err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("date window start %q is after end %q", w.Start, w.End)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(dateFormatCompact))
	}
	return dates, nil
}

// Validate checks both bounds without expanding the window.
func (w DateWindow) Validate() error {
	_, err := w.Dates()
	return err
}

// DepartureWindow restricts tracked departures to a time-of-day range.
// Bounds are "HH:MM" strings; an empty bound leaves that side unbounded.
// Comparison is lexicographic, which is only correct for zero-padded
// 24-hour times.
type DepartureWindow struct {
	From  string
	Until string
}

// Matches reports whether the departure time violates no configured bound.
// Both bounds are inclusive. A nil window matches everything.
func (w *DepartureWindow) Matches(departureTime string) bool {
	if w == nil {
		return true
	}
	if w.From != "" && departureTime < w.From {
		return false
	}
	if w.Until != "" && departureTime > w.Until {
		return false
	}
	return true
}

// PassengerManifest is the party composition sent with a schedule search.
// The site splits passengers by age, sex and handicapped fare eligibility.
type PassengerManifest struct {
	AdultMale   int
	AdultFemale int
	ChildMale   int
	ChildFemale int

	HandicappedAdultMale   int
	HandicappedAdultFemale int
	HandicappedChildMale   int
	HandicappedChildFemale int
}

// Total is the party size across all eight categories.
func (m PassengerManifest) Total() int {
	return m.AdultMale + m.AdultFemale + m.ChildMale + m.ChildFemale +
		m.HandicappedAdultMale + m.HandicappedAdultFemale +
		m.HandicappedChildMale + m.HandicappedChildFemale
}

// Males is the male total the site expects as danseiNum.
func (m PassengerManifest) Males() int {
	return m.AdultMale + m.ChildMale + m.HandicappedAdultMale + m.HandicappedChildMale
}

// Females is the female total the site expects as zyoseiNum.
func (m PassengerManifest) Females() int {
	return m.AdultFemale + m.ChildFemale + m.HandicappedAdultFemale + m.HandicappedChildFemale
}

// Validate checks the manifest once at construction time; downstream code
// assumes a validated manifest.
func (m PassengerManifest) Validate() error {
	for _, n := range []int{
		m.AdultMale, m.AdultFemale, m.ChildMale, m.ChildFemale,
		m.HandicappedAdultMale, m.HandicappedAdultFemale,
		m.HandicappedChildMale, m.HandicappedChildFemale,
	} {
		if n < 0 {
			return fmt.Errorf("passenger count must not be negative, got %d", n)
		}
	}
	total := m.Total()
	if total < 1 || total > maxPassengers {
		return fmt.Errorf("passenger total must be between 1 and %d, got %d", maxPassengers, total)
	}
	return nil
}

// CatalogEntry is one (id, name, flag) record from an XML pulldown response.
type CatalogEntry struct {
	ID               string
	Name             string
	SwitchChangeable bool
}

// RouteDescriptor identifies a bus line within an area.
type RouteDescriptor struct {
	ID               string
	Name             string
	SwitchChangeable bool
}

// StationDescriptor identifies a boarding or alighting stop on a route.
type StationDescriptor struct {
	ID   string
	Name string
}

// FarePlan is one purchasable price/seat-class option on a departure.
// Sold-out plans are dropped during parsing and never appear here: a plan's
// presence means it has available seats, with RemainingSeats nil when the
// site shows availability without an exact count.
type FarePlan struct {
	PlanID         string
	PlanIndex      int
	Price          int
	Display        string
	RemainingSeats *int
}

// SeatText describes the plan's availability for alert text.
func (p FarePlan) SeatText() string {
	if p.RemainingSeats == nil {
		return "seats available"
	}
	if *p.RemainingSeats == 1 {
		return "1 seat remaining"
	}
	return fmt.Sprintf("%d seats remaining", *p.RemainingSeats)
}

// ScheduleEntry is one departure card parsed from a search results page.
// The site exposes no stable id, so BusNumber is the card's ordinal position
// on the page; entries are recomputed fresh every poll, never stored.
type ScheduleEntry struct {
	BusNumber          int
	DepartureStationID string
	ArrivalStationID   string
	BoardingDate       string
	DepartureTime      string
	ArrivalTime        string
	AvailablePlans     []FarePlan
}

// HasSeats reports whether at least one fare plan survived the sold-out filter.
func (e *ScheduleEntry) HasSeats() bool {
	return len(e.AvailablePlans) > 0
}

// Subscription is one user's tracked route with notification preferences.
type Subscription struct {
	ID                 int64
	UserName           string
	WebhookURL         string
	AreaID             string
	RouteID            string
	DepartureStationID string
	ArrivalStationID   string
	Window             DateWindow
	Departure          *DepartureWindow
	Passengers         PassengerManifest
	IntervalSeconds    int
	NotifyOnChangeOnly bool
	Enabled            bool
}

// AvailabilityQuery is the immutable per-cycle search request, rebuilt from
// the subscription each polling cycle.
type AvailabilityQuery struct {
	AreaID             string
	RouteID            string
	DepartureStationID string
	ArrivalStationID   string
	Window             DateWindow
	Passengers         PassengerManifest
	Departure          *DepartureWindow
}

// BuildQuery validates the subscription's search fields and assembles the
// query. Validation failures here are configuration errors and fail worker
// construction, not steady-state polling.
func BuildQuery(sub *Subscription) (*AvailabilityQuery, error) {
	switch {
	case sub.AreaID == "":
		return nil, fmt.Errorf("subscription %d: missing area id", sub.ID)
	case sub.RouteID == "":
		return nil, fmt.Errorf("subscription %d: missing route id", sub.ID)
	case sub.DepartureStationID == "":
		return nil, fmt.Errorf("subscription %d: missing departure station", sub.ID)
	case sub.ArrivalStationID == "":
		return nil, fmt.Errorf("subscription %d: missing arrival station", sub.ID)
	}
	if err := sub.Window.Validate(); err != nil {
		return nil, fmt.Errorf("subscription %d: %w", sub.ID, err)
	}
	if err := sub.Passengers.Validate(); err != nil {
		return nil, fmt.Errorf("subscription %d: %w", sub.ID, err)
	}

	return &AvailabilityQuery{
		AreaID:             sub.AreaID,
		RouteID:            sub.RouteID,
		DepartureStationID: sub.DepartureStationID,
		ArrivalStationID:   sub.ArrivalStationID,
		Window:             sub.Window,
		Passengers:         sub.Passengers,
		Departure:          sub.Departure,
	}, nil
}

// TrackingState is the per-subscription change-detection baseline, owned by
// the repository and rewritten after each polling cycle.
type TrackingState struct {
	SubscriptionID int64
	LastSeenHash   string
	LastCheck      time.Time
	TotalChecks    int64
	TotalAlerts    int64
}

// Alert is the structured payload handed to the notifier. Formatting for a
// concrete webhook schema happens in the notify package.
type Alert struct {
	Title       string
	Description string
	Lines       []AlertLine
	Footer      string
}

// AlertLine is one schedule+plan pair in an alert.
type AlertLine struct {
	Date          string
	DepartureTime string
	ArrivalTime   string
	SeatText      string
	PriceText     string
}
