package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kosoku-tracker/models"
	"kosoku-tracker/notify"
	"kosoku-tracker/storage"
	"kosoku-tracker/utils"
)

// ScheduleSource is the upstream the tracker polls for one boarding date;
// satisfied by *kosoku.Client.
type ScheduleSource interface {
	Schedules(ctx context.Context, q *models.AvailabilityQuery, boardingDate string) ([]models.ScheduleEntry, error)
}

// Tracker polls one subscription on its configured interval, detects
// availability changes and drives the notify decision. Each active
// subscription gets its own Tracker running in its own goroutine; trackers
// coordinate only through the repository.
type Tracker struct {
	sub        *models.Subscription
	source     ScheduleSource
	repo       storage.Repository
	notifier   notify.Notifier
	translator *Translator
	logger     *utils.Logger
	interval   time.Duration
}

// NewTracker validates the subscription and builds its worker. Validation
// failures here are configuration errors: they prevent the worker from ever
// starting but can never occur during steady-state polling.
func NewTracker(sub *models.Subscription, source ScheduleSource, repo storage.Repository, notifier notify.Notifier, translator *Translator, logger *utils.Logger) (*Tracker, error) {
	if _, err := models.BuildQuery(sub); err != nil {
		return nil, err
	}
	if sub.IntervalSeconds <= 0 {
		return nil, fmt.Errorf("subscription %d: poll interval must be positive, got %d", sub.ID, sub.IntervalSeconds)
	}
	if sub.WebhookURL == "" {
		return nil, fmt.Errorf("subscription %d: missing webhook URL", sub.ID)
	}

	return &Tracker{
		sub:        sub,
		source:     source,
		repo:       repo,
		notifier:   notifier,
		translator: translator,
		logger:     logger,
		interval:   time.Duration(sub.IntervalSeconds) * time.Second,
	}, nil
}

// Run polls until the context is cancelled. A tick that fires while a cycle
// is still running is dropped, never queued, so cycles cannot pile up.
// Per-cycle errors are logged and never terminate the loop.
func (t *Tracker) Run(ctx context.Context) {
	t.logger.Info("[tracker] subscription %d (%s): polling every %v",
		t.sub.ID, t.sub.UserName, t.interval)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("[tracker] subscription %d: stopping", t.sub.ID)
			return
		case <-ticker.C:
		}

		if err := t.runCycle(ctx); err != nil {
			t.logger.Error("[tracker] subscription %d: cycle failed: %v", t.sub.ID, err)
		}

		// Drop the tick that may have fired while the cycle ran.
		select {
		case <-ticker.C:
		default:
		}
	}
}

// runCycle performs one full poll: fetch every date in the window
// sequentially, filter, fingerprint, decide, and persist.
func (t *Tracker) runCycle(ctx context.Context) error {
	query, err := models.BuildQuery(t.sub)
	if err != nil {
		return err
	}

	dates, err := query.Window.Dates()
	if err != nil {
		return err
	}

	var all []models.ScheduleEntry
	for _, date := range dates {
		entries, err := t.source.Schedules(ctx, query, date)
		if err != nil {
			t.logger.Warn("[tracker] subscription %d: date %s failed: %v", t.sub.ID, date, err)
			continue
		}
		all = append(all, entries...)
	}

	filtered := seatFiltered(all, query.Departure)
	fingerprint := Fingerprint(filtered)
	hasSeats := len(filtered) > 0

	state, err := t.repo.TrackingState(ctx, t.sub.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("read tracking state: %w", err)
	}

	// No previous fingerprint means the first-ever check always counts as a
	// change.
	changed := state == nil || state.LastSeenHash != fingerprint

	t.logger.Debug("[tracker] subscription %d: %d schedules, %d with seats, changed=%v",
		t.sub.ID, len(all), len(filtered), changed)

	now := time.Now()

	switch {
	case ShouldNotify(t.sub.NotifyOnChangeOnly, changed, hasSeats):
		alert := t.buildAlert(ctx, query, filtered)
		if err := t.notifier.SendAlert(ctx, t.sub.WebhookURL, alert); err != nil {
			t.logger.Error("[tracker] subscription %d: alert delivery failed: %v", t.sub.ID, err)
		}
		return t.persist(ctx, state, fingerprint, now, true)
	case hasSeats:
		// Keep the change baseline current even when policy suppressed the
		// alert, so the next real change is detected against this state.
		return t.persist(ctx, state, fingerprint, now, false)
	default:
		return t.repo.RecordCheck(ctx, t.sub.ID, now)
	}
}

func (t *Tracker) persist(ctx context.Context, prev *models.TrackingState, fingerprint string, now time.Time, alerted bool) error {
	next := &models.TrackingState{
		SubscriptionID: t.sub.ID,
		LastSeenHash:   fingerprint,
		LastCheck:      now,
		TotalChecks:    1,
	}
	if prev != nil {
		next.TotalChecks = prev.TotalChecks + 1
		next.TotalAlerts = prev.TotalAlerts
	}
	if alerted {
		next.TotalAlerts++
	}
	if err := t.repo.SaveTrackingState(ctx, next); err != nil {
		return fmt.Errorf("save tracking state: %w", err)
	}
	return nil
}

// ShouldNotify is the notify decision policy: seats must exist, and when the
// subscription only wants change alerts the fingerprint must have moved.
func ShouldNotify(notifyOnChangeOnly, stateChanged, hasSeats bool) bool {
	if !hasSeats {
		return false
	}
	if notifyOnChangeOnly {
		return stateChanged
	}
	return true
}

// seatFiltered keeps entries inside the departure window that still have at
// least one available fare plan. Entries whose plans were all dropped as
// sold out remain visible to the parser's callers but never drive
// notification.
func seatFiltered(entries []models.ScheduleEntry, w *models.DepartureWindow) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, e := range entries {
		if !w.Matches(e.DepartureTime) {
			continue
		}
		if !e.HasSeats() {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (t *Tracker) buildAlert(ctx context.Context, query *models.AvailabilityQuery, entries []models.ScheduleEntry) *models.Alert {
	from := t.stationDisplayName(ctx, query.DepartureStationID)
	to := t.stationDisplayName(ctx, query.ArrivalStationID)

	alert := &models.Alert{
		Title: fmt.Sprintf("Seats available: %s → %s", from, to),
		Description: fmt.Sprintf("%s → %s, %s to %s",
			from, to, query.Window.Start, query.Window.End),
		Footer: alertFooter(query),
	}

	for _, e := range entries {
		for _, p := range e.AvailablePlans {
			alert.Lines = append(alert.Lines, models.AlertLine{
				Date:          prettyDate(e.BoardingDate),
				DepartureTime: e.DepartureTime,
				ArrivalTime:   e.ArrivalTime,
				SeatText:      p.SeatText(),
				PriceText:     p.Display,
			})
		}
	}
	return alert
}

// stationDisplayName resolves the repository's cached name and runs it
// through the translation dictionary; unknown stations fall back to the raw
// id.
func (t *Tracker) stationDisplayName(ctx context.Context, stationID string) string {
	name, err := t.repo.StationName(ctx, stationID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.Warn("[tracker] subscription %d: station name %q: %v", t.sub.ID, stationID, err)
		}
		return stationID
	}
	return t.translator.Lookup(name)
}

func alertFooter(query *models.AvailabilityQuery) string {
	total := query.Passengers.Total()
	footer := fmt.Sprintf("%d passenger(s)", total)
	if w := query.Departure; w != nil {
		switch {
		case w.From != "" && w.Until != "":
			footer += fmt.Sprintf(" · departures %s–%s", w.From, w.Until)
		case w.From != "":
			footer += fmt.Sprintf(" · departures from %s", w.From)
		case w.Until != "":
			footer += fmt.Sprintf(" · departures until %s", w.Until)
		}
	}
	return footer
}

// prettyDate reformats a canonical YYYYMMDD date for alert text.
func prettyDate(compact string) string {
	t, err := time.Parse("20060102", compact)
	if err != nil {
		return compact
	}
	return t.Format("2006-01-02 (Mon)")
}
