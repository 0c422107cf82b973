package services

import (
	"testing"

	"kosoku-tracker/models"
	"kosoku-tracker/scraper/kosoku"
	"kosoku-tracker/utils"
)

func seats(n int) *int { return &n }

func sampleEntries() []models.ScheduleEntry {
	return []models.ScheduleEntry{
		{
			BoardingDate:  "20251029",
			DepartureTime: "6:45",
			ArrivalTime:   "8:30",
			AvailablePlans: []models.FarePlan{
				{PlanID: "PLN001", Price: 12000, RemainingSeats: seats(3)},
			},
		},
		{
			BoardingDate:  "20251030",
			DepartureTime: "13:30",
			ArrivalTime:   "16:45",
			AvailablePlans: []models.FarePlan{
				{PlanID: "PLN011", Price: 5400, RemainingSeats: nil},
			},
		},
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(sampleEntries())
	b := Fingerprint(sampleEntries())
	if a != b {
		t.Errorf("identical input produced different fingerprints:\n%s\n%s", a, b)
	}
}

func TestFingerprintChangesWithPrice(t *testing.T) {
	base := Fingerprint(sampleEntries())

	changed := sampleEntries()
	changed[0].AvailablePlans[0].Price = 11000
	if Fingerprint(changed) == base {
		t.Error("price change did not change the fingerprint")
	}
}

func TestFingerprintChangesWithSeatCount(t *testing.T) {
	base := Fingerprint(sampleEntries())

	changed := sampleEntries()
	changed[0].AvailablePlans[0].RemainingSeats = seats(2)
	if Fingerprint(changed) == base {
		t.Error("seat count change did not change the fingerprint")
	}

	unknown := sampleEntries()
	unknown[0].AvailablePlans[0].RemainingSeats = nil
	if Fingerprint(unknown) == base {
		t.Error("known vs unknown seat count must differ")
	}
}

func TestFingerprintChangesWithDeparture(t *testing.T) {
	base := Fingerprint(sampleEntries())

	changed := sampleEntries()
	changed[1].DepartureTime = "14:00"
	if Fingerprint(changed) == base {
		t.Error("departure time change did not change the fingerprint")
	}
}

func TestFingerprintStableAcrossReparses(t *testing.T) {
	page := `<html><body>
<div class="planList">
	<span class="departTime">6:45発</span>
	<span class="arriveTime">8:30着</span>
	<div class="priceArea">
		<p class="price">12,000円</p>
		<form>
			<input type="hidden" name="aki" value="1">
			<input type="hidden" name="planCd" value="PLN001">
			<button type="submit">残り3席</button>
		</form>
	</div>
</div>
</body></html>`

	parser := kosoku.NewScheduleParser(utils.NewLogger())

	first, err := parser.Parse(page, "20251029", "S01", "S09")
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	second, err := parser.Parse(page, "20251029", "S01", "S09")
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}

	if Fingerprint(first) != Fingerprint(second) {
		t.Error("byte-identical HTML produced different fingerprints")
	}
}

func TestFingerprintEmptySetIsStable(t *testing.T) {
	if Fingerprint(nil) != Fingerprint([]models.ScheduleEntry{}) {
		t.Error("nil and empty schedule sets must hash identically")
	}
}
