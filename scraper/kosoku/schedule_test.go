package kosoku

import (
	"testing"

	"kosoku-tracker/utils"
)

const singleCardPage = `<html><body>
<div class="planList">
	<div class="businfo">
		<span class="departTime">6:45発</span>
		<span class="arriveTime">8:30着</span>
	</div>
	<div class="priceArea">
		<p class="price">12,000円</p>
		<form action="/reservation/rsvConfirm" method="post">
			<input type="hidden" name="aki" value="1">
			<input type="hidden" name="planCd" value="PLN001">
			<button type="submit">残り3席</button>
		</form>
	</div>
</div>
</body></html>`

const soldOutAndAvailablePage = `<html><body>
<div class="planList">
	<span class="departTime">9:00発</span>
	<span class="arriveTime">12:15着</span>
	<div class="priceArea">
		<p class="price">5,400円</p>
		<form>
			<input type="hidden" name="aki" value="2">
			<input type="hidden" name="planCd" value="PLN010">
			<button type="submit">満席</button>
		</form>
	</div>
</div>
<div class="planList">
	<span class="departTime">13:30発</span>
	<span class="arriveTime">16:45着</span>
	<div class="priceArea">
		<p class="price">5,400円</p>
		<form>
			<input type="hidden" name="aki" value="1">
			<input type="hidden" name="planCd" value="PLN011">
			<button type="submit">満席間近</button>
		</form>
	</div>
</div>
</body></html>`

func testParser() *ScheduleParser {
	return NewScheduleParser(utils.NewLogger())
}

func TestParseSingleCard(t *testing.T) {
	entries, err := testParser().Parse(singleCardPage, "20251029", "S01", "S09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	e := entries[0]
	if e.BusNumber != 1 {
		t.Errorf("bus number: got %d, want 1", e.BusNumber)
	}
	if e.DepartureTime != "6:45" {
		t.Errorf("departure time: got %q, want 6:45", e.DepartureTime)
	}
	if e.ArrivalTime != "8:30" {
		t.Errorf("arrival time: got %q, want 8:30", e.ArrivalTime)
	}
	if e.BoardingDate != "20251029" {
		t.Errorf("boarding date: got %q, want 20251029", e.BoardingDate)
	}
	if len(e.AvailablePlans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(e.AvailablePlans))
	}

	p := e.AvailablePlans[0]
	if p.PlanID != "PLN001" {
		t.Errorf("plan id: got %q, want PLN001", p.PlanID)
	}
	if p.Price != 12000 {
		t.Errorf("price: got %d, want 12000", p.Price)
	}
	if p.Display != "12,000円" {
		t.Errorf("display: got %q, want 12,000円", p.Display)
	}
	if p.RemainingSeats == nil || *p.RemainingSeats != 3 {
		t.Errorf("remaining seats: got %v, want 3", p.RemainingSeats)
	}
}

func TestParseDropsSoldOutPlans(t *testing.T) {
	entries, err := testParser().Parse(soldOutAndAvailablePage, "20251029", "S01", "S09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Seat indicator 2 means sold out: the plan vanishes but the schedule
	// itself is still parsed.
	if len(entries[0].AvailablePlans) != 0 {
		t.Errorf("sold-out card: expected 0 plans, got %d", len(entries[0].AvailablePlans))
	}
	if entries[0].HasSeats() {
		t.Error("sold-out card must not report seats")
	}

	if len(entries[1].AvailablePlans) != 1 {
		t.Fatalf("available card: expected 1 plan, got %d", len(entries[1].AvailablePlans))
	}
	if !entries[1].HasSeats() {
		t.Error("available card must report seats")
	}
}

func TestParseUnknownSeatCountIsNotAnError(t *testing.T) {
	entries, err := testParser().Parse(soldOutAndAvailablePage, "20251029", "S01", "S09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The available plan's button says 満席間近, which has no 残りN席 match:
	// available with unknown count.
	p := entries[1].AvailablePlans[0]
	if p.RemainingSeats != nil {
		t.Errorf("expected nil remaining seats, got %d", *p.RemainingSeats)
	}
}

func TestParseSkipsMalformedCard(t *testing.T) {
	page := `<html><body>
<div class="planList">
	<span class="arriveTime">8:30着</span>
</div>
<div class="planList">
	<span class="departTime">10:00発</span>
	<span class="arriveTime">12:30着</span>
	<div class="priceArea">
		<p class="price">3,200円</p>
		<form>
			<input type="hidden" name="aki" value="1">
			<input type="hidden" name="planCd" value="PLN020">
			<button type="submit">残り1席</button>
		</form>
	</div>
</div>
</body></html>`

	entries, err := testParser().Parse(page, "20251101", "S01", "S09")
	if err != nil {
		t.Fatalf("one bad card must not fail the page: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].DepartureTime != "10:00" {
		t.Errorf("surviving card departure: got %q, want 10:00", entries[0].DepartureTime)
	}
}

func TestParseDropsPlanWithoutPrice(t *testing.T) {
	page := `<html><body>
<div class="planList">
	<span class="departTime">7:15発</span>
	<span class="arriveTime">9:00着</span>
	<form>
		<input type="hidden" name="aki" value="1">
		<input type="hidden" name="planCd" value="PLN030">
		<button type="submit">残り2席</button>
	</form>
</div>
</body></html>`

	entries, err := testParser().Parse(page, "20251101", "S01", "S09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if len(entries[0].AvailablePlans) != 0 {
		t.Errorf("plan without a locatable price must be dropped, got %d plans", len(entries[0].AvailablePlans))
	}
}

func TestParseEmptyPage(t *testing.T) {
	entries, err := testParser().Parse("<html><body><p>検索結果がありません</p></body></html>", "20251101", "S01", "S09")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
