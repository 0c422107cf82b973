package kosoku

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"kosoku-tracker/models"
	"kosoku-tracker/utils"
)

const (
	cardSelector       = "div.planList"
	departSelector     = ".departTime"
	arriveSelector     = ".arriveTime"
	seatIndicatorField = `input[name="aki"]`
	planIDField        = `input[name="planCd"]`
)

var (
	// timeRegexp matches H:MM or HH:MM; the first match in an element wins.
	timeRegexp = regexp.MustCompile(`\d{1,2}:\d{2}`)
	// remainRegexp captures the remaining-seat count from button text like 残り3席.
	remainRegexp = regexp.MustCompile(`残り(\d+)席`)
	// priceRegexp captures a comma-grouped yen amount like 12,000円.
	priceRegexp = regexp.MustCompile(`(\d+(?:,\d+)*)円`)
)

// ScheduleParser turns a schedule search results page into schedule entries.
// Cards are parsed independently: a malformed card is logged and skipped,
// never failing the whole page.
type ScheduleParser struct {
	logger *utils.Logger
}

// NewScheduleParser creates a ScheduleParser with the given logger.
func NewScheduleParser(logger *utils.Logger) *ScheduleParser {
	return &ScheduleParser{logger: logger}
}

// Parse extracts every schedule card from the page. The site exposes no
// stable schedule id, so each entry's bus number is its ordinal position on
// the page. A page with no cards yields an empty list.
func (p *ScheduleParser) Parse(htmlText, boardingDate, departureStationID, arrivalStationID string) ([]models.ScheduleEntry, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, fmt.Errorf("%w: schedule html: %v", ErrParse, err)
	}

	var entries []models.ScheduleEntry
	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		entry, err := p.parseCard(i, card, boardingDate, departureStationID, arrivalStationID)
		if err != nil {
			p.logger.Warn("[kosoku] skipping schedule card %d on %s: %v", i+1, boardingDate, err)
			return
		}
		entries = append(entries, *entry)
	})
	return entries, nil
}

func (p *ScheduleParser) parseCard(idx int, card *goquery.Selection, boardingDate, departureStationID, arrivalStationID string) (*models.ScheduleEntry, error) {
	departureTime, err := cardTime(card, departSelector)
	if err != nil {
		return nil, err
	}
	arrivalTime, err := cardTime(card, arriveSelector)
	if err != nil {
		return nil, err
	}

	entry := &models.ScheduleEntry{
		BusNumber:          idx + 1,
		DepartureStationID: departureStationID,
		ArrivalStationID:   arrivalStationID,
		BoardingDate:       boardingDate,
		DepartureTime:      departureTime,
		ArrivalTime:        arrivalTime,
	}

	card.Find("form").Each(func(j int, form *goquery.Selection) {
		// Seat indicator "1" means the plan has open seats; anything else is
		// sold out and the plan is dropped entirely.
		if form.Find(seatIndicatorField).AttrOr("value", "") != "1" {
			return
		}

		plan, err := p.parsePlan(j, form)
		if err != nil {
			p.logger.Warn("[kosoku] skipping fare plan %d on card %d: %v", j+1, idx+1, err)
			return
		}
		entry.AvailablePlans = append(entry.AvailablePlans, *plan)
	})

	return entry, nil
}

func (p *ScheduleParser) parsePlan(idx int, form *goquery.Selection) (*models.FarePlan, error) {
	planID := form.Find(planIDField).AttrOr("value", "")
	if planID == "" {
		return nil, fmt.Errorf("%w: fare plan has no planCd field", ErrParse)
	}

	// Absence of a 残りN席 match is not an error: the plan is available with
	// an unknown seat count.
	var remaining *int
	if m := remainRegexp.FindStringSubmatch(form.Find("button").Text()); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			remaining = &n
		}
	}

	price, display, err := planPrice(form)
	if err != nil {
		return nil, err
	}

	return &models.FarePlan{
		PlanID:         planID,
		PlanIndex:      idx,
		Price:          price,
		Display:        display,
		RemainingSeats: remaining,
	}, nil
}

// planPrice walks up the DOM from the fare-plan form to the nearest ancestor
// whose text contains a yen amount. goquery orders Parents() closest first.
func planPrice(form *goquery.Selection) (int, string, error) {
	var price int
	var display string
	var found bool
	var parseErr error

	form.Parents().EachWithBreak(func(_ int, ancestor *goquery.Selection) bool {
		m := priceRegexp.FindStringSubmatch(ancestor.Text())
		if m == nil {
			return true
		}
		display = m[0]
		n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err != nil {
			parseErr = fmt.Errorf("%w: price %q: %v", ErrParse, m[0], err)
			return false
		}
		price = n
		found = true
		return false
	})

	if parseErr != nil {
		return 0, "", parseErr
	}
	if !found {
		return 0, "", fmt.Errorf("%w: no price found near fare plan form", ErrParse)
	}
	return price, display, nil
}

func cardTime(card *goquery.Selection, selector string) (string, error) {
	sel := card.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: no %s element in schedule card", ErrParse, selector)
	}
	t := timeRegexp.FindString(sel.Text())
	if t == "" {
		return "", fmt.Errorf("%w: no H:MM time in %s text %q", ErrParse, selector, strings.TrimSpace(sel.Text()))
	}
	return t, nil
}
