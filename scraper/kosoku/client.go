package kosoku

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kosoku-tracker/models"
	"kosoku-tracker/utils"
)

const (
	pulldownPath = "/ajaxPulldown"
	planListPath = "/reservation/rsvPlanList"

	modeLineFull      = "line:full"
	modeStationGetOn  = "station_geton"
	modeStationGetOff = "station_getoff"

	requestTimeout = 30 * time.Second

	catalogRetryAttempts = 3
	catalogRetryDelay    = 1 * time.Second
)

// Client talks to the reservation site. The site keeps session state in
// cookies, so one Client owns one cookie jar and should be shared across
// requests for the same tracking process.
type Client struct {
	base     string
	http     *http.Client
	logger   *utils.Logger
	retry    *utils.RetryConfig
	schedule *ScheduleParser
}

// NewClient creates a Client for the given site base URL.
func NewClient(baseURL string, logger *utils.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("kosoku: cookie jar: %w", err)
	}

	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: requestTimeout,
		},
		logger: logger,
		retry: &utils.RetryConfig{
			MaxAttempts: catalogRetryAttempts,
			BaseDelay:   catalogRetryDelay,
			Logger:      logger,
			ShouldRetry: func(err error) bool {
				return errors.Is(err, ErrServiceUnavailable)
			},
		},
		schedule: NewScheduleParser(logger),
	}, nil
}

// Routes fetches the route catalog for an area.
func (c *Client) Routes(ctx context.Context, areaID string) ([]models.RouteDescriptor, error) {
	entries, err := c.fetchCatalog(ctx, url.Values{
		"mode": {modeLineFull},
		"id":   {areaID},
	})
	if err != nil {
		return nil, err
	}

	routes := make([]models.RouteDescriptor, 0, len(entries))
	for _, e := range entries {
		routes = append(routes, models.RouteDescriptor{
			ID:               e.ID,
			Name:             e.Name,
			SwitchChangeable: e.SwitchChangeable,
		})
	}
	return routes, nil
}

// DepartureStations fetches the boarding-stop catalog for a route.
func (c *Client) DepartureStations(ctx context.Context, routeID string) ([]models.StationDescriptor, error) {
	return c.fetchStations(ctx, url.Values{
		"mode": {modeStationGetOn},
		"id":   {routeID},
	})
}

// ArrivalStations fetches the alighting-stop catalog for a route, given the
// already chosen boarding stop.
func (c *Client) ArrivalStations(ctx context.Context, routeID, departureStationID string) ([]models.StationDescriptor, error) {
	return c.fetchStations(ctx, url.Values{
		"mode":      {modeStationGetOff},
		"id":        {routeID},
		"stationcd": {departureStationID},
	})
}

func (c *Client) fetchStations(ctx context.Context, form url.Values) ([]models.StationDescriptor, error) {
	entries, err := c.fetchCatalog(ctx, form)
	if err != nil {
		return nil, err
	}

	stations := make([]models.StationDescriptor, 0, len(entries))
	for _, e := range entries {
		stations = append(stations, models.StationDescriptor{ID: e.ID, Name: e.Name})
	}
	return stations, nil
}

// fetchCatalog POSTs a pulldown lookup and parses the XML response. Only
// this path retries, and only on ErrServiceUnavailable.
func (c *Client) fetchCatalog(ctx context.Context, form url.Values) ([]models.CatalogEntry, error) {
	var raw string
	err := c.retry.Do("catalog "+form.Get("mode"), func() error {
		var err error
		raw, err = c.postForm(ctx, pulldownPath, form)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ParseCatalog(raw)
}

// Schedules runs a schedule search for one boarding date and parses the
// resulting HTML into schedule entries.
func (c *Client) Schedules(ctx context.Context, q *models.AvailabilityQuery, boardingDate string) ([]models.ScheduleEntry, error) {
	params := url.Values{
		"mode":         {"search"},
		"route":        {q.AreaID},
		"lineId":       {q.RouteID},
		"onStationCd":  {q.DepartureStationID},
		"offStationCd": {q.ArrivalStationID},
		"bordingDate":  {boardingDate},
		"danseiNum":    {strconv.Itoa(q.Passengers.Males())},
		"zyoseiNum":    {strconv.Itoa(q.Passengers.Females())},

		"otonaDanseiNum":       {strconv.Itoa(q.Passengers.AdultMale)},
		"otonaZyoseiNum":       {strconv.Itoa(q.Passengers.AdultFemale)},
		"kodomoDanseiNum":      {strconv.Itoa(q.Passengers.ChildMale)},
		"kodomoZyoseiNum":      {strconv.Itoa(q.Passengers.ChildFemale)},
		"handiOtonaDanseiNum":  {strconv.Itoa(q.Passengers.HandicappedAdultMale)},
		"handiOtonaZyoseiNum":  {strconv.Itoa(q.Passengers.HandicappedAdultFemale)},
		"handiKodomoDanseiNum": {strconv.Itoa(q.Passengers.HandicappedChildMale)},
		"handiKodomoZyoseiNum": {strconv.Itoa(q.Passengers.HandicappedChildFemale)},
	}

	raw, err := c.getPage(ctx, planListPath, params)
	if err != nil {
		return nil, err
	}
	return c.schedule.Parse(raw, boardingDate, q.DepartureStationID, q.ArrivalStationID)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (string, error) {
	reqURL := c.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("kosoku: build request %s: %w", reqURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req)
}

func (c *Client) getPage(ctx context.Context, path string, params url.Values) (string, error) {
	reqURL := c.base + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("kosoku: build request %s: %w", reqURL, err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (string, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("kosoku: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return "", fmt.Errorf("%w: %s", ErrServiceUnavailable, req.URL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &InvalidResponseError{Status: resp.StatusCode, URL: req.URL.String()}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("kosoku: read response from %s: %w", req.URL, err)
	}
	return string(body), nil
}
