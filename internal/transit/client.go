package transit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const DefaultBaseUrl = "https://v6.db.transport.rest"

// Products are the product classes understood by the departures endpoint.
var Products = []string{
	"nationalExpress",
	"national",
	"regionalExpress",
	"regional",
	"suburban",
	"bus",
	"ferry",
	"subway",
	"tram",
	"taxi",
}

var ErrUnknownProduct = errors.New("unknown product")

type Client struct {
	BaseUrl  *url.URL
	Duration time.Duration
	http     *http.Client
}

func NewClient(baseUrl string, duration, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseUrl)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid api url %q", baseUrl)
	}

	return &Client{
		BaseUrl:  u,
		Duration: duration,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// ValidateProducts checks that every entry is a known product name.
func ValidateProducts(products []string) error {
	for _, p := range products {
		known := false
		for _, k := range Products {
			if p == k {
				known = true
				break
			}
		}
		if !known {
			return errors.Wrapf(ErrUnknownProduct, "%q", p)
		}
	}
	return nil
}

func (c *Client) Do(r *http.Request, responseBody any) error {
	r.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	if responseBody == nil {
		return nil
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	return errors.Wrap(json.Unmarshal(payload, responseBody), "malformed response")
}

func (c *Client) NewDeparturesRequest(ctx context.Context, spec StationSpec) (*http.Request, error) {
	if err := ValidateProducts(spec.Products); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Add("linesOfStops", "false")
	values.Add("remarks", "false")
	values.Add("pretty", "false")
	values.Add("duration", strconv.Itoa(int(c.Duration/time.Minute)))
	if spec.Via != 0 {
		values.Add("direction", strconv.FormatInt(spec.Via, 10))
	}
	if len(spec.Products) > 0 {
		// a filter enables the listed products and disables all others
		enabled := make(map[string]bool, len(spec.Products))
		for _, p := range spec.Products {
			enabled[p] = true
		}
		for _, p := range Products {
			values.Add(p, strconv.FormatBool(enabled[p]))
		}
	}

	u := c.BaseUrl.JoinPath("stops", strconv.FormatInt(spec.Station, 10), "departures")
	u.RawQuery = values.Encode()

	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

type departuresPayload struct {
	Departures []struct {
		Stop struct {
			Name string `json:"name"`
		} `json:"stop"`
		PlannedWhen string `json:"plannedWhen"`
		Delay       *int   `json:"delay"`
		Direction   string `json:"direction"`
		Cancelled   bool   `json:"cancelled"`
		Line        struct {
			Name string `json:"name"`
		} `json:"line"`
	} `json:"departures"`
	RealtimeDataUpdatedAt int64 `json:"realtimeDataUpdatedAt"`
}

// GetDepartures queries the departures of a single station.
func (c *Client) GetDepartures(ctx context.Context, spec StationSpec) (StationDepartures, error) {
	req, err := c.NewDeparturesRequest(ctx, spec)
	if err != nil {
		return StationDepartures{}, err
	}

	payload := departuresPayload{}
	if err := c.Do(req, &payload); err != nil {
		return StationDepartures{}, err
	}

	s := StationDepartures{
		Name:       strconv.FormatInt(spec.Station, 10),
		Departures: make([]Departure, 0, len(payload.Departures)),
		Updated:    time.Now(),
	}
	if payload.RealtimeDataUpdatedAt > 0 {
		s.Updated = time.Unix(payload.RealtimeDataUpdatedAt, 0)
	}

	for _, dep := range payload.Departures {
		if dep.Stop.Name != "" {
			s.Name = dep.Stop.Name
		}
		if spec.Line != "" && dep.Line.Name != spec.Line {
			continue
		}

		planned, err := time.Parse(time.RFC3339, dep.PlannedWhen)
		if err != nil {
			return StationDepartures{}, errors.Wrap(err, "malformed planned time")
		}

		delay := 0
		if dep.Delay != nil {
			delay = *dep.Delay / 60
		}

		s.Departures = append(s.Departures, Departure{
			Planned:   planned,
			Delay:     delay,
			Line:      dep.Line.Name,
			Direction: dep.Direction,
			Cancelled: dep.Cancelled,
		})
	}

	return s, nil
}

// Fetch queries all stations in order. The first failing station aborts the
// whole cycle; no partial results are returned.
func (c *Client) Fetch(ctx context.Context, stations []StationSpec) ([]StationDepartures, error) {
	result := make([]StationDepartures, 0, len(stations))
	for _, spec := range stations {
		start := time.Now()
		s, err := c.GetDepartures(ctx, spec)
		if err != nil {
			return nil, &FetchError{Station: spec.Station, Err: err}
		}
		log.Debugf("Fetched %d departures for %s (%s) in %v", len(s.Departures), s.Name, spec, time.Since(start))
		result = append(result, s)
	}
	return result, nil
}
