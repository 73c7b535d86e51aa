package transit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

const DefaultLocationResults = 10

// Location is a stop found by a name search.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (c *Client) NewLocationsRequest(ctx context.Context, query string, results int) (*http.Request, error) {
	if query == "" {
		return nil, errors.New("empty search term")
	}
	if results <= 0 {
		results = DefaultLocationResults
	}

	values := url.Values{}
	values.Add("query", query)
	values.Add("results", strconv.Itoa(results))
	values.Add("stops", "true")
	values.Add("addresses", "false")
	values.Add("poi", "false")
	values.Add("pretty", "false")

	u := c.BaseUrl.JoinPath("locations")
	u.RawQuery = values.Encode()

	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// FindStations searches stops by name. Entries without an id cannot be
// configured and are skipped.
func (c *Client) FindStations(ctx context.Context, query string, results int) ([]Location, error) {
	if results <= 0 {
		results = DefaultLocationResults
	}
	req, err := c.NewLocationsRequest(ctx, query, results)
	if err != nil {
		return nil, err
	}

	var payload []Location
	if err := c.Do(req, &payload); err != nil {
		return nil, errors.Wrapf(err, "searching stations for %q", query)
	}

	found := make([]Location, 0, len(payload))
	for _, l := range payload {
		if l.ID == "" {
			continue
		}
		found = append(found, l)
	}
	if len(found) > results {
		found = found[:results]
	}
	return found, nil
}
