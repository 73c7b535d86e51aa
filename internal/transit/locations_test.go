package transit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const locationsPayload = `[
  {"type": "stop", "id": "8000261", "name": "München Hbf", "location": {"type": "location", "latitude": 48.14, "longitude": 11.56}},
  {"type": "stop", "id": "8004128", "name": "München-Pasing"},
  {"type": "location", "name": "München, Marienplatz"},
  {"type": "stop", "id": "8005676", "name": "Starnberg"}
]`

func TestFindStations(t *testing.T) {
	requests := make(chan *url.URL, 1)
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.URL
		w.Header().Add("Content-Type", "application/json")
		w.Write([]byte(locationsPayload))
	}))
	defer s.Close()

	c, err := NewClient(s.URL, time.Hour, time.Second)
	require.NoError(t, err)

	found, err := c.FindStations(context.Background(), "München", 0)
	require.NoError(t, err)
	assert.Equal(t, []Location{
		{ID: "8000261", Name: "München Hbf", Type: "stop"},
		{ID: "8004128", Name: "München-Pasing", Type: "stop"},
		{ID: "8005676", Name: "Starnberg", Type: "stop"},
	}, found, "entries without an id are skipped")

	u := <-requests
	assert.Equal(t, "/locations", u.Path)
	assert.Equal(t, "München", u.Query().Get("query"))
	assert.Equal(t, "10", u.Query().Get("results"))
	assert.Equal(t, "false", u.Query().Get("addresses"))
}

func TestFindStations_Limit(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(locationsPayload))
	}))
	defer s.Close()

	c, err := NewClient(s.URL, time.Hour, time.Second)
	require.NoError(t, err)

	found, err := c.FindStations(context.Background(), "München", 2)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestFindStations_Errors(t *testing.T) {
	tt := []struct {
		name    string
		query   string
		status  int
		payload string
	}{
		{"empty query", "", http.StatusOK, "[]"},
		{"server error", "Tutzing", http.StatusBadGateway, ""},
		{"malformed", "Tutzing", http.StatusOK, `{"error": true`},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.payload))
			}))
			defer s.Close()

			c, err := NewClient(s.URL, time.Hour, time.Second)
			require.NoError(t, err)

			_, err = c.FindStations(context.Background(), tc.query, 10)
			assert.Error(t, err)
		})
	}
}
