package transit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"text/template"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var departuresTemplate = `{
  "departures": [
    {{- range $i, $d := .Departures }}{{ if $i }},{{ end }}
    {
      "tripId": "1|{{ $i }}",
      "stop": {"type": "stop", "id": "{{ $.Station }}", "name": "{{ $.Name }}"},
      "when": null,
      "plannedWhen": "{{ $d.Planned }}",
      "delay": {{ $d.Delay }},
      "platform": "2",
      "direction": "{{ $d.Direction }}",
      "line": {"type": "line", "name": "{{ $d.Line }}", "product": "suburban"}
      {{- if $d.Cancelled }},
      "cancelled": true{{ end }}
    }
    {{- end }}
  ],
  "realtimeDataUpdatedAt": {{ .Updated }}
}`

type departureData struct {
	Planned   string
	Delay     string
	Line      string
	Direction string
	Cancelled bool
}

type stationData struct {
	Station    int64
	Name       string
	Updated    int64
	Departures []departureData
}

func newStationServer(t *testing.T, stations map[string]stationData, requests chan<- *url.URL) *httptest.Server {
	tmpl, err := template.New("departures").Parse(departuresTemplate)
	require.NoError(t, err)

	handler := func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests <- r.URL
		}
		data, ok := stations[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Add("Content-Type", "application/json")
		require.NoError(t, tmpl.Execute(w, data))
	}
	return httptest.NewServer(http.HandlerFunc(handler))
}

var starnberg = stationData{
	Station: 8005676,
	Name:    "Starnberg",
	Updated: 1700000000,
	Departures: []departureData{
		{Planned: "2023-11-14T23:13:00+01:00", Delay: "null", Line: "S 6", Direction: "München Ost"},
		{Planned: "2023-11-14T23:33:00+01:00", Delay: "150", Line: "S 6", Direction: "Zorneding"},
		{Planned: "2023-11-14T23:40:00+01:00", Delay: "-60", Line: "RB 66", Direction: "München Hbf", Cancelled: true},
	},
}

func TestGetDepartures(t *testing.T) {
	setDebug()

	s := newStationServer(t, map[string]stationData{"/stops/8005676/departures": starnberg}, nil)
	defer s.Close()

	c, err := NewClient(s.URL, 120*time.Minute, time.Second)
	require.NoError(t, err)

	deps, err := c.GetDepartures(context.Background(), StationSpec{Station: 8005676})
	require.NoError(t, err)

	assert.Equal(t, "Starnberg", deps.Name)
	assert.Equal(t, time.Unix(1700000000, 0), deps.Updated)
	require.Len(t, deps.Departures, 3)

	first := deps.Departures[0]
	hour, minute, offset := first.Clock()
	assert.Equal(t, 23, hour)
	assert.Equal(t, 13, minute)
	assert.Equal(t, 3600, offset)
	assert.Equal(t, 0, first.Delay)
	assert.Equal(t, "S 6", first.Line)
	assert.Equal(t, "München Ost", first.Direction)
	assert.False(t, first.Cancelled)

	assert.Equal(t, 2, deps.Departures[1].Delay, "delay is truncated to whole minutes")
	assert.Equal(t, -1, deps.Departures[2].Delay)
	assert.True(t, deps.Departures[2].Cancelled)
}

func TestGetDepartures_LineFilter(t *testing.T) {
	s := newStationServer(t, map[string]stationData{"/stops/8005676/departures": starnberg}, nil)
	defer s.Close()

	c, err := NewClient(s.URL, 120*time.Minute, time.Second)
	require.NoError(t, err)

	deps, err := c.GetDepartures(context.Background(), StationSpec{Station: 8005676, Line: "RB 66"})
	require.NoError(t, err)
	require.Len(t, deps.Departures, 1)
	assert.Equal(t, "München Hbf", deps.Departures[0].Direction)
	assert.Equal(t, "Starnberg", deps.Name, "station name comes from filtered records too")
}

func TestGetDepartures_EmptyUsesStationId(t *testing.T) {
	empty := stationData{Station: 42, Updated: 1700000000}
	s := newStationServer(t, map[string]stationData{"/stops/42/departures": empty}, nil)
	defer s.Close()

	c, err := NewClient(s.URL, time.Hour, time.Second)
	require.NoError(t, err)

	deps, err := c.GetDepartures(context.Background(), StationSpec{Station: 42})
	require.NoError(t, err)
	assert.Equal(t, "42", deps.Name)
	assert.Empty(t, deps.Departures)
}

func TestDeparturesRequest(t *testing.T) {
	tt := []struct {
		name  string
		spec  StationSpec
		query map[string]string
		unset []string
	}{
		{
			"plain",
			StationSpec{Station: 8005676},
			map[string]string{"duration": "120", "linesOfStops": "false", "remarks": "false", "pretty": "false"},
			[]string{"direction", "bus", "suburban"},
		},
		{
			"via",
			StationSpec{Station: 8005676, Via: 8004158},
			map[string]string{"direction": "8004158"},
			[]string{"suburban"},
		},
		{
			"products",
			StationSpec{Station: 8005676, Products: []string{"suburban", "bus"}},
			map[string]string{"suburban": "true", "bus": "true", "regional": "false", "taxi": "false"},
			[]string{"direction"},
		},
	}

	c, err := NewClient("https://v6.db.transport.rest", 120*time.Minute, time.Second)
	require.NoError(t, err)

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			req, err := c.NewDeparturesRequest(context.Background(), tc.spec)
			require.NoError(t, err)
			assert.Equal(t, "/stops/8005676/departures", req.URL.Path)

			q := req.URL.Query()
			for k, v := range tc.query {
				assert.Equal(t, v, q.Get(k), k)
			}
			for _, k := range tc.unset {
				assert.False(t, q.Has(k), k)
			}
		})
	}
}

func TestDeparturesRequest_UnknownProduct(t *testing.T) {
	c, err := NewClient("https://v6.db.transport.rest", time.Hour, time.Second)
	require.NoError(t, err)

	_, err = c.NewDeparturesRequest(context.Background(), StationSpec{Station: 1, Products: []string{"zeppelin"}})
	assert.True(t, errors.Is(err, ErrUnknownProduct))
}

func TestFetch_InOrder(t *testing.T) {
	pasing := stationData{
		Station: 8004158,
		Name:    "München-Pasing",
		Updated: 1700000100,
		Departures: []departureData{
			{Planned: "2023-11-14T23:20:00+01:00", Delay: "0", Line: "S 6", Direction: "Tutzing"},
		},
	}
	requests := make(chan *url.URL, 10)
	s := newStationServer(t, map[string]stationData{
		"/stops/8005676/departures": starnberg,
		"/stops/8004158/departures": pasing,
	}, requests)
	defer s.Close()

	c, err := NewClient(s.URL, time.Hour, time.Second)
	require.NoError(t, err)

	result, err := c.Fetch(context.Background(), []StationSpec{{Station: 8004158}, {Station: 8005676}})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "München-Pasing", result[0].Name)
	assert.Equal(t, "Starnberg", result[1].Name)

	assert.Equal(t, "/stops/8004158/departures", (<-requests).Path)
	assert.Equal(t, "/stops/8005676/departures", (<-requests).Path)
}

func TestFetch_FailureAbortsCycle(t *testing.T) {
	requests := make(chan *url.URL, 10)
	s := newStationServer(t, map[string]stationData{"/stops/8005676/departures": starnberg}, requests)
	defer s.Close()

	c, err := NewClient(s.URL, time.Hour, time.Second)
	require.NoError(t, err)

	result, err := c.Fetch(context.Background(), []StationSpec{{Station: 1}, {Station: 8005676}})
	assert.Nil(t, result)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, int64(1), fetchErr.Station)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	assert.Len(t, requests, 1, "the remaining stations are not queried")
}

func TestFetch_MalformedPayload(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "application/json")
		w.Write([]byte(`{"departures": [`))
	}))
	defer s.Close()

	c, err := NewClient(s.URL, time.Hour, time.Second)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), []StationSpec{{Station: 1}})
	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer s.Close()
	defer close(release)

	c, err := NewClient(s.URL, time.Hour, 20*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), []StationSpec{{Station: 1}})
	var fetchErr *FetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func setDebug() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetLevel(log.DebugLevel)
}
