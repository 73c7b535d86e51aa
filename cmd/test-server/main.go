package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"text/template"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

// Start a test HTTP server that can be used as a mock for the transit API

var (
	app       = kingpin.New("test-server", "Mock transit API for the departure board")
	addr      = app.Flag("addr", "Address to listen on.").Default(":9090").String()
	count     = app.Flag("count", "Departures returned per request.").Default("12").Int()
	failEvery = app.Flag("fail-every", "Answer every n-th request with an error, 0 never fails.").Default("0").Int()
	debug     = app.Flag("debug", "Turn on debug logging.").Bool()
)

var departuresTemplate = `{
  "departures": [
    {{- range $i, $d := .Departures }}{{ if $i }},{{ end }}
    {
      "tripId": "1|{{ $d.Trip }}",
      "stop": {"type": "stop", "id": "{{ $.Station }}", "name": "Teststation {{ $.Station }}"},
      "plannedWhen": "{{ $d.Planned }}",
      "delay": {{ $d.Delay }},
      "direction": "{{ $d.Direction }}",
      "line": {"type": "line", "name": "{{ $d.Line }}"}
      {{- if $d.Cancelled }},
      "cancelled": true{{ end }}
    }
    {{- end }}
  ],
  "realtimeDataUpdatedAt": {{ .Updated }}
}
`

var (
	lines      = []string{"S 6", "S 8", "RB 66", "RE 6", "Bus 961"}
	directions = []string{"München Ost", "Tutzing", "Kochel", "Garmisch-Partenkirchen", "Herrsching"}
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	tmpl := template.Must(template.New("departures").Parse(departuresTemplate))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stops/{id}/departures", departuresHandler(tmpl, *count, *failEvery))
	server := http.Server{Addr: *addr, Handler: mux}
	log.Infof("Starting transit test server on %v", server.Addr)

	go func() {
		<-signalChan
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

type departureData struct {
	Trip      int
	Planned   string
	Delay     string
	Line      string
	Direction string
	Cancelled bool
}

type stationData struct {
	Station    int64
	Updated    int64
	Departures []departureData
}

func departuresHandler(tmpl *template.Template, count, failEvery int) func(w http.ResponseWriter, req *http.Request) {
	requests := 0
	l := sync.Mutex{}
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	return func(w http.ResponseWriter, req *http.Request) {
		station, err := strconv.ParseInt(req.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid station", http.StatusBadRequest)
			return
		}

		l.Lock()
		defer l.Unlock()
		requests++
		if failEvery > 0 && requests%failEvery == 0 {
			log.Infof("Failing request %d for station %d", requests, station)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}

		now := time.Now()
		s := stationData{Station: station, Updated: now.Unix()}
		planned := now.Truncate(time.Minute)
		for i := 0; i < count; i++ {
			planned = planned.Add(time.Duration(2+rnd.Intn(8)) * time.Minute)
			d := departureData{
				Trip:      i,
				Planned:   planned.Format(time.RFC3339),
				Delay:     "null",
				Line:      lines[rnd.Intn(len(lines))],
				Direction: directions[rnd.Intn(len(directions))],
				Cancelled: rnd.Intn(15) == 0,
			}
			if !d.Cancelled && rnd.Intn(3) == 0 {
				d.Delay = fmt.Sprint(60 * (rnd.Intn(12) - 1))
			}
			s.Departures = append(s.Departures, d)
		}
		log.Debugf("Serving %d departures for station %d", len(s.Departures), station)

		w.Header().Set("Content-Type", "application/json")
		tmpl.Execute(w, s)
	}
}
