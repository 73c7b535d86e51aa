package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/depmon/departure-board/internal/board"
	"github.com/depmon/departure-board/internal/control"
	"github.com/depmon/departure-board/internal/hal"
	"github.com/depmon/departure-board/internal/model"
	"github.com/depmon/departure-board/internal/persist"
	"github.com/depmon/departure-board/internal/telemetry"
	"github.com/depmon/departure-board/internal/transit"
	"github.com/depmon/departure-board/internal/view"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	configFile := ""
	rootCmd := &cobra.Command{
		Use:           "depmon",
		Short:         "Departure board for public transport",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cmd.Flags().Lookup("debug").Changed {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newStartCmd(&configFile))
	rootCmd.AddCommand(newBoardsCmd())
	rootCmd.AddCommand(newDeparturesCmd())
	rootCmd.AddCommand(newStationsCmd())
	rootCmd.PersistentFlags().Bool("debug", false, "Turn on debug logging.")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", defaultConfigFile, "Configuration file to use.")

	return rootCmd
}

func newStartCmd(configFile *string) *cobra.Command {
	boardID := ""
	simulate := false
	logFile := ""
	cmd := cobra.Command{
		Use:   "start",
		Short: "Starts the departure board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := readConfig(*configFile)
			if err != nil {
				return err
			}
			if simulate {
				conf.kind = hal.Simulated
			}
			if boardID != "" {
				conf.Board = boardID
			}
			if conf.kind == hal.Simulated {
				if conf.Board == "" {
					conf.Board = "simulator"
				}
				closeLog, err := logToFile(logFile)
				if err != nil {
					return err
				}
				defer closeLog()
			}

			err = startBoard(conf)
			if errors.Is(err, control.ErrQuit) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&boardID, "board", "b", "", "Board to run on, overrides the configuration.")
	cmd.Flags().BoolVarP(&simulate, "simulate", "s", false, "Run the terminal simulator.")
	cmd.Flags().StringVar(&logFile, "log-file", "depmon.log", "Log file used while simulating.")

	return &cmd
}

// logToFile keeps log output away from the terminal while the simulator
// owns it.
func logToFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening log file")
	}
	log.SetOutput(f)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

func startBoard(conf *Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "depmon", buildVersion)
	if err != nil {
		log.WithError(err).Warn("Tracing disabled")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				log.WithError(err).Warn("Unable to flush traces")
			}
		}()
	}

	hw, id, err := hal.Default.Open(conf.Board, conf.HardwareOptions())
	if err != nil {
		return err
	}
	if c, ok := hw.(io.Closer); ok {
		defer c.Close()
	}
	log.Infof("Running on %s (%v)", id, conf.Kind())

	var sel model.Selection = &persist.Memory{}
	if conf.Kind() == hal.Embedded {
		sel = persist.NewFile(conf.SelectionFile)
	}
	m, err := model.New(len(conf.Stations), conf.Rows, sel)
	if err != nil {
		return err
	}

	keys, closeKeys, err := board.OpenKeys(hw, conf.Kind())
	if err != nil {
		return errors.Wrap(err, "opening keys")
	}
	defer closeKeys.Close()

	client, err := transit.NewClient(conf.Api.Url,
		time.Duration(conf.Duration)*time.Minute,
		time.Duration(conf.Api.Timeout)*time.Second,
	)
	if err != nil {
		return err
	}

	replacements, err := conf.Replacements()
	if err != nil {
		return err
	}
	builder := &view.Builder{Footer: conf.Footer, Replacements: replacements}

	loop := control.New(control.Config{
		Stations:       conf.Stations,
		UpdateInterval: time.Duration(conf.UpdateInterval) * time.Second,
		OffTime:        time.Duration(conf.OffTime) * time.Second,
		MaxErrorCount:  conf.ErrorCount,
		ErrorReset:     conf.ErrorReset,
	}, hw, keys, m, client, builder)
	if conf.ShowErrors {
		loop.OnFailure = func(err error) *view.Frame {
			return view.ErrorFrame(err, time.Now())
		}
	}

	err = loop.Run(ctx)
	if err == nil {
		log.Info("Done...")
	}
	return err
}

func newBoardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "Lists the supported boards",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, id := range hal.Default.Boards() {
				if id == hal.Default.Fallback() {
					fmt.Printf("%s (default)\n", id)
					continue
				}
				fmt.Println(id)
			}
		},
	}
}

func newDeparturesCmd() *cobra.Command {
	apiUrl := ""
	duration := 0
	cmd := cobra.Command{
		Use:   "departures <station-id> [products] [via]",
		Short: "Prints the next departures of a station. Products are comma separated, * selects all.",
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := parseStationArgs(args)
			if err != nil {
				return err
			}
			client, err := transit.NewClient(apiUrl, time.Duration(duration)*time.Minute, defaultApiTimeout*time.Second)
			if err != nil {
				return err
			}
			s, err := client.GetDepartures(cmd.Context(), spec)
			if err != nil {
				return err
			}
			for _, line := range departureLines(s) {
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&apiUrl, "url", transit.DefaultBaseUrl, "Transit API to query.")
	cmd.Flags().IntVar(&duration, "duration", defaultDuration, "Minutes ahead to list departures for.")

	return &cmd
}

func newStationsCmd() *cobra.Command {
	apiUrl := ""
	results := 0
	cmd := cobra.Command{
		Use:   "stations <search-term>",
		Short: "Searches station ids by name, for use in the stations configuration.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := transit.NewClient(apiUrl, 0, defaultApiTimeout*time.Second)
			if err != nil {
				return err
			}
			found, err := client.FindStations(cmd.Context(), strings.Join(args, " "), results)
			if err != nil {
				return err
			}
			for _, l := range found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", l.ID, l.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&apiUrl, "url", transit.DefaultBaseUrl, "Transit API to query.")
	cmd.Flags().IntVar(&results, "results", transit.DefaultLocationResults, "Maximum number of stations to list.")

	return &cmd
}

func parseStationArgs(args []string) (transit.StationSpec, error) {
	spec := transit.StationSpec{}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return spec, fmt.Errorf("invalid station id %q", args[0])
	}
	spec.Station = id

	if len(args) > 1 && args[1] != "*" && args[1] != "" {
		spec.Products = strings.Split(args[1], ",")
		if err := transit.ValidateProducts(spec.Products); err != nil {
			return spec, err
		}
	}
	if len(args) > 2 {
		via, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || via <= 0 {
			return spec, fmt.Errorf("invalid via station %q", args[2])
		}
		spec.Via = via
	}
	return spec, nil
}

// departureLines lays out all departures of a station as one page.
func departureLines(s transit.StationDepartures) []string {
	m, err := model.New(1, max(1, len(s.Departures)), &persist.Memory{})
	if err != nil {
		return nil
	}
	m.ReplaceDepartures([]transit.StationDepartures{s})

	f := (&view.Builder{}).Build(m)
	lines := []string{f.Title}
	lines = append(lines, view.RowText(f.Rows)...)
	return append(lines, f.Footer)
}
