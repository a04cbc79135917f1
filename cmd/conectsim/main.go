// conectsim - spectrograph instrument simulator
//
// This is the main entry point for conectsim. It builds an instrument from
// a layout and catalogue file, then either takes exposures and exits, or
// runs as a daemon serving the HTTP/WebSocket console, MQTT commands and
// telemetry until interrupted.
//
// Usage:
//
//	conectsim -config configs/config.yaml -profile arc -exposure 10 -n 3
//	conectsim -dot - | dot -Tsvg > megara.svg
//	conectsim -serve
//	conectsim -migrate status
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/conectsim/migrations"

	"github.com/nerrad567/conectsim/internal/api"
	"github.com/nerrad567/conectsim/internal/control"
	"github.com/nerrad567/conectsim/internal/element"
	"github.com/nerrad567/conectsim/internal/infrastructure/config"
	"github.com/nerrad567/conectsim/internal/infrastructure/database"
	"github.com/nerrad567/conectsim/internal/infrastructure/influxdb"
	"github.com/nerrad567/conectsim/internal/infrastructure/logging"
	"github.com/nerrad567/conectsim/internal/infrastructure/mqtt"
	"github.com/nerrad567/conectsim/internal/instrument"
	"github.com/nerrad567/conectsim/internal/monitor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	// defaultConfigPath is used when neither -config nor CONECTSIM_CONFIG is set.
	defaultConfigPath = "configs/config.yaml"

	// historyRetention is how long device state history is kept in daemon mode.
	historyRetention = 30 * 24 * time.Hour

	// startupTimeout bounds the pruning and health checks at daemon start.
	startupTimeout = 10 * time.Second
)

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	configPath string
	profile    string
	exptime    float64
	count      int
	serve      bool
	dot        string
	migrate    string
}

// parseFlags parses the command line.
func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("conectsim", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "config file (default $CONECTSIM_CONFIG or "+defaultConfigPath+")")
	fs.StringVar(&opts.profile, "profile", "", "observing profile to apply (overrides instrument.profile)")
	fs.Float64Var(&opts.exptime, "exposure", -1, "take images of this many seconds")
	fs.IntVar(&opts.count, "n", 1, "number of images to take with -exposure")
	fs.BoolVar(&opts.serve, "serve", false, "run the API, MQTT and telemetry services until interrupted")
	fs.StringVar(&opts.dot, "dot", "", "write the light path as Graphviz dot to this file (- for stdout)")
	fs.StringVar(&opts.migrate, "migrate", "", "print the schema status (status) or roll back the latest migration (down), then exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	switch opts.migrate {
	case "", "status", "down":
	default:
		return opts, fmt.Errorf("-migrate must be status or down, got %q", opts.migrate)
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//   - stdout: Destination of the dot graph and the exposure summary
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, configPath, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting conectsim",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	// Build the instrument
	desc, err := config.LoadInstrument(cfg.Instrument.File)
	if err != nil {
		return fmt.Errorf("loading instrument: %w", err)
	}
	inst, err := instrument.Build(element.NewSequence(), desc, log.Component("instrument"))
	if err != nil {
		return fmt.Errorf("building instrument: %w", err)
	}
	log.Info("instrument built", "instrument", inst.Name(), "file", cfg.Instrument.File)

	// Open database
	db, err := database.Open(ctx, database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if opts.migrate != "" {
		return runMigrate(ctx, db, opts.migrate, stdout)
	}
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", db.Path())

	history := monitor.NewSQLiteStateHistoryRepository(db.DB)
	consoleOpts := []control.Option{
		control.WithRepository(control.NewSQLiteRepository(db.DB)),
		control.WithProfiles(desc),
		control.WithLogger(log.Component("console")),
	}
	bridgeOpts := []monitor.Option{
		monitor.WithHistory(history),
		monitor.WithLogger(log.Component("monitor")),
	}

	// Outbound services only run in daemon mode
	var mqttClient *mqtt.Client
	var influxClient *influxdb.Client
	var hub *api.Hub
	if opts.serve {
		if cfg.MQTT.Enabled {
			mqttClient, err = connectMQTT(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				log.Info("disconnecting from MQTT")
				if closeErr := mqttClient.Close(); closeErr != nil {
					log.Error("error closing MQTT", "error", closeErr)
				}
			}()
			consoleOpts = append(consoleOpts, control.WithPublisher(mqttClient))
			bridgeOpts = append(bridgeOpts, monitor.WithPublisher(mqttClient))
		} else {
			log.Info("MQTT disabled")
		}

		if cfg.InfluxDB.Enabled {
			influxClient, err = connectInfluxDB(cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				log.Info("closing InfluxDB connection")
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			consoleOpts = append(consoleOpts, control.WithMetrics(influxClient))
			bridgeOpts = append(bridgeOpts, monitor.WithMetrics(influxClient))
		} else {
			log.Info("InfluxDB disabled")
		}

		if cfg.API.Enabled {
			hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
			bridgeOpts = append(bridgeOpts, monitor.WithBroadcaster(hub))
		}
	}

	console := control.NewConsole(inst, control.NewSystem(cfg.Control, log.Component("control")), consoleOpts...)

	bridge := monitor.NewBridge(bridgeOpts...)
	log.Info("watching devices", "devices", bridge.Watch(inst))
	defer bridge.Close()

	profile := opts.profile
	if profile == "" {
		profile = cfg.Instrument.Profile
	}
	if profile != "" {
		if _, err := console.ApplyProfile(profile); err != nil {
			return fmt.Errorf("applying profile: %w", err)
		}
	}

	if opts.dot != "" {
		if err := writeDot(opts.dot, inst, stdout); err != nil {
			return fmt.Errorf("writing dot: %w", err)
		}
	}

	if opts.exptime >= 0 {
		records, err := console.Expose(ctx, opts.exptime, opts.count)
		for _, rec := range records {
			fmt.Fprintf(stdout, "%s\t%gs\t%.6g counts\tsaturated=%d\n", rec.Name, rec.Exptime, rec.Total, rec.Saturated)
		}
		if err != nil {
			return fmt.Errorf("exposing: %w", err)
		}
	}

	if !opts.serve {
		return nil
	}

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if pruned, pruneErr := history.PruneHistory(startCtx, historyRetention); pruneErr != nil {
		log.Warn("pruning state history failed", "error", pruneErr)
	} else if pruned > 0 {
		log.Info("state history pruned", "rows", pruned)
	}

	if mqttClient != nil {
		if subErr := mqttClient.Subscribe(mqtt.Topics{}.InstrumentCommand(), byte(cfg.MQTT.QoS), console.CommandHandler()); subErr != nil {
			return fmt.Errorf("subscribing to commands: %w", subErr)
		}
		log.Info("listening for commands", "topic", mqtt.Topics{}.InstrumentCommand())
	}

	if cfg.API.Enabled {
		srv, err := startAPI(ctx, cfg, log, hub, console, history, db, mqttClient, influxClient)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(startCtx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("conectsim stopped")
	return nil
}

// loadConfig reads the config file. Without an explicit path, a missing
// default file falls back to the built-in configuration.
func loadConfig(explicit string) (*config.Config, string, error) {
	path := explicit
	if path == "" {
		path = getConfigPath()
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigPath {
			cfg, err := config.Default()
			return cfg, "(built-in)", err
		}
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// getConfigPath returns the configuration file path.
// Uses CONECTSIM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CONECTSIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// writeDot renders the instrument to path, or to stdout for "-".
func writeDot(path string, inst *instrument.Instrument, stdout io.Writer) error {
	if path == "-" {
		return instrument.WriteDot(stdout, inst)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := instrument.WriteDot(f, inst); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// connectMQTT connects to the broker and wires connection logging.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB connects to InfluxDB and wires write error logging.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// startAPI creates and starts the HTTP API server. Disabled backends are
// passed as untyped nils so the server reports them as absent.
func startAPI(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	hub *api.Hub,
	console *control.Console,
	history monitor.StateHistoryRepository,
	db *database.DB,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
) (*api.Server, error) {
	hub.SetSnapshot(monitor.EventStateChanged, func() any { return console.ConfigInfo() })
	go hub.Run(ctx)

	deps := api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Console: console,
		History: history,
		DB:      db,
		Hub:     hub,
		Version: version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}

	srv, err := api.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return srv, nil
}

// runMigrate prints the schema status, or rolls back the latest migration
// and prints the status after it.
func runMigrate(ctx context.Context, db *database.DB, action string, stdout io.Writer) error {
	if action == "down" {
		m, err := db.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}
		if m == nil {
			fmt.Fprintln(stdout, "nothing to roll back")
		} else {
			fmt.Fprintf(stdout, "rolled back %s %s\n", m.Version, m.Name)
		}
	}

	states, err := db.SchemaStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading schema status: %w", err)
	}
	for _, st := range states {
		applied := "pending"
		if st.Applied() {
			applied = st.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", st.Version, st.Name, applied)
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
