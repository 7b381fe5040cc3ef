package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"net/url"
	"os"
	"reflect"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/hagall-spatial/featureflag"
	spatialhttp "github.com/aukilabs/hagall-spatial/http"
	"github.com/aukilabs/hagall-spatial/models"
	"github.com/aukilabs/hagall-spatial/quadtree"
	"github.com/aukilabs/hagall-spatial/smoketest"
	hwebsocket "github.com/aukilabs/hagall-spatial/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The server version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "spatial_info",
		Help:        "Spatial index server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SPATIAL_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"SPATIAL_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"SPATIAL_PUBLIC_ENDPOINT"      help:"The public endpoint where this server is reachable."`
	AuthToken          string        `cli:""        env:"SPATIAL_AUTH_TOKEN"           help:"The token clients must present. Empty accepts every client."`
	LogLevel           string        `cli:""        env:"SPATIAL_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SPATIAL_LOG_INDENT"           help:"Indent logs."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"SPATIAL_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SPATIAL_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	SpacesFile         string        `cli:""        env:"SPATIAL_SPACES_FILE"          help:"TOML file describing the persistent spaces created at startup."`
	DefaultMaxItems    int           `cli:""        env:"SPATIAL_DEFAULT_MAX_ITEMS"    help:"The number of items a quadtree node holds before splitting."`
	DefaultMaxDepth    int           `cli:""        env:"SPATIAL_DEFAULT_MAX_DEPTH"    help:"The depth at which quadtree nodes stop splitting."`
	MaxSpaces          int           `cli:""        env:"SPATIAL_MAX_SPACES"           help:"The maximum number of hosted spaces. 0 means unlimited."`
	Events             eventsConfig  `cli:",hidden" env:"-"                            help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SPATIAL_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                            help:"Show version."`
	Help               bool          `cli:""        env:"-"                            help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SPATIAL_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Empty disables event pushing."`
	FlushInterval time.Duration `cli:",hidden" env:"SPATIAL_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SPATIAL_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SPATIAL_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4100",
		AdminAddr:          ":18290",
		PublicEndpoint:     "http://localhost:4100",
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		DefaultMaxItems:    quadtree.DefaultMaxItems,
		DefaultMaxDepth:    quadtree.DefaultMaxDepth,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the spatial index server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "hagall-spatial",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	featureFlags := featureflag.New(conf.FeatureFlags)

	spaces := models.SpaceStore{
		MaxSpaces: conf.MaxSpaces,
		DefaultOptions: quadtree.Options{
			MaxItems: conf.DefaultMaxItems,
			MaxDepth: uint8(conf.DefaultMaxDepth),
		},
	}

	if conf.SpacesFile != "" {
		if err := loadSpaces(&spaces, conf.SpacesFile); err != nil {
			logs.Fatal(err)
		}
	}

	var ready atomic.Bool
	readinessCheck := ready.Load

	var service http.ServeMux
	service.Handle("/health", spatialhttp.HandleWithCORS(http.HandlerFunc(spatialhttp.HandleHealthCheck)))
	service.Handle("/ready", spatialhttp.HandleWithCORS(spatialhttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", spatialhttp.HandleWithCORS(spatialhttp.HandleVersion(version)))

	featureFlags.IfNotSet(featureflag.FlagDisableSpacesEndpoint, func() {
		service.Handle("/spaces", spatialhttp.HandleWithCORS(
			spatialhttp.VerifyAuthTokenHandler(conf.AuthToken, spatialhttp.HandleSpaces(&spaces))))
		service.Handle("/spaces/", spatialhttp.HandleWithCORS(
			spatialhttp.VerifyAuthTokenHandler(conf.AuthToken, spatialhttp.HandleSpace(&spaces))))
	})

	service.HandleFunc("/smoke-test", spatialhttp.VerifyAuthTokenHandler(conf.AuthToken, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Endpoint:   conf.PublicEndpoint,
		SendResult: smoketest.LogResult,
	})))

	service.Handle("/", spatialhttp.HandleWithCORS(websocket.Server{
		Handshake: spatialhttp.VerifyAuthToken(conf.AuthToken),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h hwebsocket.Handler = &hwebsocket.RealtimeHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Spaces:            &spaces,
				FeatureFlags:      featureFlags,
			}
			h = hwebsocket.HandlerWithLogs(h, conf.LogSummaryInterval)
			h = hwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			hwebsocket.Handle(ctx, conn, h)
		},
	}))

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", spatialhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", spatialhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("space_count", spaces.Count()).
		WithTag("feature_flags", featureFlags.Flags()).
		Info("starting spatial index server")

	ready.Store(true)

	spatialhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			spatialhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func loadSpaces(spaces *models.SpaceStore, filename string) error {
	templates, err := models.LoadSpaceTemplates(filename)
	if err != nil {
		return err
	}

	created, err := spaces.NewFromTemplates(templates)
	if err != nil {
		return err
	}

	for _, s := range created {
		logs.WithTag("space_id", s.ID).
			WithTag("space_uuid", s.SpaceUUID).
			WithTag("name", s.Name).
			WithTag("bounds", s.Bounds().String()).
			Info("persistent space created")
	}
	return nil
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.DefaultMaxItems <= 0 {
		return errors.New("default max items must be positive").
			WithTag("default_max_items", conf.DefaultMaxItems)
	}

	if conf.DefaultMaxDepth <= 0 || conf.DefaultMaxDepth > 255 {
		return errors.New("default max depth must be between 1 and 255").
			WithTag("default_max_depth", conf.DefaultMaxDepth)
	}

	if conf.MaxSpaces < 0 {
		return errors.New("max spaces cannot be negative").
			WithTag("max_spaces", conf.MaxSpaces)
	}
	return nil
}
