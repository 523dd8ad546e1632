package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/cephopod/canvas/featureflag"
	canvashttp "github.com/cephopod/canvas/http"
	"github.com/cephopod/canvas/journal"
	"github.com/cephopod/canvas/smoketest"
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
		Name:        "canvas_info",
		Help:        "Canvas server information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr             string        `cli:""        env:"CANVAS_ADDR"              help:"Listening address for client connections."`
	AdminAddr        string        `cli:""        env:"CANVAS_ADMIN_ADDR"        help:"Admin listening address."`
	LogLevel         string        `cli:""        env:"CANVAS_LOG_LEVEL"         help:"Log level (debug|info|warning|error)."`
	LogIndent        bool          `cli:""        env:"CANVAS_LOG_INDENT"        help:"Indent logs."`
	CanvasWidth      float64       `cli:""        env:"CANVAS_WIDTH"             help:"The width of each board canvas."`
	CanvasHeight     float64       `cli:""        env:"CANVAS_HEIGHT"            help:"The height of each board canvas."`
	IndexCapacity    int           `cli:",hidden" env:"CANVAS_INDEX_CAPACITY"    help:"The number of points a spatial index region holds before it splits."`
	SnapshotDir      string        `cli:""        env:"CANVAS_SNAPSHOT_DIR"      help:"Directory where board snapshots are written. Empty disables snapshots."`
	SnapshotInterval time.Duration `cli:",hidden" env:"CANVAS_SNAPSHOT_INTERVAL" help:"The duration between each board snapshot pass."`
	Events           eventsConfig  `cli:",hidden" env:"-"                        help:"Event pusher configuration."`
	FeatureFlags     []string      `cli:",hidden" env:"CANVAS_FEATURE_FLAGS"     help:"Comma separated feature flags"`
	Version          bool          `cli:""        env:"-"                        help:"Show version."`
	Help             bool          `cli:""        env:"-"                        help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"CANVAS_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed."`
	FlushInterval time.Duration `cli:",hidden" env:"CANVAS_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"CANVAS_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"CANVAS_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:             ":4000",
		AdminAddr:        ":18190",
		LogLevel:         logs.InfoLevel.String(),
		CanvasWidth:      4096,
		CanvasHeight:     4096,
		SnapshotInterval: time.Minute,
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
		Help("Starts a canvas relay server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	transport := metrics.HTTPTransport(http.DefaultTransport)

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     transport,
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "canvas",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	flags := featureflag.New(conf.FeatureFlags)

	entryChan := make(chan journal.Entry, 128)
	boards := boardStore{
		CanvasWidth:   conf.CanvasWidth,
		CanvasHeight:  conf.CanvasHeight,
		IndexCapacity: conf.IndexCapacity,
		EntryChan:     entryChan,
		FeatureFlags:  flags,
	}

	recorder := journal.Recorder{
		SnapshotDir:      conf.SnapshotDir,
		SnapshotInterval: conf.SnapshotInterval,
		EntryChan:        entryChan,
		SnapshotSource:   boards.Snapshot,
	}
	recorder.HandleEntries(ctx)

	if conf.SnapshotDir != "" {
		flags.IfNotSet(featureflag.FlagDisableSnapshots, func() {
			recorder.StartSnapshotting(ctx)
		})
	}

	var service http.ServeMux

	service.Handle("/boards", canvashttp.HandleWithCORS(websocket.Server{
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			boardID := conn.Request().URL.Query().Get("board")
			if boardID == "" {
				boardID = "default"
			}

			boards.Get(boardID).Relay.HandleConn(conn)
		},
	}))

	service.Handle("/snapshot", canvashttp.HandleWithCORS(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			boardID := r.URL.Query().Get("board")
			if boardID == "" {
				boardID = "default"
			}

			snapshot, err := boards.Snapshot(boardID)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Write(snapshot)
		})))

	service.HandleFunc("/smoke-test", smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Width:  conf.CanvasWidth,
		Height: conf.CanvasHeight,
	}))

	service.Handle("/health", canvashttp.HandleWithCORS(http.HandlerFunc(canvashttp.HandleHealthCheck)))
	service.Handle("/version", canvashttp.HandleWithCORS(http.HandlerFunc(canvashttp.HandleVersion(version))))
	service.Handle("/ready", canvashttp.HandleWithCORS(canvashttp.HandleReadyCheck(func() bool {
		return true
	})))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", canvashttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("addr", conf.Addr).
		WithTag("canvas_width", conf.CanvasWidth).
		WithTag("canvas_height", conf.CanvasHeight).
		Info("starting canvas server")

	canvashttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			canvashttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}
