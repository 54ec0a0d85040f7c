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
	"syscall"
	"time"

	"github.com/aukilabs/depthlab/collision"
	"github.com/aukilabs/depthlab/featureflag"
	"github.com/aukilabs/depthlab/freespace"
	"github.com/aukilabs/depthlab/geometry"
	dlhttp "github.com/aukilabs/depthlab/http"
	"github.com/aukilabs/depthlab/models"
	"github.com/aukilabs/depthlab/modules"
	"github.com/aukilabs/depthlab/modules/explore"
	"github.com/aukilabs/depthlab/modules/placement"
	"github.com/aukilabs/depthlab/protocol"
	"github.com/aukilabs/depthlab/smoketest"
	dlwebsocket "github.com/aukilabs/depthlab/websocket"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The DepthLab version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "depthlab_info",
		Help:        "DepthLab information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string          `cli:""        env:"DEPTHLAB_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string          `cli:""        env:"DEPTHLAB_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string          `cli:""        env:"DEPTHLAB_PUBLIC_ENDPOINT"      help:"The public endpoint where this DepthLab server is reachable."`
	ServerID           string          `cli:""        env:"DEPTHLAB_SERVER_ID"            help:"The identifier prefixing session ids."`
	AuthToken          string          `cli:""        env:"DEPTHLAB_AUTH_TOKEN"           help:"The bearer token clients must present. Empty accepts every client."`
	LogLevel           string          `cli:""        env:"DEPTHLAB_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool            `cli:""        env:"DEPTHLAB_LOG_INDENT"           help:"Indent logs."`
	ClientIdleTimeout  time.Duration   `cli:",hidden" env:"DEPTHLAB_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration   `cli:",hidden" env:"DEPTHLAB_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	ProfilesFile       string          `cli:""        env:"DEPTHLAB_PROFILES_FILE"        help:"YAML file defining the collision profiles."`
	Collision          collisionConfig `cli:",hidden" env:"-"                             help:"Collision configuration."`
	Explore            exploreConfig   `cli:",hidden" env:"-"                             help:"Free space exploration configuration."`
	Events             eventsConfig    `cli:",hidden" env:"-"                             help:"Event pusher configuration."`
	FeatureFlags       []string        `cli:",hidden" env:"DEPTHLAB_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool            `cli:""        env:"-"                             help:"Show version."`
	Help               bool            `cli:""        env:"-"                             help:"Show help."`
}

type collisionConfig struct {
	VertexDistance float64 `cli:",hidden" env:"DEPTHLAB_COLLISION_VERTEX_DISTANCE" help:"The distance in meters a vertex can be behind the environment before colliding."`
	MeshRatio      float64 `cli:",hidden" env:"DEPTHLAB_COLLISION_MESH_RATIO"      help:"The ratio of colliding vertices above which an object collides."`
	Parallelism    int     `cli:",hidden" env:"DEPTHLAB_COLLISION_PARALLELISM"     help:"The number of goroutines testing large objects."`
}

type exploreConfig struct {
	ScreenBinsX        int     `cli:",hidden" env:"DEPTHLAB_EXPLORE_SCREEN_BINS_X"       help:"The number of horizontal screen grid cells."`
	ScreenBinsY        int     `cli:",hidden" env:"DEPTHLAB_EXPLORE_SCREEN_BINS_Y"       help:"The number of vertical screen grid cells."`
	ElevationThreshold float64 `cli:",hidden" env:"DEPTHLAB_EXPLORE_ELEVATION_THRESHOLD" help:"The largest height difference in meters with the anchor."`
	IterationCap       int     `cli:",hidden" env:"DEPTHLAB_EXPLORE_ITERATION_CAP"       help:"The number of cells visited before an exploration stops."`
	VolumeMeters       float64 `cli:",hidden" env:"DEPTHLAB_EXPLORE_VOLUME_METERS"       help:"The edge in meters of the explored volume."`
	WorldResolution    int     `cli:",hidden" env:"DEPTHLAB_EXPLORE_WORLD_RESOLUTION"    help:"The number of world grid cells per axis."`
	ProxySize          float64 `cli:",hidden" env:"DEPTHLAB_EXPLORE_PROXY_SIZE"          help:"The half-extent in meters of the box centered on each free point."`
	ProxyLift          float64 `cli:",hidden" env:"DEPTHLAB_EXPLORE_PROXY_LIFT"          help:"The height in meters the box is raised above each free point."`
	MarkerBatchSize    int     `cli:",hidden" env:"DEPTHLAB_EXPLORE_MARKER_BATCH_SIZE"   help:"The number of markers sent per message."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"DEPTHLAB_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Empty disables events."`
	FlushInterval time.Duration `cli:",hidden" env:"DEPTHLAB_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"DEPTHLAB_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"DEPTHLAB_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	defaultExplore := freespace.DefaultConfig()
	defaultThresholds := collision.DefaultThresholds()

	conf := config{
		Addr:               ":4000",
		AdminAddr:          ":18190",
		PublicEndpoint:     "http://localhost:4000",
		ServerID:           "depthlab",
		LogLevel:           logs.InfoLevel.String(),
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Collision: collisionConfig{
			VertexDistance: float64(defaultThresholds.VertexDistanceMeters),
			MeshRatio:      float64(defaultThresholds.MeshRatioThreshold),
			Parallelism:    4,
		},
		Explore: exploreConfig{
			ScreenBinsX:        defaultExplore.ScreenBinsX,
			ScreenBinsY:        defaultExplore.ScreenBinsY,
			ElevationThreshold: float64(defaultExplore.ElevationThreshold),
			IterationCap:       defaultExplore.IterationCap,
			VolumeMeters:       float64(defaultExplore.VolumeMeters),
			WorldResolution:    defaultExplore.WorldResolution,
			ProxySize:          float64(defaultExplore.ProxyExtents.X()),
			ProxyLift:          float64(defaultExplore.ProxyLift),
			MarkerBatchSize:    64,
		},
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
		Help("Starts DepthLab server.").
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

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	profiles := collision.DefaultProfiles()
	if conf.ProfilesFile != "" {
		p, err := collision.LoadProfiles(conf.ProfilesFile)
		if err != nil {
			logs.Fatal(err)
		}
		profiles = p
	}

	flags := featureflag.New(conf.FeatureFlags)
	for _, f := range flags.Unknown() {
		logs.WithTag("feature_flag", f).Warn(errors.New("unknown feature flag"))
	}

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
			SDKType:          "depthlab",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	thresholds := thresholdsFromConfig(conf.Collision)
	exploreConf := exploreConfigFromConfig(conf.Explore, thresholds)

	sessions := models.SessionStore{
		ServerID: conf.ServerID,
	}

	var service http.ServeMux
	service.Handle("/health", dlhttp.HandleWithCORS(http.HandlerFunc(dlhttp.HandleHealthCheck)))
	service.Handle("/version", dlhttp.HandleWithCORS(http.HandlerFunc(dlhttp.HandleVersion(version))))

	readinessCheck := func() bool {
		return ctx.Err() == nil
	}
	service.Handle("/ready", dlhttp.HandleWithCORS(http.HandlerFunc(dlhttp.HandleReadyCheck(readinessCheck))))

	service.HandleFunc("/smoke-test", dlhttp.VerifyAuthTokenHandler(conf.AuthToken, smoketest.HandleSmokeTest(ctx, smoketest.Options{
		Config:     exploreConf,
		Thresholds: thresholds,
	})))

	service.Handle("/", dlhttp.HandleWithCORS(websocket.Server{
		Handshake: dlhttp.VerifyAuthToken(conf.AuthToken),
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var sh dlwebsocket.Handler = &dlwebsocket.SessionHandler{
				ClientIdleTimeout: conf.ClientIdleTimeout,
				Sessions:          &sessions,
				Modules:           newModules(flags, profiles, thresholds, exploreConf, conf),
			}
			h := dlwebsocket.HandlerWithLogs(sh, conf.LogSummaryInterval)
			h = dlwebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			dlwebsocket.Handle(ctx, conn, h)
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
	admin.HandleFunc("/health", dlhttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", dlhttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("profiles", profiles.Names()).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting depthlab server")

	dlhttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			dlhttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

// newModules returns the modules of a single connection. Modules turned off
// by a feature flag still answer their requests with a disabled error.
func newModules(flags featureflag.FeatureFlag, profiles collision.Profiles, thresholds collision.Thresholds, exploreConf freespace.Config, conf config) []modules.Module {
	var placementModule modules.Module = &placement.Module{
		Profiles:    profiles,
		Thresholds:  thresholds,
		Parallelism: conf.Collision.Parallelism,
	}
	flags.IfSet(featureflag.FlagDisablePlacement, func() {
		placementModule = &modules.Disabled{
			ModuleName: "placement",
			Requests:   []protocol.MsgType{protocol.MsgTypeCollisionRequest},
		}
	})

	exploreModule := &explore.Module{
		Config:           exploreConf,
		BroadcastMarkers: true,
		MarkerBatchSize:  conf.Explore.MarkerBatchSize,
	}
	flags.IfSet(featureflag.FlagExploreIgnoreWhileBusy, func() {
		exploreModule.Policy = freespace.PolicyIgnoreWhileBusy
	})
	flags.IfSet(featureflag.FlagDisableMarkerBroadcast, func() {
		exploreModule.BroadcastMarkers = false
	})

	var exploreOrDisabled modules.Module = exploreModule
	flags.IfSet(featureflag.FlagDisableExplore, func() {
		exploreOrDisabled = &modules.Disabled{
			ModuleName: "explore",
			Requests: []protocol.MsgType{
				protocol.MsgTypeExploreRequest,
				protocol.MsgTypeExploreCancel,
			},
		}
	})

	return []modules.Module{
		placementModule,
		exploreOrDisabled,
	}
}

func thresholdsFromConfig(c collisionConfig) collision.Thresholds {
	return collision.Thresholds{
		VertexDistanceMeters: float32(c.VertexDistance),
		MeshRatioThreshold:   float32(c.MeshRatio),
	}
}

func exploreConfigFromConfig(c exploreConfig, thresholds collision.Thresholds) freespace.Config {
	conf := freespace.DefaultConfig()
	conf.ScreenBinsX = c.ScreenBinsX
	conf.ScreenBinsY = c.ScreenBinsY
	conf.ElevationThreshold = float32(c.ElevationThreshold)
	conf.IterationCap = c.IterationCap
	conf.VolumeMeters = float32(c.VolumeMeters)
	conf.WorldResolution = c.WorldResolution
	size := float32(c.ProxySize)
	conf.ProxyExtents = geometry.NewVector3f(size, size, size)
	conf.ProxyLift = float32(c.ProxyLift)
	conf.Thresholds = thresholds
	return conf
}

func validateConfig(conf config) error {
	if _, err := url.ParseRequestURI(conf.PublicEndpoint); err != nil {
		return errors.New("invalid public endpoint").Wrap(err)
	}

	if conf.ServerID == "" {
		return errors.New("server id is empty")
	}

	if conf.ClientIdleTimeout <= 0 {
		return errors.New("client idle timeout must be positive").
			WithTag("client_idle_timeout", conf.ClientIdleTimeout)
	}

	if conf.Explore.MarkerBatchSize <= 0 {
		return errors.New("marker batch size must be positive").
			WithTag("marker_batch_size", conf.Explore.MarkerBatchSize)
	}

	thresholds := thresholdsFromConfig(conf.Collision)
	if err := thresholds.Validate(); err != nil {
		return errors.New("invalid collision configuration").Wrap(err)
	}

	if err := exploreConfigFromConfig(conf.Explore, thresholds).Validate(); err != nil {
		return errors.New("invalid explore configuration").Wrap(err)
	}
	return nil
}
