package console

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/contentops/driftgate/internal/actor"
	"github.com/contentops/driftgate/internal/auth"
	"github.com/contentops/driftgate/internal/events"
	"github.com/contentops/driftgate/internal/govern"
	"github.com/contentops/driftgate/internal/ledger"
	"github.com/contentops/driftgate/internal/observability"
	"github.com/contentops/driftgate/internal/rehearsal"
	"github.com/contentops/driftgate/internal/remedy"
)

// Console endpoint configuration.
type ServiceConfig struct {
	NodeID        string
	ListenAddr    string
	SharedSecret  string
	ActorSalt     string
	Retention     int
	GuardEnforced bool
	CORSOrigins   []string
	HistoryPath   string
	TLS           TLSConfig
	Audit         AuditConfig
}

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type AuditConfig struct {
	LogEvents     bool
	PubSubProject string
	PubSubTopic   string
}

// Console service defaults. The shared secret has no default: an unset
// secret denies every guarded request.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		NodeID:     "console.local",
		ListenAddr: ":8080",
		Retention:  5,
		Audit:      AuditConfig{LogEvents: true},
	}
}

// Service is the runtime console: router, ledger, and recorders wired
// per configuration.
type Service struct {
	cfg    ServiceConfig
	router *gin.Engine

	ledger    *ledger.Ledger
	boltStore *ledger.BoltStore
	remedy    *remedy.Recorder
	govern    *govern.Recorder
	builder   *rehearsal.Builder
	emitter   events.Emitter
	pubsub    *events.PubSubEmitter

	started time.Time
}

// NewService constructs a console with default configuration.
func NewService() (*Service, error) {
	return NewServiceWithConfig(DefaultServiceConfig())
}

// NewServiceWithConfig constructs a fully-routed console. The history
// store is bbolt when HistoryPath is set, in-memory otherwise.
func NewServiceWithConfig(cfg ServiceConfig) (*Service, error) {
	defaults := DefaultServiceConfig()
	if strings.TrimSpace(cfg.NodeID) == "" {
		cfg.NodeID = defaults.NodeID
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		cfg.ListenAddr = defaults.ListenAddr
	}

	observability.RegisterMetrics()

	var store ledger.Store
	var boltStore *ledger.BoltStore
	if path := strings.TrimSpace(cfg.HistoryPath); path != "" {
		bs, err := ledger.NewBoltStore(path)
		if err != nil {
			return nil, err
		}
		boltStore = bs
		store = bs
	} else {
		store = ledger.NewMemoryStore()
	}

	led, err := ledger.NewLedger(store)
	if err != nil {
		if boltStore != nil {
			boltStore.Close()
		}
		return nil, err
	}

	emitter, pubsubEmitter, err := buildEmitter(cfg.Audit)
	if err != nil {
		if boltStore != nil {
			boltStore.Close()
		}
		return nil, err
	}

	hasher := actor.NewSHA256Hasher(cfg.ActorSalt)
	remedyRec, err := remedy.NewRecorder(led, emitter)
	if err != nil {
		return nil, err
	}
	governRec, err := govern.NewRecorder(led, hasher, emitter)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(observability.HTTPLogger()))
	router.Use(observability.RequestMetricsMiddleware(cfg.NodeID))
	router.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", auth.SignatureHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = router.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Service{
		cfg:       cfg,
		router:    router,
		ledger:    led,
		boltStore: boltStore,
		remedy:    remedyRec,
		govern:    governRec,
		builder:   rehearsal.NewBuilder(hasher),
		emitter:   emitter,
		pubsub:    pubsubEmitter,
		started:   time.Now(),
	}
	s.registerRoutes()
	return s, nil
}

func buildEmitter(cfg AuditConfig) (events.Emitter, *events.PubSubEmitter, error) {
	var sinks []events.Emitter
	if cfg.LogEvents {
		sinks = append(sinks, events.NewLogEmitter())
	}

	var pubsubEmitter *events.PubSubEmitter
	if strings.TrimSpace(cfg.PubSubProject) != "" && strings.TrimSpace(cfg.PubSubTopic) != "" {
		var err error
		pubsubEmitter, err = events.NewPubSubEmitter(context.Background(), cfg.PubSubProject, cfg.PubSubTopic)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, pubsubEmitter)
	}

	switch len(sinks) {
	case 0:
		return events.NewNopEmitter(), nil, nil
	case 1:
		return sinks[0], pubsubEmitter, nil
	default:
		return events.NewMultiEmitter(sinks...), pubsubEmitter, nil
	}
}

// Router exposes the configured engine for in-process serving and tests.
func (s *Service) Router() *gin.Engine {
	return s.router
}

// Ledger exposes the history ledger for in-process collaborators.
func (s *Service) Ledger() *ledger.Ledger {
	return s.ledger
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := s.listen()
	if err != nil {
		return err
	}
	log.Info().
		Str("node", s.cfg.NodeID).
		Str("addr", ln.Addr().String()).
		Bool("tls", s.cfg.TLS.Enabled).
		Msg("console listening")
	return s.Serve(ctx, ln)
}

// Console listener builder for TCP or TLS based on transport config.
func (s *Service) listen() (net.Listener, error) {
	if !s.cfg.TLS.Enabled {
		return net.Listen("tcp", s.cfg.ListenAddr)
	}
	cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	if err != nil {
		return nil, err
	}
	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	return tls.Listen("tcp", s.cfg.ListenAddr, tlsCfg)
}

// Serve runs the HTTP server on an existing listener until ctx cancels.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-serveErr
		return s.Close()
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Close()
			return err
		}
		return s.Close()
	}
}

// Close releases the durable store and audit transports.
func (s *Service) Close() error {
	var first error
	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			first = err
		}
		s.pubsub = nil
	}
	if s.boltStore != nil {
		if err := s.boltStore.Close(); err != nil && first == nil {
			first = err
		}
		s.boltStore = nil
	}
	return first
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
