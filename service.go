package taskgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"golang.org/x/sync/errgroup"

	"github.com/viant/taskgate/internal/logger"
	"github.com/viant/taskgate/policy"
	"github.com/viant/taskgate/progress"
	"github.com/viant/taskgate/service/anomaly"
	"github.com/viant/taskgate/service/api"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/approval/postgres"
	"github.com/viant/taskgate/service/audit"
	auditfs "github.com/viant/taskgate/service/audit/fs"
	"github.com/viant/taskgate/service/cache/ristretto"
	"github.com/viant/taskgate/service/dao"
	fsdao "github.com/viant/taskgate/service/dao/fs"
	"github.com/viant/taskgate/service/dao/store"
	"github.com/viant/taskgate/service/executor"
	"github.com/viant/taskgate/service/executor/nop"
	"github.com/viant/taskgate/service/executor/printer"
	"github.com/viant/taskgate/service/executor/storage"
	"github.com/viant/taskgate/service/messaging"
	fsqueue "github.com/viant/taskgate/service/messaging/fs"
	"github.com/viant/taskgate/service/messaging/memory"
	"github.com/viant/taskgate/service/notifier"
	lognotifier "github.com/viant/taskgate/service/notifier/log"
	_ "github.com/viant/taskgate/service/notifier/nats"
	"github.com/viant/taskgate/service/orchestrator"
	"github.com/viant/taskgate/tracing"
)

// Service wires the policy engine, approval store, audit trail, anomaly
// monitor, notification dispatcher and orchestrator from a Config.
type Service struct {
	config      *Config
	logger      *slog.Logger
	closeLogger logger.Closer
	fs          afs.Service

	policy       *policy.Engine
	auditor      *audit.Trail
	approvals    *approval.Store
	executors    *executor.Registry
	orchestrator *orchestrator.Service
	monitor      *anomaly.Monitor
	dispatcher   *notifier.Dispatcher
	metrics      *tracing.Metrics
	progress     *progress.Progress

	extraExecutors map[string]executor.Executor
	extraSinks     []notifier.Notifier
	alertHandlers  []anomaly.AlertHandler
	checks         []anomaly.Option
	auditStore     audit.PartitionStore
	requests       dao.Service[string, approval.Request]
	closers        []func()
}

// New builds a Service. A nil cfg uses DefaultConfig. Resources opened
// before a failure are released.
func New(ctx context.Context, cfg *Config, opts ...Option) (ret *Service, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{config: cfg, extraExecutors: map[string]executor.Executor{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger, s.closeLogger = logger.New(cfg.Logger)
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	if err = s.initTracing(ctx); err != nil {
		return nil, err
	}
	if s.metrics, err = tracing.NewMetrics(); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	s.progress = progress.New()
	if err = s.initPolicy(ctx); err != nil {
		return nil, err
	}
	if err = s.initAudit(ctx); err != nil {
		return nil, err
	}
	if err = s.initApprovals(ctx); err != nil {
		return nil, err
	}
	if err = s.initDispatcher(ctx); err != nil {
		return nil, err
	}
	s.initExecutors()

	monitorOptions := append([]anomaly.Option{
		anomaly.WithLogger(s.logger),
		anomaly.WithMetrics(s.metrics),
		anomaly.WithAlertHandler(anomaly.NotifierAlert(s.dispatcher)),
	}, s.checks...)
	for _, handler := range s.alertHandlers {
		monitorOptions = append(monitorOptions, anomaly.WithAlertHandler(handler))
	}
	s.monitor = anomaly.New(s.auditor, cfg.Anomaly, monitorOptions...)

	s.orchestrator, err = orchestrator.New(s.policy, s.approvals, s.auditor, s.executors,
		orchestrator.WithConfig(cfg.Orchestrator),
		orchestrator.WithLogger(s.logger),
		orchestrator.WithNotifier(s.dispatcher),
		orchestrator.WithPauser(s.monitor),
		orchestrator.WithMetrics(s.metrics),
		orchestrator.WithProgress(s.progress))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) initTracing(ctx context.Context) error {
	cfg := s.config.Tracing
	if !cfg.Enabled {
		return nil
	}
	service := s.config.Logger.Service
	if service == "" {
		service = "taskgate"
	}
	var err error
	switch cfg.Exporter {
	case ExporterOTLP:
		err = tracing.InitOTLP(ctx, service, cfg.ServiceVersion, cfg.Endpoint, cfg.Insecure)
	case ExporterFile:
		err = tracing.Init(service, cfg.ServiceVersion, cfg.OutputFile)
	default:
		err = tracing.Init(service, cfg.ServiceVersion, "")
	}
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

func (s *Service) initPolicy(ctx context.Context) error {
	var rules *policy.Config
	if path := s.config.Policy.Path; path != "" {
		var err error
		if rules, err = policy.LoadConfigWithFS(ctx, s.fs, path); err != nil {
			return err
		}
	}
	engine, err := policy.New(rules)
	if err != nil {
		return err
	}
	s.policy = engine
	return nil
}

func (s *Service) location(name string) string {
	return url.Join(url.Normalize(s.config.Storage.BaseURL, file.Scheme), name)
}

func (s *Service) initAudit(ctx context.Context) error {
	if s.auditStore == nil {
		switch s.config.Storage.Backend {
		case BackendMemory:
			s.auditStore = audit.NewMemoryStore()
		default:
			partitions, err := auditfs.NewWithFS(ctx, s.fs, s.location("audit"))
			if err != nil {
				return err
			}
			s.auditStore = partitions
		}
	}
	s.auditor = audit.New(s.auditStore, audit.WithLogger(s.logger))
	return nil
}

func (s *Service) initApprovals(ctx context.Context) error {
	if s.requests == nil {
		switch s.config.Storage.Backend {
		case BackendMemory:
			s.requests = store.NewMemoryStore[string, approval.Request](approval.RequestKey, approval.RequestField)
		case BackendFS:
			requests, err := fsdao.New[approval.Request](ctx, s.location("approvals"), approval.RequestKey,
				fsdao.WithField[approval.Request](approval.RequestField),
				fsdao.WithFileSystem[approval.Request](s.fs),
				fsdao.WithLogger[approval.Request](s.logger))
			if err != nil {
				return err
			}
			s.requests = requests
		case BackendPostgres:
			pg := s.config.Storage.Postgres
			if s.config.Storage.Migrate {
				if err := postgres.RunMigrations(ctx, pg.DSN); err != nil {
					return err
				}
			}
			pool, err := postgres.NewPool(ctx, pg)
			if err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			s.closers = append(s.closers, pool.Close)
			s.requests = postgres.NewStore(pool)
		}
	}
	options := []approval.Option{approval.WithLogger(s.logger)}
	if s.config.Cache.Enabled {
		statusCache, err := ristretto.New(s.config.Cache.MaxCost)
		if err != nil {
			return fmt.Errorf("status cache: %w", err)
		}
		s.closers = append(s.closers, statusCache.Close)
		options = append(options, approval.WithStatusCache(statusCache, s.config.Cache.TTL))
	}
	approvals, err := approval.New(ctx, s.requests, s.auditor, options...)
	if err != nil {
		return err
	}
	s.approvals = approvals
	return nil
}

func (s *Service) initDispatcher(ctx context.Context) error {
	cfg := s.config.Notifier
	var outbox messaging.Queue[notifier.Notification]
	switch cfg.Outbox {
	case BackendFS:
		queueConfig := fsqueue.DefaultConfig()
		queueConfig.BasePath = s.location("outbox")
		if cfg.MaxRetries > 0 {
			queueConfig.MaxRetries = cfg.MaxRetries
		}
		queue, err := fsqueue.NewQueue[notifier.Notification](ctx, s.fs, queueConfig)
		if err != nil {
			return fmt.Errorf("outbox: %w", err)
		}
		outbox = queue
	default:
		queueConfig := memory.DefaultConfig()
		if cfg.MaxRetries > 0 {
			queueConfig.MaxRetries = cfg.MaxRetries
		}
		queue := memory.NewQueue[notifier.Notification](queueConfig)
		s.closers = append(s.closers, func() { _ = queue.Close() })
		outbox = queue
	}

	var sinks []notifier.Notifier
	for _, name := range cfg.Providers {
		if name == "log" {
			sinks = append(sinks, lognotifier.New(s.logger))
			continue
		}
		sink, err := notifier.New(name, map[string]string{"url": cfg.NATS.URL, "subject": cfg.NATS.Subject})
		if err != nil {
			return fmt.Errorf("notifier %s: %w", name, err)
		}
		if closer, ok := sink.(interface{ Close() error }); ok {
			s.closers = append(s.closers, func() { _ = closer.Close() })
		}
		sinks = append(sinks, sink)
	}
	sinks = append(sinks, s.extraSinks...)

	dispatcher, err := notifier.NewDispatcher(outbox, sinks,
		notifier.WithDispatcherLogger(s.logger),
		notifier.WithWorkers(cfg.Workers),
		notifier.WithBreaker(cfg.BreakerFailures, cfg.BreakerReset))
	if err != nil {
		return err
	}
	s.dispatcher = dispatcher
	return nil
}

func (s *Service) initExecutors() {
	s.executors = executor.NewRegistry()
	s.executors.Register(nop.Module, nop.New())
	s.executors.Register(printer.Module, printer.New(nil))
	s.executors.Register(storage.Module, storage.New(s.fs))
	for module, e := range s.extraExecutors {
		s.executors.Register(module, e)
	}
}

// Start runs the notification workers, the orchestrator loop and the anomaly
// monitor. It blocks until ctx is done or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	if err := s.dispatcher.Start(ctx); err != nil {
		return err
	}
	s.logger.Info("taskgate started",
		"storage", s.config.Storage.Backend,
		"workers", s.config.Orchestrator.Workers,
		"executors", s.executors.Names())
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(s.orchestrator.Start(gCtx)) })
	g.Go(func() error { return ignoreCanceled(s.monitor.Start(gCtx)) })
	return g.Wait()
}

// Shutdown stops the loops, waits for running tasks, flushes traces and
// releases storage connections.
func (s *Service) Shutdown(ctx context.Context) error {
	s.orchestrator.Shutdown()
	s.monitor.Shutdown()
	s.dispatcher.Shutdown()
	err := tracing.Shutdown(ctx)
	s.logger.Info("taskgate stopped")
	s.close()
	return err
}

func (s *Service) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	if s.closeLogger != nil {
		s.closeLogger.Close()
		s.closeLogger = nil
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	return api.New(s.orchestrator, s.approvals, s.auditor, s.monitor,
		api.WithLogger(s.logger),
		api.WithBodyLimit(s.config.HTTP.BodyLimit)).Router()
}

// Config returns the active configuration.
func (s *Service) Config() *Config { return s.config }

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// Policy returns the policy engine.
func (s *Service) Policy() *policy.Engine { return s.policy }

// Orchestrator returns the orchestrator.
func (s *Service) Orchestrator() *orchestrator.Service { return s.orchestrator }

// Approvals returns the approval store.
func (s *Service) Approvals() *approval.Store { return s.approvals }

// Auditor returns the audit trail.
func (s *Service) Auditor() *audit.Trail { return s.auditor }

// Monitor returns the anomaly monitor.
func (s *Service) Monitor() *anomaly.Monitor { return s.monitor }

// Executors returns the executor registry.
func (s *Service) Executors() *executor.Registry { return s.executors }

// Notifier returns the notification dispatcher.
func (s *Service) Notifier() *notifier.Dispatcher { return s.dispatcher }

// Stats returns orchestrator counters.
func (s *Service) Stats() orchestrator.Stats { return s.orchestrator.Stats() }

// WaitIdle blocks until no task is queued or running, or timeout elapses.
func (s *Service) WaitIdle(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		stats := s.orchestrator.Stats()
		if stats.Queued == 0 && stats.Running == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait idle: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
