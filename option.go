package taskgate

import (
	"log/slog"

	"github.com/viant/afs"

	"github.com/viant/taskgate/service/anomaly"
	"github.com/viant/taskgate/service/approval"
	"github.com/viant/taskgate/service/audit"
	"github.com/viant/taskgate/service/dao"
	"github.com/viant/taskgate/service/executor"
	"github.com/viant/taskgate/service/notifier"
)

// Option customises a Service.
type Option func(s *Service)

// WithLogger replaces the logger built from Config.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithFileSystem sets the afs service used by the fs backends.
func WithFileSystem(fs afs.Service) Option {
	return func(s *Service) { s.fs = fs }
}

// WithExecutor registers e for module, replacing any built-in executor of that name.
func WithExecutor(module string, e executor.Executor) Option {
	return func(s *Service) { s.extraExecutors[module] = e }
}

// WithNotifier adds a notification sink next to the configured providers.
func WithNotifier(n notifier.Notifier) Option {
	return func(s *Service) { s.extraSinks = append(s.extraSinks, n) }
}

// WithAlertHandler adds an anomaly alert handler.
func WithAlertHandler(handler anomaly.AlertHandler) Option {
	return func(s *Service) { s.alertHandlers = append(s.alertHandlers, handler) }
}

// WithCheck adds a custom anomaly check.
func WithCheck(name string, fn anomaly.CheckFunc) Option {
	return func(s *Service) { s.checks = append(s.checks, anomaly.WithCheck(name, fn)) }
}

// WithAuditStore overrides the audit partition store selected by Config.Storage.
func WithAuditStore(store audit.PartitionStore) Option {
	return func(s *Service) { s.auditStore = store }
}

// WithRequestDAO overrides the approval request dao selected by Config.Storage.
func WithRequestDAO(requests dao.Service[string, approval.Request]) Option {
	return func(s *Service) { s.requests = requests }
}
