package testfixtures

import (
	"log/slog"
	"time"

	"github.com/souzalinux78/gestao-organista/internal/application"
	"github.com/souzalinux78/gestao-organista/internal/cycle"
	"github.com/souzalinux78/gestao-organista/internal/lock"
	"github.com/souzalinux78/gestao-organista/internal/persistence"
	"github.com/souzalinux78/gestao-organista/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Config      application.RotationConfig
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("escala"),
		Config:      application.DefaultRotationConfig(),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("escala")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithRotationConfig overrides the generation limits and draw order.
func WithRotationConfig(config application.RotationConfig) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Config = config
	}
}

// ServiceDeps captures the repositories and collaborators shared by the
// application services. A nil Locker selects an in-process lock.
type ServiceDeps struct {
	Churches  persistence.ChurchRepository
	Services  persistence.ServiceRepository
	Musicians persistence.MusicianRepository
	Cycles    persistence.CycleRepository
	Schedules persistence.ScheduleRepository
	Locker    lock.Locker
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

// Services is a fully wired application layer.
type Services struct {
	Cycles    *application.CycleService
	Rotation  *application.RotationService
	Schedules *application.ScheduleService
	Dashboard *application.DashboardService
}

// NewServices wires the application services the way the server does, with
// the factory clock and identifiers.
func (f *ServiceFactory) NewServices(deps ServiceDeps) *Services {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewMemory()
	}
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	now := f.Clock.NowFunc()
	expander := recurrence.NewExpander(Location())

	dashboard := application.NewDashboardService(deps.Churches, deps.Services, deps.Schedules, expander, ttl, now, deps.Logger)
	cycles := application.NewCycleService(deps.Churches, deps.Services, deps.Musicians, deps.Cycles, cycle.NewStore(), deps.Logger)
	rotation := application.NewRotationService(deps.Churches, deps.Services, deps.Schedules, cycles, expander, locker, dashboard, f.Config, now, deps.Logger)
	schedules := application.NewScheduleService(deps.Churches, deps.Services, deps.Musicians, deps.Schedules, rotation, locker, dashboard, f.IDGenerator.NextFunc(), deps.Logger)

	return &Services{Cycles: cycles, Rotation: rotation, Schedules: schedules, Dashboard: dashboard}
}

// NewSQLiteServices wires services over a harness.
func (f *ServiceFactory) NewSQLiteServices(h *SQLiteHarness, logger *slog.Logger) *Services {
	return f.NewServices(ServiceDeps{
		Churches:  h.Storage.Churches,
		Services:  h.Storage.Services,
		Musicians: h.Storage.Musicians,
		Cycles:    h.Storage.Cycles,
		Schedules: h.Storage.Schedules,
		Logger:    logger,
	})
}
