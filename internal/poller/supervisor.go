package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// State — состояние супервизора.
type State string

// Состояния.
const (
	StateStopped  State = "STOPPED"
	StateRunning  State = "RUNNING"
	StateStopping State = "STOPPING"
)

// Значения по умолчанию.
const (
	// DefaultInitialDelay — задержка перед первым тиком.
	DefaultInitialDelay = 3000 * time.Millisecond

	// DefaultDelay — задержка между тиками. Отсчитывается от
	// завершения предыдущего тика (fixed delay, не fixed rate):
	// медленный тик сам притормаживает следующий.
	DefaultDelay = 1000 * time.Millisecond

	// DefaultStopTimeout — сколько Stop ждёт завершения текущего тика.
	DefaultStopTimeout = 300 * time.Second
)

// SessionSupplier выдаёт контекст с актуальной сессией/identity для
// фоновой работы. Вызывается на каждом тике: тик всегда выполняется
// со свежим контекстом авторизации.
type SessionSupplier func(ctx context.Context) (context.Context, error)

// Supervisor владеет циклом поллинга одного провайдера автоматизаций.
//
// Один супервизор — одна горутина-цикл, поэтому тики никогда не
// перекрываются: перекрытие означало бы двойной запуск автоматизаций
// по одному шарду.
type Supervisor struct {
	catalog   domain.Catalog
	store     store.RecordStore
	registry  *backend.Registry
	processes backend.ProcessRunner
	events    *mq.Publisher
	sessions  SessionSupplier
	sweeper   *sweeper
	logger    *slog.Logger

	initialDelay time.Duration
	delay        time.Duration
	stopTimeout  time.Duration
	batchSize    int
	bufferSize   int

	mu       sync.Mutex
	state    State
	provider string
	stopCh   chan struct{}
	done     chan struct{}
}

// Config — конфигурация Supervisor.
type Config struct {
	Catalog   domain.Catalog
	Store     store.RecordStore
	Registry  *backend.Registry
	Processes backend.ProcessRunner // опционально
	Events    *mq.Publisher         // опционально

	// Sessions обязателен: без поставщика сессий Start отказывает.
	Sessions SessionSupplier

	InitialDelay time.Duration // default: 3s
	Delay        time.Duration // default: 1s
	StopTimeout  time.Duration // default: 300s

	BatchSize  int
	BufferSize int

	// Sweep включает recovery sweep зависших RUNNING_* записей.
	// nil — sweep выключен (поведение по умолчанию).
	Sweep *SweepConfig

	Logger *slog.Logger
}

// New создаёт Supervisor в состоянии STOPPED.
func New(cfg Config) (*Supervisor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	initialDelay := cfg.InitialDelay
	if initialDelay <= 0 {
		initialDelay = DefaultInitialDelay
	}
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}

	sw, err := newSweeper(cfg.Sweep, cfg.Catalog, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	return &Supervisor{
		catalog:      cfg.Catalog,
		store:        cfg.Store,
		registry:     cfg.Registry,
		processes:    cfg.Processes,
		events:       cfg.Events,
		sessions:     cfg.Sessions,
		sweeper:      sw,
		logger:       logger,
		initialDelay: initialDelay,
		delay:        delay,
		stopTimeout:  stopTimeout,
		batchSize:    cfg.BatchSize,
		bufferSize:   cfg.BufferSize,
		state:        StateStopped,
	}, nil
}

// Start запускает цикл поллинга для провайдера.
//
// No-op с результатом false, если супервизор не в состоянии STOPPED
// или не сконфигурирован поставщик сессий.
func (s *Supervisor) Start(ctx context.Context, providerName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStopped {
		s.logger.Warn("start ignored", "state", s.state)
		return false
	}
	if s.sessions == nil {
		s.logger.Error("start refused", "error", ErrNoSessionSupplier)
		return false
	}

	s.state = StateRunning
	s.provider = providerName
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	telemetry.SupervisorState.Set(1)

	go s.loop(ctx, providerName, s.stopCh, s.done)

	telemetry.WithProvider(s.logger, providerName).Info("supervisor started",
		"initial_delay", s.initialDelay,
		"delay", s.delay,
	)
	return true
}

// loop — цикл поллинга. Работает в одной горутине; между тиками
// проверяет запрос на остановку, текущий тик не прерывает.
func (s *Supervisor) loop(ctx context.Context, provider string, stopCh, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(s.initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick(ctx, provider)
			timer.Reset(s.delay)
		}
	}
}

// tick выполняет один тик: свежая сессия, опциональный sweep,
// свежий раннер по текущему каталогу.
func (s *Supervisor) tick(ctx context.Context, provider string) {
	started := time.Now()
	defer func() {
		telemetry.TickDuration.Observe(time.Since(started).Seconds())
	}()

	sessCtx, err := s.sessions(ctx)
	if err != nil {
		telemetry.WithProvider(s.logger, provider).Error("session supplier failed, skipping tick", "error", err)
		return
	}

	if s.sweeper != nil {
		s.sweeper.MaybeSweep(sessCtx, provider)
	}

	runner := NewRunner(sessCtx, RunnerConfig{
		Catalog:    s.catalog,
		Store:      s.store,
		Registry:   s.registry,
		Processes:  s.processes,
		Events:     s.events,
		Provider:   provider,
		BatchSize:  s.batchSize,
		BufferSize: s.bufferSize,
		Logger:     s.logger,
	})
	runner.Run(sessCtx)
}

// Stop запрашивает остановку и ждёт завершения текущего тика
// (не дольше StopTimeout). Возвращает true, только если полная
// остановка наблюдалась до таймаута; иначе состояние остаётся
// STOPPING и возвращается false.
func (s *Supervisor) Stop() bool {
	s.mu.Lock()

	switch s.state {
	case StateStopped:
		s.mu.Unlock()
		return false
	case StateStopping:
		// Предыдущий Stop не дождался; проверяем без ожидания.
		done := s.done
		s.mu.Unlock()
		select {
		case <-done:
			s.finishStop()
			return true
		default:
			return false
		}
	}

	s.state = StateStopping
	telemetry.SupervisorState.Set(2)
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		s.finishStop()
		return true
	case <-time.After(s.stopTimeout):
		s.logger.Warn("supervisor stop timed out", "timeout", s.stopTimeout)
		return false
	}
}

// StopAsync запускает ту же остановку, не блокируя вызывающего.
func (s *Supervisor) StopAsync() {
	go s.Stop()
}

// finishStop переводит супервизор в STOPPED после завершения цикла.
func (s *Supervisor) finishStop() {
	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	telemetry.SupervisorState.Set(0)
	s.logger.Info("supervisor stopped")
}

// RunningState возвращает текущее состояние.
func (s *Supervisor) RunningState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Provider возвращает имя провайдера, для которого запущен цикл
// (пустая строка до первого Start).
func (s *Supervisor) Provider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// InitialDelay возвращает задержку перед первым тиком.
func (s *Supervisor) InitialDelay() time.Duration { return s.initialDelay }

// Delay возвращает задержку между тиками.
func (s *Supervisor) Delay() time.Duration { return s.delay }
