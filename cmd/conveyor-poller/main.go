// Conveyor poller — процесс поллинга автоматизаций.
//
// Читает каталог метаданных из JSON-файла (CATALOG_PATH), подключается
// к Postgres (DB_URL) и опционально к RabbitMQ (MQ_URL), затем
// поднимает админ-интерфейс (/status, /start, /stop) вместе
// с /healthz и /metrics. Цикл поллинга запускается через админ-API
// или автоматически (POLL_AUTOSTART=true) после получения лидерства.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Conveyor/internal/api"
	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/mq"
	"github.com/shaiso/Conveyor/internal/poller"
	"github.com/shaiso/Conveyor/internal/store"
	"github.com/shaiso/Conveyor/internal/telemetry"
)

// pollLockKey — ключ advisory lock лидерства: цикл поллинга держит
// ровно одна реплика, иначе автоматизации по шарду запускались бы дважды.
const pollLockKey int64 = 773311

var startTime = time.Now()

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting conveyor-poller")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	catalogPath := os.Getenv("CATALOG_PATH")
	if catalogPath == "" {
		logger.Error("CATALOG_PATH is required")
		os.Exit(1)
	}
	catalog, err := domain.LoadCatalogFile(catalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "path", catalogPath, "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "path", catalogPath, "tables", len(catalog.Tables()))

	pool, err := store.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")
	records := store.NewPgStore(pool)

	// RabbitMQ опционален: без MQ_URL события просто не публикуются.
	var events *mq.Publisher
	if url := mq.URL(); url != "" {
		conn, err := mq.NewConnection(url, logger)
		if err != nil {
			logger.Error("failed to connect to message queue", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Error("failed to declare mq topology", "error", err)
			os.Exit(1)
		}
		events = mq.NewPublisher(conn, logger)
		logger.Info("connected to message queue")
	}

	registry := backend.NewRegistry()
	registry.RegisterFunc(backend.CodeRefRunRecordScript, func(ctx context.Context, inv *backend.Invocation) error {
		// Встраивающее приложение перерегистрирует обработчик
		// на свой движок скриптов.
		telemetry.FromContext(ctx).Info("record script invoked",
			"table", inv.TableName,
			"script_id", inv.Action.Values[backend.ValueScriptID],
			"records", len(inv.Records),
		)
		return nil
	})

	var sweep *poller.SweepConfig
	if schedule := os.Getenv("SWEEP_SCHEDULE"); schedule != "" {
		sweep = &poller.SweepConfig{
			Schedule:  schedule,
			OlderThan: envDuration("SWEEP_OLDER_THAN", 0),
		}
	}

	supervisor, err := poller.New(poller.Config{
		Catalog:  catalog,
		Store:    records,
		Registry: registry,
		Events:   events,
		Sessions: func(ctx context.Context) (context.Context, error) {
			return telemetry.WithLogger(ctx, logger), nil
		},
		InitialDelay: envDuration("POLL_INITIAL_DELAY", 0),
		Delay:        envDuration("POLL_DELAY", 0),
		StopTimeout:  envDuration("POLL_STOP_TIMEOUT", 0),
		Sweep:        sweep,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to build supervisor", "error", err)
		os.Exit(1)
	}

	provider := os.Getenv("PROVIDER_NAME")
	if provider == "" {
		provider = "POLLING"
	}

	// Лидерство через advisory lock: только лидер запускает цикл.
	var leader atomic.Bool
	go func() {
		tk := time.NewTicker(5 * time.Second)
		defer tk.Stop()

		autostart := os.Getenv("POLL_AUTOSTART") == "true"
		defer func() {
			if leader.Load() {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", pollLockKey)
			}
		}()

		for {
			if !leader.Load() {
				var got bool
				if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", pollLockKey).Scan(&got); err != nil {
					logger.Warn("leader lock attempt failed", "error", err)
				} else if got {
					leader.Store(true)
					logger.Info("acquired poll leadership")
					if autostart {
						supervisor.Start(ctx, provider)
					}
				}
			}

			select {
			case <-tk.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	handler := api.NewHandler(api.Config{
		Supervisor:      supervisor,
		Catalog:         catalog,
		BaseCtx:         ctx,
		DefaultProvider: provider,
		IsLeader:        leader.Load,
		Logger:          logger,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())
	handler.RegisterRoutes(mux)

	addr := ":8082"
	if v := os.Getenv("POLLER_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: api.Chain(api.Recovery(logger), api.Logging(logger))(mux),
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Даём текущему тику завершиться, затем гасим HTTP.
	supervisor.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// envDuration читает длительность из окружения (например "500ms", "2s").
// Пустое или некорректное значение — def.
func envDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
