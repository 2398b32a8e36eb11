package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/poller"
)

// StatusResponse — состояние поллера.
type StatusResponse struct {
	State        poller.State `json:"state"`
	Provider     string       `json:"provider,omitempty"`
	Leader       bool         `json:"leader"`
	Tables       int          `json:"tables"`
	InitialDelay string       `json:"initial_delay"`
	Delay        string       `json:"delay"`
	Uptime       string       `json:"uptime"`
}

// StartRequest — запрос запуска поллинга.
type StartRequest struct {
	// Provider — имя провайдера; пустое значение означает провайдера
	// из конфигурации процесса.
	Provider string `json:"provider,omitempty"`
}

// Handler — административный HTTP-интерфейс поллера.
//
// Start/Stop транслируются в одноимённые операции супервизора;
// повторный запуск и остановка остановленного — 409.
type Handler struct {
	supervisor *poller.Supervisor
	catalog    domain.Catalog

	// baseCtx живёт дольше любого запроса: цикл поллинга не должен
	// умирать вместе с контекстом запустившего его HTTP-запроса.
	baseCtx context.Context

	defaultProvider string
	isLeader        func() bool
	startTime       time.Time
	logger          *slog.Logger
}

// Config — конфигурация Handler.
type Config struct {
	Supervisor      *poller.Supervisor
	Catalog         domain.Catalog
	BaseCtx         context.Context
	DefaultProvider string
	IsLeader        func() bool // nil — процесс всегда лидер
	Logger          *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseCtx := cfg.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	isLeader := cfg.IsLeader
	if isLeader == nil {
		isLeader = func() bool { return true }
	}

	return &Handler{
		supervisor:      cfg.Supervisor,
		catalog:         cfg.Catalog,
		baseCtx:         baseCtx,
		defaultProvider: cfg.DefaultProvider,
		isLeader:        isLeader,
		startTime:       time.Now(),
		logger:          logger,
	}
}

// RegisterRoutes регистрирует маршруты на mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/status", h.handleStatus)
	mux.HandleFunc("/start", h.handleStart)
	mux.HandleFunc("/stop", h.handleStop)
}

func (h *Handler) status() StatusResponse {
	return StatusResponse{
		State:        h.supervisor.RunningState(),
		Provider:     h.supervisor.Provider(),
		Leader:       h.isLeader(),
		Tables:       len(h.catalog.Tables()),
		InitialDelay: h.supervisor.InitialDelay().String(),
		Delay:        h.supervisor.Delay().String(),
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	Data(w, http.StatusOK, h.status())
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid request body")
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = h.defaultProvider
	}
	if provider == "" {
		BadRequest(w, "provider is required")
		return
	}
	if !h.isLeader() {
		Conflict(w, "not the leader, refusing to start polling")
		return
	}

	if !h.supervisor.Start(h.baseCtx, provider) {
		Conflict(w, "supervisor is not stopped")
		return
	}

	h.logger.Info("polling started via admin api", "provider", provider)
	Data(w, http.StatusOK, h.status())
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	if h.supervisor.RunningState() == poller.StateStopped {
		Conflict(w, "supervisor is already stopped")
		return
	}

	// Остановка ждёт завершения текущего тика и может длиться
	// до StopTimeout — ответ не задерживаем.
	h.supervisor.StopAsync()

	h.logger.Info("polling stop requested via admin api")
	Data(w, http.StatusAccepted, h.status())
}
