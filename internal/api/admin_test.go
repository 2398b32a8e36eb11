package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/poller"
	"github.com/shaiso/Conveyor/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *http.ServeMux) {
	t.Helper()

	table := &domain.TableDescriptor{
		Name:            "orders",
		PrimaryKeyField: "id",
		Fields: []domain.Field{
			{Name: "id", Type: domain.FieldInteger},
			{Name: "status", Type: domain.FieldString},
		},
		Automation: &domain.AutomationConfig{ProviderName: "POLLING", StatusField: "status"},
	}
	catalog := domain.NewStaticCatalog(table)

	sup, err := poller.New(poller.Config{
		Catalog:      catalog,
		Store:        store.NewMemStore(),
		Registry:     backend.NewRegistry(),
		Sessions:     func(ctx context.Context) (context.Context, error) { return ctx, nil },
		InitialDelay: time.Hour, // тиков в тестах не будет
		Logger:       slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("poller.New: %v", err)
	}

	h := NewHandler(Config{
		Supervisor:      sup,
		Catalog:         catalog,
		DefaultProvider: "POLLING",
		Logger:          slog.New(slog.DiscardHandler),
	})
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, mux
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) StatusResponse {
	t.Helper()
	var resp struct {
		Data StatusResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

func TestAdmin_StatusStopped(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	st := decodeStatus(t, rec)
	if st.State != poller.StateStopped {
		t.Errorf("state = %s, want STOPPED", st.State)
	}
	if st.Tables != 1 {
		t.Errorf("tables = %d, want 1", st.Tables)
	}
	if !st.Leader {
		t.Error("leader = false, want true by default")
	}
}

func TestAdmin_StartStopCycle(t *testing.T) {
	h, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", strings.NewReader(`{"provider":"POLLING"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("start code = %d, body %s", rec.Code, rec.Body)
	}
	if st := decodeStatus(t, rec); st.State != poller.StateRunning || st.Provider != "POLLING" {
		t.Errorf("after start: %+v", st)
	}

	// Повторный старт — конфликт.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("second start code = %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("stop code = %d, want 202", rec.Code)
	}

	// Остановка асинхронная; дожидаемся STOPPED.
	deadline := time.Now().Add(5 * time.Second)
	for h.supervisor.RunningState() != poller.StateStopped {
		if time.Now().After(deadline) {
			t.Fatal("supervisor did not stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAdmin_StartUsesDefaultProvider(t *testing.T) {
	h, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("start code = %d", rec.Code)
	}
	if got := h.supervisor.Provider(); got != "POLLING" {
		t.Errorf("provider = %q, want default", got)
	}
	h.supervisor.Stop()
}

func TestAdmin_StopWhenStopped(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("stop code = %d, want 409", rec.Code)
	}
}

func TestAdmin_NotLeaderRefusesStart(t *testing.T) {
	h, mux := newTestHandler(t)
	h.isLeader = func() bool { return false }

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("start code = %d, want 409", rec.Code)
	}
	if got := h.supervisor.RunningState(); got != poller.StateStopped {
		t.Errorf("state = %s, want STOPPED", got)
	}
}

func TestAdmin_MethodNotAllowed(t *testing.T) {
	_, mux := newTestHandler(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d, want 405", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/start", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("code = %d, want 405", rec.Code)
	}
}
