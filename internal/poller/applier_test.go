package poller

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
)

func batchOf(st *store.MemStore, table *domain.TableDescriptor, status domain.AutomationStatus) []*domain.Record {
	recs, err := st.Query(context.Background(), table, domain.NewFilter().
		WithCriteria(table.Automation.StatusField, domain.OpEquals, string(status)).
		WithOrderBy(table.PrimaryKeyField))
	if err != nil {
		panic(err)
	}
	return recs
}

func TestApplier_RunsHandlerOnRequeriedRecords(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 3, domain.StatusPendingInsert)
	table := ordersTable()

	reg := backend.NewRegistry()
	h := &collectingHandler{name: "notify"}
	reg.Register(h)

	a := NewApplier(ApplierConfig{Store: st, Registry: reg, Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}
	action := domain.Action{Name: "notify-all", TriggerEvent: domain.EventPostInsert, CodeRef: "notify"}

	batch := batchOf(st, table, domain.StatusPendingInsert)
	if err := a.Apply(context.Background(), unit, action, batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := h.seen()
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Errorf("handler saw %v, want [1 2 3]", seen)
	}
}

func TestApplier_ActionFilterNarrowsBatch(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 4, domain.StatusPendingInsert) // total = 100, 200, 300, 400
	table := ordersTable()

	reg := backend.NewRegistry()
	h := &collectingHandler{name: "big-orders"}
	reg.Register(h)

	a := NewApplier(ApplierConfig{Store: st, Registry: reg, Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}
	action := domain.Action{
		Name:         "big-orders-only",
		TriggerEvent: domain.EventPostInsert,
		CodeRef:      "big-orders",
		Filter:       domain.NewFilter().WithCriteria("total", domain.OpGreaterThan, 250),
	}

	batch := batchOf(st, table, domain.StatusPendingInsert)
	if err := a.Apply(context.Background(), unit, action, batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := h.seen()
	if len(seen) != 2 || seen[0] != 3 || seen[1] != 4 {
		t.Errorf("handler saw %v, want [3 4]", seen)
	}
}

func TestApplier_NoMatchesNoInvocation(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 2, domain.StatusPendingInsert)
	table := ordersTable()

	reg := backend.NewRegistry()
	h := &collectingHandler{name: "never"}
	reg.Register(h)

	a := NewApplier(ApplierConfig{Store: st, Registry: reg, Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}
	action := domain.Action{
		Name:    "impossible",
		CodeRef: "never",
		Filter:  domain.NewFilter().WithCriteria("total", domain.OpGreaterThan, 1000000),
	}

	batch := batchOf(st, table, domain.StatusPendingInsert)
	if err := a.Apply(context.Background(), unit, action, batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.seen()) != 0 {
		t.Errorf("handler invoked for empty match: %v", h.seen())
	}
}

func TestApplier_SeesFreshValues(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 1, domain.StatusPendingInsert)
	table := ordersTable()

	batch := batchOf(st, table, domain.StatusPendingInsert)
	// Запись меняется после выборки батча.
	if err := st.UpdateStatus(context.Background(), table, []any{1}, "status", domain.StatusRunningInsert); err != nil {
		t.Fatal(err)
	}

	reg := backend.NewRegistry()
	var got string
	reg.RegisterFunc("fresh", func(ctx context.Context, inv *backend.Invocation) error {
		got = inv.Records[0].ValueString("status")
		return nil
	})

	a := NewApplier(ApplierConfig{Store: st, Registry: reg, Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}

	if err := a.Apply(context.Background(), unit, domain.Action{Name: "f", CodeRef: "fresh"}, batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != string(domain.StatusRunningInsert) {
		t.Errorf("handler saw status %q, want fresh RUNNING value", got)
	}
}

func TestApplier_PanicBecomesError(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 1, domain.StatusPendingInsert)
	table := ordersTable()

	reg := backend.NewRegistry()
	reg.RegisterFunc("panicky", func(ctx context.Context, inv *backend.Invocation) error {
		panic("oh no")
	})

	a := NewApplier(ApplierConfig{Store: st, Registry: reg, Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}

	batch := batchOf(st, table, domain.StatusPendingInsert)
	err := a.Apply(context.Background(), unit, domain.Action{Name: "p", CodeRef: "panicky"}, batch)
	if err == nil || !strings.Contains(err.Error(), "panic in action") {
		t.Errorf("err = %v, want wrapped panic", err)
	}
}

func TestApplier_UnknownHandler(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 1, domain.StatusPendingInsert)
	table := ordersTable()

	a := NewApplier(ApplierConfig{Store: st, Registry: backend.NewRegistry(), Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}

	batch := batchOf(st, table, domain.StatusPendingInsert)
	err := a.Apply(context.Background(), unit, domain.Action{Name: "x", CodeRef: "missing"}, batch)
	if !errors.Is(err, backend.ErrHandlerNotFound) {
		t.Errorf("err = %v, want ErrHandlerNotFound", err)
	}
}

type recordingProcessRunner struct {
	name  string
	input backend.ProcessInput
	err   error
}

func (p *recordingProcessRunner) Run(ctx context.Context, processName string, input backend.ProcessInput) error {
	p.name = processName
	p.input = input
	return p.err
}

func TestApplier_ProcessAction(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 2, domain.StatusPendingInsert)
	table := ordersTable()

	proc := &recordingProcessRunner{}
	a := NewApplier(ApplierConfig{Store: st, Processes: proc, Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}
	action := domain.Action{
		Name:        "export",
		ProcessName: "orders.export",
		Values:      map[string]any{"format": "csv"},
	}

	batch := batchOf(st, table, domain.StatusPendingInsert)
	if err := a.Apply(context.Background(), unit, action, batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if proc.name != "orders.export" {
		t.Errorf("process name = %q", proc.name)
	}
	if !proc.input.SuppressFrontendSteps {
		t.Error("frontend steps not suppressed")
	}
	if proc.input.TableName != "orders" || proc.input.Values["format"] != "csv" {
		t.Errorf("unexpected input: %+v", proc.input)
	}
	if proc.input.Filter == nil || len(proc.input.Filter.Criteria) != 1 ||
		proc.input.Filter.Criteria[0].Op != domain.OpIn ||
		len(proc.input.Filter.Criteria[0].Values) != 2 {
		t.Errorf("unexpected pk filter: %+v", proc.input.Filter)
	}
}

func TestApplier_ProcessWithoutRunner(t *testing.T) {
	st := store.NewMemStore()
	seedOrders(st, 1, domain.StatusPendingInsert)
	table := ordersTable()

	a := NewApplier(ApplierConfig{Store: st, Registry: backend.NewRegistry(), Logger: quietLogger()})
	unit := domain.WorkUnit{Table: table, Status: domain.StatusPendingInsert}

	batch := batchOf(st, table, domain.StatusPendingInsert)
	err := a.Apply(context.Background(), unit, domain.Action{Name: "x", ProcessName: "p"}, batch)
	if !errors.Is(err, ErrNoProcessRunner) {
		t.Errorf("err = %v, want ErrNoProcessRunner", err)
	}
}
