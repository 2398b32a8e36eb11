package poller

import (
	"context"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
)

func TestValidateSweepSchedule(t *testing.T) {
	if err := ValidateSweepSchedule("*/5 * * * *"); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
	if err := ValidateSweepSchedule("not a schedule"); err == nil {
		t.Error("invalid schedule accepted")
	}
}

func TestNew_InvalidSweepSchedule(t *testing.T) {
	_, err := New(Config{
		Catalog:  domain.NewStaticCatalog(ordersTable()),
		Store:    store.NewMemStore(),
		Sessions: passthroughSessions,
		Sweep:    &SweepConfig{Schedule: "bogus"},
		Logger:   quietLogger(),
	})
	if err == nil {
		t.Fatal("New accepted invalid sweep schedule")
	}
}

func TestNewSweeper_NilConfigDisabled(t *testing.T) {
	sw, err := newSweeper(nil, domain.NewStaticCatalog(), store.NewMemStore(), quietLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sw != nil {
		t.Error("nil config produced a sweeper")
	}
}

func seedStale(st *store.MemStore, id int, status domain.AutomationStatus, age time.Duration) {
	st.Seed("orders", domain.NewRecord("orders").
		SetValue("id", id).
		SetValue("status", string(status)).
		SetValue("region", "r1").
		SetValue("modify_date", time.Now().Add(-age)),
	)
}

func TestSweep_ResetsStaleRunning(t *testing.T) {
	st := store.NewMemStore()
	seedStale(st, 1, domain.StatusRunningInsert, 2*time.Hour)
	seedStale(st, 2, domain.StatusRunningUpdate, 2*time.Hour)
	seedStale(st, 3, domain.StatusRunningInsert, time.Minute) // свежая
	seedStale(st, 4, domain.StatusFailedInsert, 2*time.Hour)  // финальная

	table := ordersTable()
	sw, err := newSweeper(
		&SweepConfig{Schedule: "* * * * *", OlderThan: time.Hour},
		domain.NewStaticCatalog(table), st, quietLogger(),
	)
	if err != nil {
		t.Fatalf("newSweeper: %v", err)
	}

	sw.Sweep(context.Background(), testProvider)

	want := map[int]domain.AutomationStatus{
		1: domain.StatusPendingInsert,
		2: domain.StatusPendingUpdate,
		3: domain.StatusRunningInsert,
		4: domain.StatusFailedInsert,
	}
	for id, status := range want {
		if got := statusOf(st, table, id); got != string(status) {
			t.Errorf("record %d status = %s, want %s", id, got, status)
		}
	}
}

func TestSweep_NoModifyDateFieldSkipsTable(t *testing.T) {
	table := &domain.TableDescriptor{
		Name:            "bare",
		PrimaryKeyField: "id",
		Fields: []domain.Field{
			{Name: "id", Type: domain.FieldInteger},
			{Name: "status", Type: domain.FieldString},
		},
		Automation: &domain.AutomationConfig{ProviderName: testProvider, StatusField: "status"},
	}

	cs := &countingStore{RecordStore: store.NewMemStore()}
	sw, err := newSweeper(&SweepConfig{Schedule: "* * * * *"}, domain.NewStaticCatalog(table), cs, quietLogger())
	if err != nil {
		t.Fatalf("newSweeper: %v", err)
	}

	sw.Sweep(context.Background(), testProvider)

	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.queries != 0 {
		t.Errorf("sweep queried table without modify date field %d times", cs.queries)
	}
}

func TestMaybeSweep_TimeGated(t *testing.T) {
	cs := &countingStore{RecordStore: store.NewMemStore()}
	sw, err := newSweeper(&SweepConfig{Schedule: "* * * * *"}, domain.NewStaticCatalog(ordersTable()), cs, quietLogger())
	if err != nil {
		t.Fatalf("newSweeper: %v", err)
	}

	sw.MaybeSweep(context.Background(), testProvider)
	cs.mu.Lock()
	first := cs.queries
	cs.mu.Unlock()
	if first == 0 {
		t.Fatal("first MaybeSweep did not sweep")
	}

	// Следующий запуск — не раньше следующей минуты по расписанию.
	sw.MaybeSweep(context.Background(), testProvider)
	cs.mu.Lock()
	second := cs.queries
	cs.mu.Unlock()
	if second != first {
		t.Error("second MaybeSweep swept before schedule")
	}
}
