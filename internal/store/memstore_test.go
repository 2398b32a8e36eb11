package store

import (
	"context"
	"testing"
	"time"

	"github.com/shaiso/Conveyor/internal/domain"
)

func ordersTable() *domain.TableDescriptor {
	return &domain.TableDescriptor{
		Name:            "orders",
		PrimaryKeyField: "id",
		Fields: []domain.Field{
			{Name: "id", Type: domain.FieldInteger},
			{Name: "status", Type: domain.FieldString},
			{Name: "total", Type: domain.FieldDecimal},
			{Name: "create_date", Type: domain.FieldDateTime, Behavior: domain.BehaviorCreateDate},
		},
	}
}

func seedOrders(s *MemStore) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []string{"PENDING_INSERT_AUTOMATIONS", "PENDING_INSERT_AUTOMATIONS", "OK"} {
		rec := domain.NewRecord("orders").
			SetValue("id", i+1).
			SetValue("status", status).
			SetValue("total", float64(10*(i+1))).
			SetValue("create_date", base.Add(time.Duration(i)*time.Minute))
		s.Seed("orders", rec)
	}
}

func TestMemStore_QueryEquals(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	filter := domain.NewFilter().WithCriteria("status", domain.OpEquals, "PENDING_INSERT_AUTOMATIONS")
	records, err := s.Query(context.Background(), ordersTable(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestMemStore_QueryIn(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	filter := domain.NewFilter().WithCriteria("id", domain.OpIn, 1, 3)
	records, err := s.Query(context.Background(), ordersTable(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestMemStore_QueryOrderBy(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	filter := domain.NewFilter()
	filter.OrderBys = []domain.OrderBy{{Field: "create_date", Descending: true}}

	records, err := s.Query(context.Background(), ordersTable(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Value("id") != 3 || records[2].Value("id") != 1 {
		t.Errorf("unexpected order: %v, %v, %v",
			records[0].Value("id"), records[1].Value("id"), records[2].Value("id"))
	}
}

func TestMemStore_QueryLimit(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	filter := domain.NewFilter()
	filter.Limit = 2

	records, err := s.Query(context.Background(), ordersTable(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestMemStore_QueryReturnsCopies(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	table := ordersTable()
	records, _ := s.Query(context.Background(), table, nil)
	records[0].SetValue("status", "MUTATED")

	fresh, err := s.Get(context.Background(), table, records[0].Value("id"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fresh.Value("status") == "MUTATED" {
		t.Error("mutation of query result leaked into the store")
	}
}

func TestMemStore_GetNotFound(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	_, err := s.Get(context.Background(), ordersTable(), 99)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestMemStore_UpdateStatus(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)
	table := ordersTable()

	err := s.UpdateStatus(context.Background(), table, []any{1, 2}, "status", domain.StatusRunningInsert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []int{1, 2} {
		rec, _ := s.Get(context.Background(), table, id)
		if rec.ValueString("status") != string(domain.StatusRunningInsert) {
			t.Errorf("record %d status = %s", id, rec.ValueString("status"))
		}
	}

	// Третья запись не входила в список ключей.
	rec, _ := s.Get(context.Background(), table, 3)
	if rec.ValueString("status") != "OK" {
		t.Errorf("record 3 status = %s, want OK", rec.ValueString("status"))
	}
}

func TestMemStore_QueryStream(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	ch := make(chan *domain.Record, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.QueryStream(context.Background(), ordersTable(), nil, ch)
		close(ch)
	}()

	var count int
	for range ch {
		count++
	}
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("streamed %d records, want 3", count)
	}
}

func TestMemStore_SubFilterOr(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	sub := &domain.Filter{
		Op: domain.BooleanOr,
		Criteria: []domain.Criteria{
			{Field: "id", Op: domain.OpEquals, Values: []any{1}},
			{Field: "id", Op: domain.OpEquals, Values: []any{3}},
		},
	}
	filter := domain.NewFilter().
		WithCriteria("total", domain.OpGreaterThan, 5.0).
		WithSubFilter(sub)

	records, err := s.Query(context.Background(), ordersTable(), filter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
}

func TestMemStore_UnsupportedOp(t *testing.T) {
	s := NewMemStore()
	seedOrders(s)

	filter := domain.NewFilter().WithCriteria("status", "LIKE", "PEND%")
	if _, err := s.Query(context.Background(), ordersTable(), filter); err == nil {
		t.Fatal("expected error for unsupported operator")
	}
}
