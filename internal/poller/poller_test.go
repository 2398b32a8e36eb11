package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Conveyor/internal/backend"
	"github.com/shaiso/Conveyor/internal/domain"
	"github.com/shaiso/Conveyor/internal/store"
)

// Общие фикстуры тестов пакета.

const testProvider = "POLLING"

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ordersTable описывает тестовую таблицу с заданными автоматизациями.
func ordersTable(actions ...domain.Action) *domain.TableDescriptor {
	return &domain.TableDescriptor{
		Name:            "orders",
		PrimaryKeyField: "id",
		Fields: []domain.Field{
			{Name: "id", Type: domain.FieldInteger},
			{Name: "status", Type: domain.FieldString},
			{Name: "region", Type: domain.FieldString},
			{Name: "total", Type: domain.FieldDecimal},
			{Name: "create_date", Type: domain.FieldDateTime, Behavior: domain.BehaviorCreateDate},
			{Name: "modify_date", Type: domain.FieldDateTime, Behavior: domain.BehaviorModifyDate},
		},
		Automation: &domain.AutomationConfig{
			ProviderName: testProvider,
			StatusField:  "status",
			Actions:      actions,
		},
	}
}

// seedOrders добавляет n записей со статусом status и возрастающими
// датами создания (id 1..n).
func seedOrders(s *store.MemStore, n int, status domain.AutomationStatus) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		rec := domain.NewRecord("orders").
			SetValue("id", i).
			SetValue("status", string(status)).
			SetValue("region", "r1").
			SetValue("total", float64(100*i)).
			SetValue("create_date", base.Add(time.Duration(i)*time.Minute)).
			SetValue("modify_date", base.Add(time.Duration(i)*time.Minute))
		s.Seed("orders", rec)
	}
}

// collectingHandler запоминает id записей в порядке вызовов.
type collectingHandler struct {
	name string
	mu   sync.Mutex
	ids  []any
	fail func(rec *domain.Record) error
}

func (h *collectingHandler) Name() string { return h.name }

func (h *collectingHandler) Run(ctx context.Context, inv *backend.Invocation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, rec := range inv.Records {
		h.ids = append(h.ids, rec.Value("id"))
		if h.fail != nil {
			if err := h.fail(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *collectingHandler) seen() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]any{}, h.ids...)
}

// statusOf возвращает статус записи по id.
func statusOf(s *store.MemStore, table *domain.TableDescriptor, id any) string {
	rec, err := s.Get(context.Background(), table, id)
	if err != nil {
		return ""
	}
	return rec.ValueString("status")
}
