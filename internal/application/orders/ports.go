package orders

import (
	"context"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// Catalog lectura de especificaciones de producto. Devuelve domain.ErrNotFound si el
// producto no existe.
type Catalog interface {
	GetSpecification(ctx context.Context, productID string) (*entity.ProductSpec, error)
}

// IDGenerator asigna el número legible de la orden (MO-YYYYMMDD-NNNN).
type IDGenerator interface {
	Next(ctx context.Context, kind entity.OrderKind, at time.Time) (string, error)
}

// EventPublisher publica eventos de cambio de estado ya confirmados.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// Authorizer decide si un actor puede ejecutar una acción sobre una orden.
type Authorizer interface {
	CanPerform(ctx context.Context, actor Actor, action string, order *entity.Order) bool
}

// Actor quien ejecuta la operación.
type Actor struct {
	UserID string
	Role   string
}

// Tipos de evento de orden.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent evento publicado tras el commit.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	Kind       string    `json:"kind"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	ChangedBy  string    `json:"changed_by"`
	ChangedAt  time.Time `json:"changed_at"`
	Notes      string    `json:"notes,omitempty"`
}

// NopPublisher no publica nada (sin brokers configurados).
type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, OrderEvent) error { return nil }

// Acciones que evalúa el Authorizer.
const (
	ActionCreate = "order.create"
	ActionRead   = "order.read"
	ActionSwap   = "order.swap_allocations"
)

// TransitionAction acción de mover una orden al estado destino.
func TransitionAction(target entity.OrderStatus) string {
	return "order.transition." + string(target)
}
