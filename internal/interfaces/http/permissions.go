package http

import (
	"context"

	"github.com/jhoicas/produccion-api/internal/application/orders"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// Roles reconocidos en los claims del JWT.
const (
	RoleAdmin     = "admin"
	RoleGerente   = "gerente"
	RolePlaneador = "planeador"
	RoleCompras   = "compras"
	RoleBodeguero = "bodeguero"
)

// permission acción permitida; Kind vacío aplica a MO y PO.
type permission struct {
	action string
	kind   entity.OrderKind
}

func transition(target entity.OrderStatus, kind entity.OrderKind) permission {
	return permission{action: orders.TransitionAction(target), kind: kind}
}

func create(kind entity.OrderKind) permission {
	return permission{action: orders.ActionCreate, kind: kind}
}

var read = permission{action: orders.ActionRead}

// swap recibir reservas cedidas por MO de menor prioridad.
var swap = permission{action: orders.ActionSwap, kind: entity.OrderKindMO}

// rolePermissions tabla rol -> acciones. admin no aparece: puede todo.
var rolePermissions = map[string][]permission{
	RoleGerente: {
		read,
		create(""),
		transition(entity.StatusSubmitted, ""),
		transition(entity.StatusGMApproved, ""),
		transition(entity.StatusGMCreatedPO, entity.OrderKindPO),
		transition(entity.StatusRejected, ""),
		transition(entity.StatusCancelled, ""),
		transition(entity.StatusOnHold, entity.OrderKindMO),
		swap,
	},
	RolePlaneador: {
		read,
		create(entity.OrderKindMO),
		transition(entity.StatusSubmitted, entity.OrderKindMO),
		transition(entity.StatusRMAllocated, entity.OrderKindMO),
		transition(entity.StatusInProgress, entity.OrderKindMO),
		transition(entity.StatusCompleted, entity.OrderKindMO),
		transition(entity.StatusOnHold, entity.OrderKindMO),
		transition(entity.StatusGMApproved, entity.OrderKindMO),
		transition(entity.StatusCancelled, entity.OrderKindMO),
		swap,
	},
	RoleCompras: {
		read,
		create(entity.OrderKindPO),
		transition(entity.StatusSubmitted, entity.OrderKindPO),
		transition(entity.StatusVendorConfirmed, entity.OrderKindPO),
		transition(entity.StatusCancelled, entity.OrderKindPO),
	},
	RoleBodeguero: {
		read,
		transition(entity.StatusPartiallyReceived, entity.OrderKindPO),
		transition(entity.StatusCompleted, entity.OrderKindPO),
	},
}

var _ orders.Authorizer = RoleAuthorizer{}

// RoleAuthorizer Authorizer por defecto: decide con el rol del token.
// Reanudar desde on_hold exige permiso sobre el estado al que se vuelve (p. ej. in_progress).
type RoleAuthorizer struct{}

func (RoleAuthorizer) CanPerform(_ context.Context, actor orders.Actor, action string, order *entity.Order) bool {
	if actor.Role == RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[actor.Role] {
		if p.action != action {
			continue
		}
		if p.kind == "" || order == nil || p.kind == order.Kind {
			return true
		}
	}
	return false
}
