// Package workflow define las tablas de transición por tipo de orden.
// Cada estado lista sus siguientes estados permitidos y el efecto asociado a cada arista;
// la ejecución del efecto vive en la capa de aplicación.
package workflow

import (
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// Effect efecto secundario asociado a una transición.
type Effect int

const (
	EffectNone    Effect = iota
	EffectApprove        // sello de aprobación, sin stock
	EffectReserve        // calcular requerimiento y reservar
	EffectRelease        // liberar reservas activas (no-op si no hay)
	EffectConsume        // convertir reservas en consumo
	EffectReceive        // entrada de stock por recepción de compra
	EffectHold           // guardar estado previo
	EffectResume         // volver al estado previo a on_hold
)

func (e Effect) String() string {
	switch e {
	case EffectApprove:
		return "approve"
	case EffectReserve:
		return "reserve"
	case EffectRelease:
		return "release"
	case EffectConsume:
		return "consume"
	case EffectReceive:
		return "receive"
	case EffectHold:
		return "hold"
	case EffectResume:
		return "resume"
	}
	return "none"
}

// State regla de un estado: siguientes permitidos y si es terminal.
type State struct {
	Terminal bool
	Next     map[entity.OrderStatus]Effect
}

// Table tabla de transición de un tipo de orden.
type Table map[entity.OrderStatus]State

var tables = map[entity.OrderKind]Table{
	entity.OrderKindMO: buildMO(),
	entity.OrderKindPO: buildPO(),
}

func buildMO() Table {
	t := Table{
		entity.StatusDraft:       {Next: map[entity.OrderStatus]Effect{entity.StatusSubmitted: EffectNone}},
		entity.StatusSubmitted:   {Next: map[entity.OrderStatus]Effect{entity.StatusGMApproved: EffectApprove}},
		entity.StatusGMApproved:  {Next: map[entity.OrderStatus]Effect{entity.StatusRMAllocated: EffectReserve}},
		entity.StatusRMAllocated: {Next: map[entity.OrderStatus]Effect{entity.StatusInProgress: EffectNone}},
		entity.StatusInProgress:  {Next: map[entity.OrderStatus]Effect{entity.StatusCompleted: EffectConsume}},
		// on_hold solo puede volver a HeldFrom (ver Resolve) o cancelarse.
		entity.StatusOnHold:    {Next: map[entity.OrderStatus]Effect{}},
		entity.StatusCompleted: {Terminal: true},
		entity.StatusCancelled: {Terminal: true},
	}
	for status, st := range t {
		if st.Terminal {
			continue
		}
		st.Next[entity.StatusCancelled] = EffectRelease
		if status != entity.StatusOnHold {
			st.Next[entity.StatusOnHold] = EffectHold
		}
	}
	return t
}

func buildPO() Table {
	t := Table{
		entity.StatusDraft:       {Next: map[entity.OrderStatus]Effect{entity.StatusSubmitted: EffectNone}},
		entity.StatusSubmitted:   {Next: map[entity.OrderStatus]Effect{entity.StatusGMApproved: EffectApprove}},
		entity.StatusGMApproved:  {Next: map[entity.OrderStatus]Effect{entity.StatusGMCreatedPO: EffectNone}},
		entity.StatusGMCreatedPO: {Next: map[entity.OrderStatus]Effect{entity.StatusVendorConfirmed: EffectNone}},
		entity.StatusVendorConfirmed: {Next: map[entity.OrderStatus]Effect{
			entity.StatusPartiallyReceived: EffectReceive,
			entity.StatusCompleted:         EffectReceive,
		}},
		entity.StatusPartiallyReceived: {Next: map[entity.OrderStatus]Effect{
			entity.StatusPartiallyReceived: EffectReceive,
			entity.StatusCompleted:         EffectReceive,
		}},
		entity.StatusCompleted: {Terminal: true},
		entity.StatusCancelled: {Terminal: true},
		entity.StatusRejected:  {Terminal: true},
	}
	for _, st := range t {
		if st.Terminal {
			continue
		}
		st.Next[entity.StatusCancelled] = EffectRelease
		st.Next[entity.StatusRejected] = EffectRelease
	}
	return t
}

// For devuelve la tabla de un tipo de orden.
func For(kind entity.OrderKind) (Table, bool) {
	t, ok := tables[kind]
	return t, ok
}

// IsValidStatus indica si el estado pertenece al tipo de orden.
func IsValidStatus(kind entity.OrderKind, status entity.OrderStatus) bool {
	t, ok := tables[kind]
	if !ok {
		return false
	}
	_, ok = t[status]
	return ok
}

// IsTerminal indica si el estado no admite más transiciones.
func IsTerminal(kind entity.OrderKind, status entity.OrderStatus) bool {
	t, ok := tables[kind]
	if !ok {
		return false
	}
	return t[status].Terminal
}

// Resolve valida la arista from -> to para el tipo de orden y devuelve su efecto.
// heldFrom solo se usa cuando from es on_hold.
func Resolve(kind entity.OrderKind, from, to, heldFrom entity.OrderStatus) (Effect, error) {
	fail := &domain.TransitionError{Kind: string(kind), From: string(from), To: string(to)}
	t, ok := tables[kind]
	if !ok {
		return EffectNone, fail
	}
	st, ok := t[from]
	if !ok || st.Terminal {
		return EffectNone, fail
	}
	if eff, ok := st.Next[to]; ok {
		return eff, nil
	}
	if from == entity.StatusOnHold && heldFrom != "" && to == heldFrom {
		return EffectResume, nil
	}
	return EffectNone, fail
}

// Allowed lista los estados alcanzables desde from (para mostrar acciones disponibles).
func Allowed(kind entity.OrderKind, from, heldFrom entity.OrderStatus) []entity.OrderStatus {
	t, ok := tables[kind]
	if !ok {
		return nil
	}
	st := t[from]
	if st.Terminal {
		return nil
	}
	out := make([]entity.OrderStatus, 0, len(st.Next)+1)
	for next := range st.Next {
		out = append(out, next)
	}
	if from == entity.StatusOnHold && heldFrom != "" {
		out = append(out, heldFrom)
	}
	return out
}
