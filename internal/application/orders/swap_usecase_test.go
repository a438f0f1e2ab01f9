package orders_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-api/internal/application/orders"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

func (e *env) newMOWithPriority(t *testing.T, priority string) *entity.Order {
	t.Helper()
	o, err := e.create.Create(context.Background(), orders.CreateOrderInput{
		Kind: entity.OrderKindMO, ProductID: spring, Quantity: d("100"), Priority: priority, CreatedBy: "planner",
	})
	require.NoError(t, err)
	return o
}

func TestSwap_TomaPrimeroDeLaMenorPrioridad(t *testing.T) {
	e := newEnv(orders.TransitionConfig{})
	ctx := context.Background()
	e.stock(t, "11")
	low := e.newMOWithPriority(t, entity.PriorityLow)
	e.move(t, low.OrderID, entity.StatusSubmitted, entity.StatusGMApproved, entity.StatusRMAllocated)
	medium := e.newMOWithPriority(t, entity.PriorityMedium)
	e.move(t, medium.OrderID, entity.StatusSubmitted, entity.StatusGMApproved, entity.StatusRMAllocated)
	urgent := e.newMOWithPriority(t, entity.PriorityUrgent)
	e.move(t, urgent.OrderID, entity.StatusSubmitted, entity.StatusGMApproved)
	e.publisher.events = nil

	res, err := e.swap.Swap(ctx, orders.SwapInput{OrderID: urgent.OrderID, ActorID: "gm"})
	require.NoError(t, err)
	assertDec(t, "5.5", res.Required)
	assertDec(t, "0", res.Free)
	assertDec(t, "5.5", res.Swapped)
	assert.Empty(t, res.Shortfalls)
	require.Len(t, res.Moves, 1)
	assert.Equal(t, low.OrderID, res.Moves[0].FromOrderID)
	assert.Equal(t, urgent.OrderID, res.Moves[0].Allocation.OrderID)

	// la reserva cambia de dueño, el saldo no
	b := e.balance(t)
	assertDec(t, "11", b.Reserved)
	assertDec(t, "0", b.Available)

	lowSummary, err := e.query.Allocations(ctx, low.OrderID)
	require.NoError(t, err)
	assertDec(t, "0", lowSummary.TotalActive)
	assertDec(t, "5.5", lowSummary.TotalReleased)
	assert.False(t, lowSummary.FullyAllocated)

	mediumSummary, err := e.query.Allocations(ctx, medium.OrderID)
	require.NoError(t, err)
	assertDec(t, "5.5", mediumSummary.TotalActive)

	got, err := e.query.Get(ctx, urgent.OrderID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusGMApproved, got.Status)

	require.Len(t, e.publisher.events, 2)
	assert.Equal(t, orders.EventAllocationsSwapped, e.publisher.events[0].Type)
	assert.Equal(t, urgent.OrderID, e.publisher.events[0].OrderID)
	assert.Equal(t, low.OrderID, e.publisher.events[1].OrderID)

	// ya cubierta: la asignación posterior no reserva de más
	e.move(t, urgent.OrderID, entity.StatusRMAllocated)
	urgentSummary, err := e.query.Allocations(ctx, urgent.OrderID)
	require.NoError(t, err)
	assertDec(t, "5.5", urgentSummary.TotalActive)
	assert.True(t, urgentSummary.FullyAllocated)
	require.Len(t, urgentSummary.Allocations, 1)
}

func TestSwap_StockLibreCubreSinCeder(t *testing.T) {
	e := newEnv(orders.TransitionConfig{})
	e.stock(t, "20")
	low := e.newMOWithPriority(t, entity.PriorityLow)
	e.move(t, low.OrderID, entity.StatusSubmitted, entity.StatusGMApproved, entity.StatusRMAllocated)
	high := e.newMOWithPriority(t, entity.PriorityHigh)
	e.move(t, high.OrderID, entity.StatusSubmitted, entity.StatusGMApproved)
	e.publisher.events = nil

	res, err := e.swap.Swap(context.Background(), orders.SwapInput{OrderID: high.OrderID, ActorID: "gm"})
	require.NoError(t, err)
	assert.Empty(t, res.Moves)
	assertDec(t, "14.5", res.Free)
	assert.Empty(t, e.publisher.events)
}

func TestSwap_SinCandidatosEsStockInsuficiente(t *testing.T) {
	e := newEnv(orders.TransitionConfig{})
	e.stock(t, "6")
	first := e.newMOWithPriority(t, entity.PriorityHigh)
	e.move(t, first.OrderID, entity.StatusSubmitted, entity.StatusGMApproved, entity.StatusRMAllocated)
	second := e.newMOWithPriority(t, entity.PriorityHigh)
	e.move(t, second.OrderID, entity.StatusSubmitted, entity.StatusGMApproved)

	_, err := e.swap.Swap(context.Background(), orders.SwapInput{OrderID: second.OrderID, ActorID: "gm"})
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	require.Len(t, insufficient.Shortfalls, 1)
	assertDec(t, "5", insufficient.Shortfalls[0].Missing)
	assertDec(t, "5.5", e.balance(t).Reserved)
}

func TestSwap_EnProduccionNoCede(t *testing.T) {
	e := newEnv(orders.TransitionConfig{})
	e.stock(t, "5.5")
	low := e.newMOWithPriority(t, entity.PriorityLow)
	e.move(t, low.OrderID, entity.StatusSubmitted, entity.StatusGMApproved, entity.StatusRMAllocated, entity.StatusInProgress)
	urgent := e.newMOWithPriority(t, entity.PriorityUrgent)
	e.move(t, urgent.OrderID, entity.StatusSubmitted, entity.StatusGMApproved)

	_, err := e.swap.Swap(context.Background(), orders.SwapInput{OrderID: urgent.OrderID, ActorID: "gm"})
	var insufficient *domain.InsufficientStockError
	assert.True(t, errors.As(err, &insufficient))
}

func TestSwap_OrdenNoElegible(t *testing.T) {
	e := newEnv(orders.TransitionConfig{})
	ctx := context.Background()

	draft := e.newMOWithPriority(t, entity.PriorityUrgent)
	_, err := e.swap.Swap(ctx, orders.SwapInput{OrderID: draft.OrderID})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	po := newPO(t, e, "50")
	_, err = e.swap.Swap(ctx, orders.SwapInput{OrderID: po.OrderID})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = e.swap.Swap(ctx, orders.SwapInput{OrderID: "MO-NOPE"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestAvailability_CuentaStockLibreYCedible(t *testing.T) {
	e := newEnv(orders.TransitionConfig{})
	ctx := context.Background()
	e.stock(t, "7")
	low := e.newMOWithPriority(t, entity.PriorityLow)
	e.move(t, low.OrderID, entity.StatusSubmitted, entity.StatusGMApproved, entity.StatusRMAllocated)
	high := e.newMOWithPriority(t, entity.PriorityHigh)
	peer := e.newMOWithPriority(t, entity.PriorityLow)

	av, err := e.query.Availability(ctx, high.OrderID)
	require.NoError(t, err)
	assert.True(t, av.Available)
	require.Len(t, av.Materials, 1)
	m := av.Materials[0]
	assertDec(t, "5.5", m.Required)
	assertDec(t, "0", m.Allocated)
	assertDec(t, "1.5", m.InStock)
	assertDec(t, "5.5", m.Swappable)
	assertDec(t, "7", m.Total)
	assertDec(t, "0", m.Shortage)
	assert.Equal(t, []string{low.OrderID}, m.SwappableFrom)

	// misma prioridad: no puede tomar de la otra MO
	av, err = e.query.Availability(ctx, peer.OrderID)
	require.NoError(t, err)
	assert.False(t, av.Available)
	assertDec(t, "4", av.Materials[0].Shortage)
	assert.Empty(t, av.Materials[0].SwappableFrom)

	// la consulta no reserva
	assertDec(t, "5.5", e.balance(t).Reserved)

	po := newPO(t, e, "50")
	_, err = e.query.Availability(ctx, po.OrderID)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
