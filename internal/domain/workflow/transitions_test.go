package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/workflow"
)

func TestResolve_CaminoFelizMO(t *testing.T) {
	cases := []struct {
		from, to entity.OrderStatus
		effect   workflow.Effect
	}{
		{entity.StatusDraft, entity.StatusSubmitted, workflow.EffectNone},
		{entity.StatusSubmitted, entity.StatusGMApproved, workflow.EffectApprove},
		{entity.StatusGMApproved, entity.StatusRMAllocated, workflow.EffectReserve},
		{entity.StatusRMAllocated, entity.StatusInProgress, workflow.EffectNone},
		{entity.StatusInProgress, entity.StatusCompleted, workflow.EffectConsume},
	}
	for _, tc := range cases {
		eff, err := workflow.Resolve(entity.OrderKindMO, tc.from, tc.to, "")
		require.NoError(t, err, "%s -> %s", tc.from, tc.to)
		assert.Equal(t, tc.effect, eff, "%s -> %s", tc.from, tc.to)
	}
}

func TestResolve_CaminoFelizPO(t *testing.T) {
	path := []entity.OrderStatus{
		entity.StatusDraft, entity.StatusSubmitted, entity.StatusGMApproved, entity.StatusGMCreatedPO,
		entity.StatusVendorConfirmed, entity.StatusPartiallyReceived, entity.StatusCompleted,
	}
	for i := 0; i+1 < len(path); i++ {
		_, err := workflow.Resolve(entity.OrderKindPO, path[i], path[i+1], "")
		require.NoError(t, err, "%s -> %s", path[i], path[i+1])
	}
	eff, err := workflow.Resolve(entity.OrderKindPO, entity.StatusVendorConfirmed, entity.StatusCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.EffectReceive, eff)
}

func TestResolve_CancelarDesdeCualquierNoTerminal(t *testing.T) {
	for _, kind := range []entity.OrderKind{entity.OrderKindMO, entity.OrderKindPO} {
		table, ok := workflow.For(kind)
		require.True(t, ok)
		for status, st := range table {
			eff, err := workflow.Resolve(kind, status, entity.StatusCancelled, "")
			if st.Terminal {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition, "%s %s es terminal", kind, status)
				continue
			}
			require.NoError(t, err, "%s %s -> cancelled", kind, status)
			assert.Equal(t, workflow.EffectRelease, eff)
		}
	}
}

// Recorre todas las combinaciones de estados: lo que no está en la tabla falla con ErrInvalidTransition.
func TestResolve_AristasFueraDeTablaFallan(t *testing.T) {
	for _, kind := range []entity.OrderKind{entity.OrderKindMO, entity.OrderKindPO} {
		table, _ := workflow.For(kind)
		for from, st := range table {
			for to := range table {
				_, inTable := st.Next[to]
				_, err := workflow.Resolve(kind, from, to, "")
				if inTable && !st.Terminal {
					assert.NoError(t, err, "%s %s -> %s", kind, from, to)
					continue
				}
				require.Error(t, err, "%s %s -> %s", kind, from, to)
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				var te *domain.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, string(from), te.From)
				assert.Equal(t, string(to), te.To)
			}
		}
	}
}

func TestResolve_OnHoldSoloVuelveAlEstadoPrevio(t *testing.T) {
	eff, err := workflow.Resolve(entity.OrderKindMO, entity.StatusRMAllocated, entity.StatusOnHold, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.EffectHold, eff)

	eff, err = workflow.Resolve(entity.OrderKindMO, entity.StatusOnHold, entity.StatusRMAllocated, entity.StatusRMAllocated)
	require.NoError(t, err)
	assert.Equal(t, workflow.EffectResume, eff)

	_, err = workflow.Resolve(entity.OrderKindMO, entity.StatusOnHold, entity.StatusInProgress, entity.StatusRMAllocated)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestResolve_RechazoSoloEnPO(t *testing.T) {
	_, err := workflow.Resolve(entity.OrderKindMO, entity.StatusSubmitted, entity.StatusRejected, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	eff, err := workflow.Resolve(entity.OrderKindPO, entity.StatusSubmitted, entity.StatusRejected, "")
	require.NoError(t, err)
	assert.Equal(t, workflow.EffectRelease, eff)
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, workflow.IsValidStatus(entity.OrderKindMO, entity.StatusOnHold))
	assert.False(t, workflow.IsValidStatus(entity.OrderKindPO, entity.StatusOnHold))
	assert.False(t, workflow.IsValidStatus(entity.OrderKindMO, entity.StatusVendorConfirmed))
	assert.True(t, workflow.IsTerminal(entity.OrderKindPO, entity.StatusRejected))
}
