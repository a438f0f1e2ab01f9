package inventory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

func TestAppend_EntradaCreaSaldo(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	e.receive(t, locA, "B1", "10", time.Now())

	b := e.balance(t, locA, "B1")
	assertDec(t, "10", b.Current)
	assertDec(t, "0", b.Reserved)
	assertDec(t, "10", b.Available)
}

func TestAppend_TransactionIDConPrefijo(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	res, err := e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerInward, ProductID: wire, LocationTo: locA, Quantity: d("1"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Entry.TransactionID, "INW-"), res.Entry.TransactionID)
	assert.Len(t, res.Entry.TransactionID, len("INW-20260101-120000-ABCD"))
}

func TestAppend_IdempotenciaNoDuplica(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	in := inventory.AppendInput{
		Type:           entity.LedgerInward,
		ProductID:      wire,
		BatchID:        "B1",
		LocationTo:     locA,
		Quantity:       d("4"),
		IdempotencyKey: "grn-0001",
	}

	first, err := e.ledger.Append(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := e.ledger.Append(context.Background(), in)
	require.NoError(t, err, "un duplicado no es un error")
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Entry.TransactionID, second.Entry.TransactionID)

	assertDec(t, "4", e.balance(t, locA, "B1").Current)
	entries, err := e.repos.Ledger.ListByKey(context.Background(), entity.BalanceKey{ProductID: wire, LocationID: locA, BatchID: "B1"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppend_SalidaSinStockNoRegistraNada(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	e.receive(t, locA, "", "3", time.Now())

	_, err := e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerOutward, ProductID: wire, LocationFrom: locA, Quantity: d("-5"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	require.Len(t, ise.Shortfalls, 1)
	assertDec(t, "2", ise.Shortfalls[0].Missing)

	assertDec(t, "3", e.balance(t, locA, "").Current)
	entries, err := e.repos.Ledger.ListByKey(context.Background(), entity.BalanceKey{ProductID: wire, LocationID: locA})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAppend_SalidaNoTocaLoReservado(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	e.receive(t, locA, "B1", "10", time.Now())
	_, err := e.alloc.Reserve(context.Background(), inventory.ReserveInput{OrderID: "MO-1", Requirements: requirement("MO-1", "8")}, false)
	require.NoError(t, err)

	_, err = e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerScrap, ProductID: wire, BatchID: "B1", LocationFrom: locA, Quantity: d("-3"),
	})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	_, err = e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerScrap, ProductID: wire, BatchID: "B1", LocationFrom: locA, Quantity: d("-2"),
	})
	require.NoError(t, err)
	b := e.balance(t, locA, "B1")
	assertDec(t, "8", b.Current)
	assertDec(t, "0", b.Available)
}

func TestAppend_Transferencia(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	e.receive(t, locA, "B1", "10", time.Now())

	res, err := e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerTransfer, ProductID: wire, BatchID: "B1", LocationFrom: locA, LocationTo: locB, Quantity: d("4"),
	})
	require.NoError(t, err)
	assert.Len(t, res.Balances, 2)
	assertDec(t, "6", e.balance(t, locA, "B1").Current)
	assertDec(t, "4", e.balance(t, locB, "B1").Current)
}

func TestAppend_ValidaSignoYUbicaciones(t *testing.T) {
	cases := []struct {
		name string
		in   inventory.AppendInput
	}{
		{"tipo desconocido", inventory.AppendInput{Type: "gift", ProductID: wire, LocationTo: locA, Quantity: d("1")}},
		{"sin producto", inventory.AppendInput{Type: entity.LedgerInward, LocationTo: locA, Quantity: d("1")}},
		{"entrada negativa", inventory.AppendInput{Type: entity.LedgerInward, ProductID: wire, LocationTo: locA, Quantity: d("-1")}},
		{"entrada sin destino", inventory.AppendInput{Type: entity.LedgerProduction, ProductID: wire, LocationFrom: locA, Quantity: d("1")}},
		{"salida positiva", inventory.AppendInput{Type: entity.LedgerOutward, ProductID: wire, LocationFrom: locA, Quantity: d("1")}},
		{"consumo sin origen", inventory.AppendInput{Type: entity.LedgerConsumption, ProductID: wire, LocationTo: locA, Quantity: d("-1")}},
		{"transferencia misma ubicación", inventory.AppendInput{Type: entity.LedgerTransfer, ProductID: wire, LocationFrom: locA, LocationTo: locA, Quantity: d("1")}},
		{"transferencia negativa", inventory.AppendInput{Type: entity.LedgerTransfer, ProductID: wire, LocationFrom: locA, LocationTo: locB, Quantity: d("-1")}},
		{"ajuste en cero", inventory.AppendInput{Type: entity.LedgerAdjustment, ProductID: wire, LocationTo: locA, Quantity: d("0")}},
		{"ajuste en dos ubicaciones", inventory.AppendInput{Type: entity.LedgerAdjustment, ProductID: wire, LocationFrom: locA, LocationTo: locB, Quantity: d("1")}},
	}
	e := newEnv(inventory.BatchPolicyFIFO)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.ledger.Append(context.Background(), tc.in)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "err = %v", err)
		})
	}
}

func TestGetBalance_ClaveSinMovimientosDevuelveCeros(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	b := e.balance(t, "L9", "")
	assertDec(t, "0", b.Current)
	assertDec(t, "0", b.Available)

	_, err := e.ledger.GetBalance(context.Background(), entity.BalanceKey{ProductID: wire})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestAppend_MismoSegundoNoRechazaMovimientos(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	at := time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		res, err := e.ledger.Append(context.Background(), inventory.AppendInput{
			Type:                entity.LedgerInward,
			ProductID:           wire,
			LocationTo:          locA,
			Quantity:            d("1"),
			TransactionDateTime: at,
		})
		require.NoError(t, err, "movimiento %d", i)
		require.False(t, seen[res.Entry.TransactionID], "transaction_id repetido: %s", res.Entry.TransactionID)
		seen[res.Entry.TransactionID] = true
	}
	assertDec(t, "1000", e.balance(t, locA, "").Current)
}

func TestAppend_TransactionIDRepetidoSeRegenera(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	ids := []string{"INW-20260302-081500-AAAA", "INW-20260302-081500-AAAA", "INW-20260302-081500-BBBB"}
	inventory.SetTransactionIDGenerator(e.ledger, func(string, time.Time) string {
		id := ids[0]
		ids = ids[1:]
		return id
	})

	first, err := e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerInward, ProductID: wire, LocationTo: locA, Quantity: d("2"),
	})
	require.NoError(t, err)
	second, err := e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerInward, ProductID: wire, LocationTo: locA, Quantity: d("3"), IdempotencyKey: "grn-0002",
	})
	require.NoError(t, err)
	assert.False(t, second.Duplicate, "un choque de transaction_id no es un duplicado")

	assert.Equal(t, "INW-20260302-081500-AAAA", first.Entry.TransactionID)
	assert.Equal(t, "INW-20260302-081500-BBBB", second.Entry.TransactionID)
	assertDec(t, "5", e.balance(t, locA, "").Current)
}

func TestAppend_TransactionIDSiempreRepetidoEsConflicto(t *testing.T) {
	e := newEnv(inventory.BatchPolicyFIFO)
	inventory.SetTransactionIDGenerator(e.ledger, func(string, time.Time) string { return "INW-20260302-081500-AAAA" })

	_, err := e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerInward, ProductID: wire, LocationTo: locA, Quantity: d("2"),
	})
	require.NoError(t, err)
	_, err = e.ledger.Append(context.Background(), inventory.AppendInput{
		Type: entity.LedgerInward, ProductID: wire, LocationTo: locA, Quantity: d("3"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assertDec(t, "2", e.balance(t, locA, "").Current)
}
