package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	"github.com/jhoicas/produccion-api/internal/domain/inventory"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func coilSpec() *entity.ProductSpec {
	return &entity.ProductSpec{
		ProductID:      "SPR-001",
		MaterialID:     "RM-WIRE-2MM",
		MaterialType:   entity.MaterialCoil,
		WeightKg:       dec("0.05"),
		WireDiameterMm: dec("2.0"),
		ScrapAllowance: dec("0.1"),
	}
}

// 100 piezas * 0.05 kg * 1.1 = 5.5 kg
func TestCompute_Coil(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.RequireFromString("0.02"))

	req, err := calc.Compute("MO-20261015-0001", decimal.NewFromInt(100), coilSpec())
	require.NoError(t, err)
	assert.True(t, req.RequiredQuantity.Equal(decimal.RequireFromString("5.5")), "got %s", req.RequiredQuantity)
	assert.True(t, req.BaseQuantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, entity.UnitKg, req.Unit)
	assert.Equal(t, "RM-WIRE-2MM", req.MaterialID)
}

func TestCompute_UsaMermaPorDefecto(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.RequireFromString("0.02"))
	spec := coilSpec()
	spec.ScrapAllowance = nil

	req, err := calc.Compute("MO-1", decimal.NewFromInt(100), spec)
	require.NoError(t, err)
	assert.True(t, req.RequiredQuantity.Equal(decimal.RequireFromString("5.1")), "got %s", req.RequiredQuantity)
}

func TestCompute_Determinista(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.Zero)
	a, err := calc.Compute("MO-1", decimal.NewFromInt(333), coilSpec())
	require.NoError(t, err)
	b, err := calc.Compute("MO-1", decimal.NewFromInt(333), coilSpec())
	require.NoError(t, err)
	assert.True(t, a.RequiredQuantity.Equal(b.RequiredQuantity))
}

func TestCompute_Sheet(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.Zero)
	spec := &entity.ProductSpec{
		ProductID:      "STP-010",
		MaterialID:     "RM-SHEET-1.5",
		MaterialType:   entity.MaterialSheet,
		ThicknessMm:    dec("1.5"),
		LengthMm:       dec("50"),
		BreadthMm:      dec("40"),
		SheetLengthMm:  dec("1000"),
		SheetBreadthMm: dec("500"),
		ScrapAllowance: dec("0.05"),
	}
	// 20 * 12 = 240 piezas por hoja; 1000 / 240 = 4.166667 hojas; * 1.05 = 4.375 -> 5 hojas
	req, err := calc.Compute("MO-2", decimal.NewFromInt(1000), spec)
	require.NoError(t, err)
	assert.Equal(t, 240, req.PiecesPerSheet)
	assert.Equal(t, entity.UnitSheets, req.Unit)
	assert.True(t, req.RequiredQuantity.Equal(decimal.NewFromInt(5)), "got %s", req.RequiredQuantity)
}

func TestCompute_EspecificacionIncompleta(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.Zero)

	cases := map[string]func(s *entity.ProductSpec){
		"weight_kg":        func(s *entity.ProductSpec) { s.WeightKg = nil },
		"wire_diameter_mm": func(s *entity.ProductSpec) { s.WireDiameterMm = nil },
		"material_type":    func(s *entity.ProductSpec) { s.MaterialType = "" },
		"material_id":      func(s *entity.ProductSpec) { s.MaterialID = "" },
	}
	for attr, mutate := range cases {
		t.Run(attr, func(t *testing.T) {
			spec := coilSpec()
			mutate(spec)
			_, err := calc.Compute("MO-3", decimal.NewFromInt(10), spec)
			require.ErrorIs(t, err, domain.ErrIncompleteSpecification)
			var se *domain.SpecificationError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, attr, se.Attribute)
		})
	}

	sheet := &entity.ProductSpec{ProductID: "STP-011", MaterialID: "RM-S", MaterialType: entity.MaterialSheet}
	_, err := calc.Compute("MO-4", decimal.NewFromInt(10), sheet)
	assert.ErrorIs(t, err, domain.ErrIncompleteSpecification)
}

func TestCompute_PiezaMayorQueLaHoja(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.Zero)
	spec := &entity.ProductSpec{
		ProductID: "STP-012", MaterialID: "RM-S", MaterialType: entity.MaterialSheet,
		ThicknessMm: dec("1"), LengthMm: dec("1200"), BreadthMm: dec("10"),
		SheetLengthMm: dec("1000"), SheetBreadthMm: dec("500"),
	}
	_, err := calc.Compute("MO-5", decimal.NewFromInt(10), spec)
	assert.ErrorIs(t, err, domain.ErrIncompleteSpecification)
}

func TestCompute_CantidadInvalida(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.Zero)
	_, err := calc.Compute("MO-6", decimal.Zero, coilSpec())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// 7 * 0.0123456 * 1.15 = 0.09938208 kg, se guarda como 0.099383
func TestCompute_CoilRedondeaHaciaArribaASeisDecimales(t *testing.T) {
	calc := inventory.NewRMCalculator(decimal.Zero)
	spec := coilSpec()
	spec.WeightKg = dec("0.0123456")
	spec.ScrapAllowance = dec("0.15")

	req, err := calc.Compute("MO-1", decimal.NewFromInt(7), spec)
	require.NoError(t, err)
	assert.True(t, req.RequiredQuantity.Equal(decimal.RequireFromString("0.099383")), "got %s", req.RequiredQuantity)
	assert.LessOrEqual(t, -req.RequiredQuantity.Exponent(), int32(6))
}
