package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// CatalogRepo lectura de especificaciones desde product_specs. El catálogo se administra
// fuera de este servicio.
type CatalogRepo struct {
	q Querier
}

// NewCatalogRepository construye el adaptador.
func NewCatalogRepository(q Querier) *CatalogRepo {
	return &CatalogRepo{q: q}
}

// GetSpecification devuelve domain.ErrNotFound si el producto no tiene especificación.
func (r *CatalogRepo) GetSpecification(ctx context.Context, productID string) (*entity.ProductSpec, error) {
	query := `
		SELECT product_id, material_id, material_type, weight_kg, wire_diameter_mm, thickness_mm,
		       length_mm, breadth_mm, sheet_length_mm, sheet_breadth_mm, scrap_allowance, spec_version
		FROM product_specs WHERE product_id = $1`
	var s entity.ProductSpec
	err := r.q.QueryRow(ctx, query, productID).Scan(
		&s.ProductID, &s.MaterialID, &s.MaterialType, &s.WeightKg, &s.WireDiameterMm, &s.ThicknessMm,
		&s.LengthMm, &s.BreadthMm, &s.SheetLengthMm, &s.SheetBreadthMm, &s.ScrapAllowance, &s.SpecVersion,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product spec: %w", err)
	}
	return &s, nil
}

// SequenceIDGenerator números de orden con un contador diario en order_sequences.
// El upsert es atómico, así que dos réplicas nunca obtienen el mismo número.
type SequenceIDGenerator struct {
	q Querier
}

// NewSequenceIDGenerator construye el generador.
func NewSequenceIDGenerator(q Querier) *SequenceIDGenerator {
	return &SequenceIDGenerator{q: q}
}

func (g *SequenceIDGenerator) Next(ctx context.Context, kind entity.OrderKind, at time.Time) (string, error) {
	query := `
		INSERT INTO order_sequences (seq_key, value) VALUES ($1, 1)
		ON CONFLICT (seq_key) DO UPDATE SET value = order_sequences.value + 1
		RETURNING value`
	var seq int64
	if err := g.q.QueryRow(ctx, query, entity.OrderSequenceKey(kind, at)).Scan(&seq); err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return entity.FormatOrderID(kind, at, seq), nil
}
