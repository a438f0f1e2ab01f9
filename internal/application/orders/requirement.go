package orders

import (
	"context"
	"errors"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
	domaininv "github.com/jhoicas/produccion-api/internal/domain/inventory"
)

// moRequirement requerimiento de la MO con la especificación vigente. Si el producto ya no tiene
// especificación la orden sigue existiendo: se informa como especificación incompleta.
func moRequirement(ctx context.Context, catalog Catalog, calc *domaininv.RMCalculator, order *entity.Order) (entity.RawMaterialRequirement, error) {
	spec, err := catalog.GetSpecification(ctx, order.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		return entity.RawMaterialRequirement{}, &domain.SpecificationError{ProductID: order.ProductID, Attribute: "specification"}
	}
	if err != nil {
		return entity.RawMaterialRequirement{}, err
	}
	return calc.Compute(order.OrderID, order.Quantity, spec)
}
