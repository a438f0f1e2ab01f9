package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/produccion-api/internal/domain"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

// Catalog especificaciones de producto en memoria.
type Catalog struct {
	mu    sync.RWMutex
	specs map[string]entity.ProductSpec
}

// NewCatalog crea el catálogo con las especificaciones dadas.
func NewCatalog(specs ...entity.ProductSpec) *Catalog {
	c := &Catalog{specs: make(map[string]entity.ProductSpec, len(specs))}
	for _, s := range specs {
		c.specs[s.ProductID] = s
	}
	return c
}

// GetSpecification devuelve domain.ErrNotFound si el producto no está en el catálogo.
func (c *Catalog) GetSpecification(_ context.Context, productID string) (*entity.ProductSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.specs[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

// IDGenerator contador diario de números de orden en memoria.
type IDGenerator struct {
	mu  sync.Mutex
	seq map[string]int64
}

// NewIDGenerator crea el contador.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{seq: map[string]int64{}}
}

// Next siguiente número de orden del día para el tipo dado.
func (g *IDGenerator) Next(_ context.Context, kind entity.OrderKind, at time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := entity.OrderSequenceKey(kind, at)
	g.seq[key]++
	return entity.FormatOrderID(kind, at, g.seq[key]), nil
}
