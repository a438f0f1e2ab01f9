package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

func TestFormatOrderID_UsaFechaUTC(t *testing.T) {
	bogota := time.FixedZone("COT", -5*60*60)
	tests := []struct {
		name string
		at   time.Time
		key  string
		id   string
	}{
		{"misma fecha", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), "MO-20260301", "MO-20260301-0007"},
		{"noche local ya es el día siguiente en UTC", time.Date(2026, 3, 1, 22, 30, 0, 0, bogota), "MO-20260302", "MO-20260302-0007"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, entity.OrderSequenceKey(entity.OrderKindMO, tt.at))
			assert.Equal(t, tt.id, entity.FormatOrderID(entity.OrderKindMO, tt.at, 7))
		})
	}
}
