package http

import (
	"github.com/jhoicas/produccion-api/internal/application/dto"
	"github.com/jhoicas/produccion-api/internal/application/inventory"
	"github.com/jhoicas/produccion-api/internal/application/orders"
	"github.com/jhoicas/produccion-api/internal/domain/entity"
)

func toOrderResponse(o *entity.Order, next []entity.OrderStatus) dto.OrderResponse {
	transitions := make([]string, 0, len(next))
	for _, s := range next {
		transitions = append(transitions, string(s))
	}
	return dto.OrderResponse{
		ID:                   o.ID,
		OrderID:              o.OrderID,
		Kind:                 string(o.Kind),
		ProductID:            o.ProductID,
		MaterialID:           o.MaterialID,
		Quantity:             o.Quantity,
		ReceivedQuantity:     o.ReceivedQuantity,
		Status:               string(o.Status),
		HeldFrom:             string(o.HeldFrom),
		Priority:             o.Priority,
		PlannedStart:         o.PlannedStart,
		PlannedEnd:           o.PlannedEnd,
		PreferredLocationID:  o.PreferredLocationID,
		PreferredBatchID:     o.PreferredBatchID,
		AllowPartial:         o.AllowPartial,
		RejectionReason:      o.RejectionReason,
		CreatedBy:            o.CreatedBy,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		AvailableTransitions: transitions,
	}
}

func toHistoryDTO(h *entity.StatusHistory) dto.StatusHistoryDTO {
	return dto.StatusHistoryDTO{
		ID:         h.ID,
		OrderID:    h.OrderID,
		FromStatus: string(h.FromStatus),
		ToStatus:   string(h.ToStatus),
		ChangedBy:  h.ChangedBy,
		ChangedAt:  h.ChangedAt,
		Notes:      h.Notes,
	}
}

func toAllocationDTOs(list []*entity.Allocation) []dto.AllocationDTO {
	out := make([]dto.AllocationDTO, 0, len(list))
	for _, a := range list {
		out = append(out, dto.AllocationDTO{
			ID:               a.ID,
			OrderID:          a.OrderID,
			ProductID:        a.ProductID,
			LocationID:       a.LocationID,
			BatchID:          a.BatchID,
			ReservedQuantity: a.ReservedQuantity,
			Status:           a.Status,
			AllocatedAt:      a.AllocatedAt,
			AllocatedBy:      a.AllocatedBy,
			ClosedAt:         a.ClosedAt,
		})
	}
	return out
}

func toLedgerEntryDTO(e *entity.LedgerEntry) *dto.LedgerEntryDTO {
	if e == nil {
		return nil
	}
	out := &dto.LedgerEntryDTO{
		ID:                  e.ID,
		TransactionID:       e.TransactionID,
		Type:                e.Type,
		ProductID:           e.ProductID,
		BatchID:             e.BatchID,
		LocationFrom:        e.LocationFrom,
		LocationTo:          e.LocationTo,
		Quantity:            e.Quantity,
		ReferenceType:       e.ReferenceType,
		ReferenceID:         e.ReferenceID,
		Notes:               e.Notes,
		CreatedBy:           e.CreatedBy,
		TransactionDateTime: e.TransactionDateTime,
	}
	if e.IdempotencyKey != nil {
		out.IdempotencyKey = *e.IdempotencyKey
	}
	return out
}

func toBalanceResponse(b *entity.StockBalance) dto.BalanceResponse {
	return dto.BalanceResponse{
		ProductID:  b.ProductID,
		LocationID: b.LocationID,
		BatchID:    b.BatchID,
		Current:    b.CurrentQuantity,
		Reserved:   b.ReservedQuantity,
		Available:  b.Available(),
	}
}

func toRebuildResponse(r *inventory.RebuildReport) dto.RebuildResponse {
	return dto.RebuildResponse{
		ProductID:        r.Key.ProductID,
		LocationID:       r.Key.LocationID,
		BatchID:          r.Key.BatchID,
		CachedCurrent:    r.CachedCurrent,
		LedgerCurrent:    r.LedgerCurrent,
		CachedReserved:   r.CachedReserved,
		AllocatedReserve: r.AllocatedReserve,
		Entries:          r.Entries,
		Consistent:       r.Consistent(),
	}
}

func toAvailabilityResponse(av *orders.Availability) dto.AvailabilityResponse {
	out := dto.AvailabilityResponse{
		OrderID:   av.OrderID,
		Available: av.Available,
		Materials: make([]dto.MaterialAvailabilityDTO, 0, len(av.Materials)),
	}
	for _, m := range av.Materials {
		out.Materials = append(out.Materials, dto.MaterialAvailabilityDTO{
			MaterialID:    m.MaterialID,
			Required:      m.Required,
			Allocated:     m.Allocated,
			InStock:       m.InStock,
			Swappable:     m.Swappable,
			Total:         m.Total,
			Shortage:      m.Shortage,
			Available:     m.Available,
			SwappableFrom: m.SwappableFrom,
		})
	}
	return out
}

func toSwapResponse(r *orders.SwapResult) dto.SwapResponse {
	out := dto.SwapResponse{
		OrderID:    r.OrderID,
		MaterialID: r.MaterialID,
		Required:   r.Required,
		Held:       r.Held,
		Free:       r.Free,
		Swapped:    r.Swapped,
		Moves:      make([]dto.SwapMoveDTO, 0, len(r.Moves)),
	}
	for _, m := range r.Moves {
		out.Moves = append(out.Moves, dto.SwapMoveDTO{
			FromOrderID: m.FromOrderID,
			Quantity:    m.Quantity,
			Allocation:  toAllocationDTOs([]*entity.Allocation{m.Allocation})[0],
		})
	}
	if len(r.Shortfalls) > 0 {
		out.Shortfalls = r.Shortfalls
	}
	return out
}
