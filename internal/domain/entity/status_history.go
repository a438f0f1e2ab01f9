package entity

import "time"

// StatusHistory entrada inmutable del historial de estados de una orden.
// Se crea en la misma transacción que el cambio de estado.
type StatusHistory struct {
	ID         string
	OrderID    string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	ChangedBy  string
	ChangedAt  time.Time
	Notes      string
}
