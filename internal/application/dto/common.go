package dto

// ErrorResponse cuerpo de error HTTP. Details lleva información estructurada cuando la hay
// (faltantes de stock, descuadre de saldos).
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
