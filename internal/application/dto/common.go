package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// MaxAllowed solo en ORDER_CONSTRAINT: cuánto admite aún la línea.
	MaxAllowed *int64 `json:"max_allowed,omitempty"`
}
