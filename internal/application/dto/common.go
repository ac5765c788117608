package dto

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest paginación para listados del ledger (page es 1-based).
type PageRequest struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"pageSize" validate:"omitempty,min=1"`
}

// DefaultPage aplica valores por defecto y recorta el tamaño máximo.
func (p *PageRequest) DefaultPage() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// ErrorResponse cuerpo de error HTTP. Code es un discriminante estable.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
