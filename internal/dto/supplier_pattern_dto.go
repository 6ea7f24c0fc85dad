package dto

type CreateSupplierPatternRequest struct {
	Name        string  `json:"name" validate:"required"`
	Pattern     string  `json:"pattern" validate:"required"`
	SearchURL   string  `json:"search_url" validate:"required,contains={barcode}"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

type UpdateSupplierPatternRequest struct {
	Name        *string `json:"name"`
	Pattern     *string `json:"pattern"`
	SearchURL   *string `json:"search_url" validate:"omitempty,contains={barcode}"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
}

type SupplierPatternResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Pattern     string  `json:"pattern"`
	SearchURL   string  `json:"search_url"`
	Description *string `json:"description"`
	Enabled     bool    `json:"enabled"`
}
