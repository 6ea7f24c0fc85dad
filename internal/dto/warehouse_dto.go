package dto

type CreateWarehouseRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

type UpdateWarehouseRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

type WarehouseResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}
