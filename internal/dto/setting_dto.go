package dto

type SettingResponse struct {
	Key         string  `json:"key"`
	Value       string  `json:"value"`
	Description *string `json:"description"`
}

type UpdateSettingRequest struct {
	Value string `json:"value"`
}

// EmailExportRequest asks for a CSV export to be generated and emailed.
type EmailExportRequest struct {
	ToEmail    string `json:"to_email" validate:"required,email"`
	EntityType string `json:"entity_type"`
}
