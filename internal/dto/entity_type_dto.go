package dto

type CreateEntityTypeRequest struct {
	Code               string   `json:"code" validate:"required,lowercase,alphanum"`
	Name               string   `json:"name" validate:"required"`
	Description        *string  `json:"description"`
	Icon               *string  `json:"icon"`
	Color              *string  `json:"color"`
	CanContainChildren bool     `json:"can_contain_children"`
	CanBeChild         bool     `json:"can_be_child"`
	AllowedParentTypes []string `json:"allowed_parent_types"`
	AllowedChildTypes  []string `json:"allowed_child_types"`
	AvailableStatuses  []string `json:"available_statuses"`
	DefaultStatus      *string  `json:"default_status"`
	SortOrder          int      `json:"sort_order"`
}

type UpdateEntityTypeRequest struct {
	Name               *string   `json:"name"`
	Description        *string   `json:"description"`
	Icon               *string   `json:"icon"`
	Color              *string   `json:"color"`
	CanContainChildren *bool     `json:"can_contain_children"`
	CanBeChild         *bool     `json:"can_be_child"`
	AllowedParentTypes *[]string `json:"allowed_parent_types"`
	AllowedChildTypes  *[]string `json:"allowed_child_types"`
	AvailableStatuses  *[]string `json:"available_statuses"`
	DefaultStatus      *string   `json:"default_status"`
	SortOrder          *int      `json:"sort_order"`
	IsActive           *bool     `json:"is_active"`
}

type EntityTypeResponse struct {
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	Description        *string  `json:"description"`
	Icon               *string  `json:"icon"`
	Color              *string  `json:"color"`
	CanContainChildren bool     `json:"can_contain_children"`
	CanBeChild         bool     `json:"can_be_child"`
	AllowedParentTypes []string `json:"allowed_parent_types"`
	AllowedChildTypes  []string `json:"allowed_child_types"`
	AvailableStatuses  []string `json:"available_statuses"`
	DefaultStatus      *string  `json:"default_status"`
	SortOrder          int      `json:"sort_order"`
	IsActive           bool     `json:"is_active"`
	IsBuiltin          bool     `json:"is_builtin"`
}
