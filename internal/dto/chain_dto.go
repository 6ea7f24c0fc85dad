package dto

// SubmitTokenRequest carries one decoded barcode (or typed quantity) from the
// scanner surface into the chain engine.
type SubmitTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// Chain outcome statuses.
const (
	ChainAdvanced  = "advanced"
	ChainCompleted = "completed"
	ChainRejected  = "rejected"
	ChainCancelled = "cancelled"
)

// ChainStateResponse is the externally visible snapshot of a chain session.
type ChainStateResponse struct {
	Phase          string  `json:"phase"`
	EntityID       *string `json:"entity_id,omitempty"`
	EntityBarcode  *string `json:"entity_barcode,omitempty"`
	EntityType     *string `json:"entity_type,omitempty"`
	Action         string  `json:"action,omitempty"`
	PendingBarcode string  `json:"pending_barcode,omitempty"`
	TargetBarcode  *string `json:"target_barcode,omitempty"`
}

// ChainOutcome is returned for every submitted token.
type ChainOutcome struct {
	Status  string              `json:"status"` // advanced | completed | rejected | cancelled
	Message string              `json:"message,omitempty"`
	State   ChainStateResponse  `json:"state"`
	Result  *EntityResponse     `json:"result,omitempty"`
}
