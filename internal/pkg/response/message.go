package response

// MessageResponse carries a human-readable outcome of a state change.
type MessageResponse struct {
	Message string `json:"message"`
}
