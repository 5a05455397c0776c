package response

// APIResponse is the envelope returned by every HTTP API. The presentation
// layer only inspects Success and Error; Details carries the raw upstream
// gateway body when a gateway call failed.
type APIResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// OK returns a successful response.
func OK() *APIResponse {
	return &APIResponse{Success: true}
}

// Error returns a failure response with a message.
func Error(msg string) *APIResponse {
	return &APIResponse{Success: false, Error: msg}
}

// ErrorDetails returns a failure response carrying the upstream error body.
func ErrorDetails(msg string, details any) *APIResponse {
	return &APIResponse{Success: false, Error: msg, Details: details}
}
