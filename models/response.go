package models

// Error codes returned in ErrorResponse.Error
const (
	ErrStartFailed     = "Failed to start Python process"
	ErrGenerateFailed  = "Failed to generate insights"
	ErrOutputMissing   = "Output file not created"
	ErrInterrupted     = "Insight generation interrupted"
	ErrLockFailed      = "Failed to acquire output lock"
	ErrInternal        = "Internal server error"
	NoErrorDetails     = "No error details available"
	OutputMissingCause = "The Python script completed but did not create the output file"
	GenericErrorDetail = "An error occurred"
)

// InsightResponse is returned when the script succeeded and left its artifact behind
type InsightResponse struct {
	Success bool   `json:"success" example:"true"`
	Output  string `json:"output"`
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse is the health-check payload
type MessageResponse struct {
	Message string `json:"message" example:"API is working"`
}

// StatusResponse reports readiness of the gateway dependencies
type StatusResponse struct {
	Status string `json:"status" example:"UP"`
	Error  string `json:"error,omitempty"`
}
