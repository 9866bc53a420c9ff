package model

const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

type SetupResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"taskId,omitempty"`
	Message string `json:"message,omitempty"`
}

type ProgressResponse struct {
	Success  bool     `json:"success"`
	Progress float64  `json:"progress"`
	Status   string   `json:"status"`
	Step     string   `json:"step,omitempty"`
	Logs     []string `json:"logs"`
	Error    string   `json:"error,omitempty"`
}

// ProgressEvent is one frame on the progress websocket.
type ProgressEvent struct {
	Type     string            `json:"type"`
	Line     string            `json:"line,omitempty"`
	Progress *ProgressResponse `json:"progress,omitempty"`
}

type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

type VerifyReport struct {
	Passed bool          `json:"passed"`
	Checks []CheckResult `json:"checks"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
