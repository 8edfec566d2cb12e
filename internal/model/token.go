package model

// Token is the response of POST /token
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// IngestRequest is the body of POST /api/v1/ingest
type IngestRequest struct {
	FilePath string `json:"file_path"`
}

// IngestResponse is returned by both ingest endpoints
type IngestResponse struct {
	Status            string `json:"status"` // success | error
	DocumentsIngested int    `json:"documents_ingested"`
	Message           string `json:"message"`
}

// Succeeded reports whether the backend accepted the document
func (r IngestResponse) Succeeded() bool {
	return r.Status == "success"
}

// HTTPValidationError is the body of a 422 response
type HTTPValidationError struct {
	Detail []ValidationDetail `json:"detail"`
}

// ValidationDetail is one field-level problem reported by the backend
type ValidationDetail struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}
