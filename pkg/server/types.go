package server

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message  *string `json:"message" jsonschema:"description=The user message"`
	ThreadID string  `json:"thread_id,omitempty" jsonschema:"description=Opaque conversation identifier chosen by the client"`
}

// ChatResponse is the body of a successful POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
