package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/rs/zerolog/log"
)

const scalarPage = `<!doctype html>
<html>
  <head>
    <title>hello-agent API</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
  </head>
  <body>
    <script id="api-reference" data-url="/openapi.json"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
  </body>
</html>
`

var (
	openAPIOnce sync.Once
	openAPIDoc  []byte
	openAPIErr  error
)

func schemaFor(v interface{}) *jsonschema.Schema {
	r := jsonschema.Reflector{DoNotReference: true, Anonymous: true, ExpandedStruct: true}
	s := r.Reflect(v)
	s.Version = ""
	return s
}

func jsonContent(schema *jsonschema.Schema) map[string]any {
	return map[string]any{
		"application/json": map[string]any{"schema": schema},
	}
}

func buildOpenAPI() ([]byte, error) {
	errorResponse := func(desc string) map[string]any {
		return map[string]any{"description": desc, "content": jsonContent(schemaFor(&ErrorResponse{}))}
	}
	doc := map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "hello-agent",
			"version": "1.0.0",
			"description": "A minimal tool-augmented conversational agent. " +
				"Each request runs the model and tool loop once and returns the final answer.",
		},
		"paths": map[string]any{
			"/chat": map[string]any{
				"post": map[string]any{
					"summary":     "Send a message to the agent",
					"operationId": "chat",
					"requestBody": map[string]any{
						"required": true,
						"content":  jsonContent(schemaFor(&ChatRequest{})),
					},
					"responses": map[string]any{
						"200": map[string]any{"description": "Final answer", "content": jsonContent(schemaFor(&ChatResponse{}))},
						"400": errorResponse("Malformed request"),
						"429": errorResponse("Rate limited"),
						"500": errorResponse("Tool failure or iteration cap reached"),
						"502": errorResponse("Model invocation failed"),
						"503": errorResponse("Request cancelled"),
					},
				},
			},
			"/healthz": map[string]any{
				"get": map[string]any{
					"summary":     "Liveness probe",
					"operationId": "health",
					"responses": map[string]any{
						"200": map[string]any{"description": "Server is up", "content": jsonContent(schemaFor(&HealthResponse{}))},
					},
				},
			},
		},
	}
	return json.MarshalIndent(doc, "", "  ")
}

func handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	openAPIOnce.Do(func() {
		openAPIDoc, openAPIErr = buildOpenAPI()
	})
	if openAPIErr != nil {
		log.Error().Err(openAPIErr).Msg("failed to build OpenAPI document")
		writeError(w, http.StatusInternalServerError, "failed to build OpenAPI document")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIDoc)
}

func handleScalar(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(scalarPage))
}
