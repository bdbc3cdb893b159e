package todo

import (
	_ "embed"
	"net/http"
)

//go:embed apidocs/openapi.json
var openAPIDocument []byte

//go:embed apidocs/docs.html
var docsPage []byte

// OpenAPI serves the API description.
func OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(openAPIDocument)
}

// Docs serves an interactive viewer for the API description.
func Docs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(docsPage)
}
