package handlers

import (
	"html/template"
	"net/http"

	ds "github.com/starfederation/datastar-go/datastar"
)

type Renderer interface {
	Templates() *template.Template
	Handlers() map[string]func(w http.ResponseWriter, r *http.Request)
	Data(clientID string) map[string]interface{}
	// OnTick patches whatever changed for clientID since its last tick.
	OnTick(sse *ds.ServerSentEventGenerator, clientID string) error
}
