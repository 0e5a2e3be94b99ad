// Package v0 provides the REST API handlers for transformer registry access.
package v0

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-transform-registry/internal/api/common"
	"github.com/stacklok/toolhive-transform-registry/internal/registry"
	"github.com/stacklok/toolhive-transform-registry/internal/transform"
	"github.com/stacklok/toolhive-transform-registry/internal/versions"
)

const notReadyMessage = "No registry has been published yet"

// TransformerListResponse is the response of the transformer list endpoint
type TransformerListResponse struct {
	Transformers []registry.Entry `json:"transformers"`
	Count        int              `json:"count"`
}

// Routes serves the published registry of a holder
type Routes struct {
	holder *registry.Holder
}

// NewRoutes creates a new Routes instance reading from holder
func NewRoutes(holder *registry.Holder) *Routes {
	return &Routes{
		holder: holder,
	}
}

// Router creates a new router for the registry API
func Router(holder *registry.Holder) http.Handler {
	routes := NewRoutes(holder)

	r := chi.NewRouter()

	r.Get("/info", routes.getRegistryInfo)
	r.Get("/transformers", routes.listTransformers)
	r.Get("/transformers/{name}", routes.getTransformer)
	r.Get("/options", routes.listOptions)

	return r
}

// registryOrUnavailable returns the published registry, or writes a 503 and returns nil
func (rr *Routes) registryOrUnavailable(w http.ResponseWriter) *registry.Registry {
	reg := rr.holder.Load()
	if reg == nil {
		common.WriteErrorResponse(w, notReadyMessage, http.StatusServiceUnavailable)
	}
	return reg
}

// getRegistryInfo handles GET /v0/info
func (rr *Routes) getRegistryInfo(w http.ResponseWriter, _ *http.Request) {
	reg := rr.registryOrUnavailable(w)
	if reg == nil {
		return
	}
	common.WriteJSONResponse(w, reg.Info(), http.StatusOK)
}

// listTransformers handles GET /v0/transformers.
// The unresolved query parameter restricts the list to entries with or without
// unresolved pipeline and failover references.
func (rr *Routes) listTransformers(w http.ResponseWriter, r *http.Request) {
	reg := rr.registryOrUnavailable(w)
	if reg == nil {
		return
	}

	entries := reg.List()

	if raw := r.URL.Query().Get("unresolved"); raw != "" {
		unresolved, err := strconv.ParseBool(raw)
		if err != nil {
			common.WriteErrorResponse(w, "unresolved must be a boolean", http.StatusBadRequest)
			return
		}
		filtered := entries[:0]
		for _, e := range entries {
			if (len(e.UnresolvedReferences) > 0) == unresolved {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	common.WriteJSONResponse(w, TransformerListResponse{
		Transformers: entries,
		Count:        len(entries),
	}, http.StatusOK)
}

// getTransformer handles GET /v0/transformers/{name}
func (rr *Routes) getTransformer(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetURLParam(r, "name")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	reg := rr.registryOrUnavailable(w)
	if reg == nil {
		return
	}

	entry, ok := reg.Get(name)
	if !ok {
		common.WriteErrorResponse(w, "Transformer "+strconv.Quote(name)+" not found", http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, entry, http.StatusOK)
}

// listOptions handles GET /v0/options
func (rr *Routes) listOptions(w http.ResponseWriter, _ *http.Request) {
	reg := rr.registryOrUnavailable(w)
	if reg == nil {
		return
	}

	options := reg.Options()
	if options == nil {
		options = map[string]transform.OptionSet{}
	}
	common.WriteJSONResponse(w, options, http.StatusOK)
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(holder *registry.Holder) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(holder))
	r.Get("/version", versionHandler)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, map[string]string{"status": "healthy"}, http.StatusOK)
}

// readinessHandler reports ready once the first registry is published
func readinessHandler(holder *registry.Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !holder.Ready() {
			common.WriteErrorResponse(w, "Registry not ready: "+notReadyMessage, http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, map[string]string{"status": "ready"}, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
