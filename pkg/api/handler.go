package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mugpeng/droma-registry/pkg/annotation"
	"github.com/mugpeng/droma-registry/pkg/harmonize"
	"github.com/mugpeng/droma-registry/pkg/kit"
)

const maxBodyBytes = 1 << 20

// NewRouter returns an http.Handler with all API routes.
func NewRouter(cfg Config) http.Handler {
	cfg = cfg.withDefaults()
	mux := http.NewServeMux()
	h := &handler{endpoints: newEndpoints(cfg), cfg: cfg}

	mux.HandleFunc("GET /v1/harmonize/{kind}", methodNotAllowed)
	mux.HandleFunc("POST /v1/harmonize/{kind}", h.handleHarmonize)
	mux.HandleFunc("GET /v1/annotations/{kind}", h.handleAnnotations)
	mux.HandleFunc("GET /v1/vocabularies", h.handleVocabularies)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	endpoints
	cfg Config
}

// --- harmonize ---

type httpHarmonizeRequest struct {
	Names []string `json:"names"`
	harmonize.Options
}

func (h *handler) handleHarmonize(w http.ResponseWriter, r *http.Request) {
	kind, err := harmonize.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	req := httpHarmonizeRequest{Options: h.cfg.Defaults}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.harmonize(r.Context(), &harmonizeReq{Kind: kind, Names: req.Names, Opts: req.Options})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- annotations ---

func (h *handler) handleAnnotations(w http.ResponseWriter, r *http.Request) {
	kind, err := harmonize.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.annotations(r.Context(), &annotationsReq{Kind: kind, Filter: filter})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- vocabularies ---

func (h *handler) handleVocabularies(w http.ResponseWriter, r *http.Request) {
	resp, err := h.vocabs(r.Context(), nil)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status       string `json:"status"`
	Vocabularies int    `json:"vocabularies"`
	TotalEntries int    `json:"total_entries"`
	Annotations  bool   `json:"annotations"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Annotations: h.cfg.Annotations != nil}
	if v := h.cfg.Vocabularies; v != nil {
		resp.Vocabularies = v.Count()
		resp.TotalEntries = v.TotalEntries()
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

func parseFilter(r *http.Request) (annotation.Filter, error) {
	q := r.URL.Query()
	f := annotation.Filter{
		Projects:   splitParam(q.Get("projects")),
		IDs:        splitParam(q.Get("ids")),
		DataTypes:  splitParam(q.Get("data_types")),
		TumorTypes: splitParam(q.Get("tumor_types")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func splitParam(v string) annotation.OneOrMany[string] {
	var vals []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			vals = append(vals, s)
		}
	}
	return annotation.Many(vals...)
}

func writeEndpointError(w http.ResponseWriter, err error) {
	var verr *harmonize.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, annotation.ErrTableNotFound), errors.Is(err, errNotConfigured):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID tags each request with X-Request-ID, generating one if absent.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(kit.WithTransport(r.Context(), "http"), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
