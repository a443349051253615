package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/af-corp/reqbridge/internal/httputil"
	"github.com/af-corp/reqbridge/internal/types"
)

const maxPayloadBytes = 4 << 20

// Dispatcher is the host entry point requests are sent through.
type Dispatcher interface {
	Args() types.RequestArgs
	Request(ctx context.Context, url string, args types.RequestArgs) (*types.Response, error)
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	client  Dispatcher
	version string
	tempDir func() string
}

func NewHandler(client Dispatcher, version string) *Handler {
	return &Handler{client: client, version: version, tempDir: os.TempDir}
}

// WithTempDir sets where named stream files are written.
func (h *Handler) WithTempDir(dir func() string) *Handler {
	h.tempDir = dir
	return h
}

// Requests handles POST /v1/requests.
func (h *Handler) Requests(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var payload RequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if err := payload.Validate(); err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}

	args := payload.Apply(h.client.Args(), h.tempDir())
	resp, err := h.client.Request(r.Context(), args.URL, args)
	if err != nil {
		slog.Info("outgoing request failed", "request_id", reqID, "url", args.URL, "error", err)
		httputil.WriteRequestError(w, reqID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": h.version,
	})
}
