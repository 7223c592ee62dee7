// Package api exposes the embed configuration and session endpoints.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"chatkitlab/internal/embedconfig"
	"chatkitlab/internal/session"
	"chatkitlab/pkg/openapi"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators shared by every handler; none are mutated
// after RegisterRoutes.
type Deps struct {
	Config  embedconfig.EmbedConfig
	Broker  *session.Broker
	Log     *zap.SugaredLogger
	Started time.Time
	Now     func() time.Time
}

type handlers struct {
	Deps
}

func RegisterRoutes(r chi.Router, d Deps) {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Started.IsZero() {
		d.Started = d.Now()
	}
	h := &handlers{Deps: d}

	r.Get("/healthz", h.health)
	r.Get("/api/config", h.config)
	r.Post("/api/chatkit-session", h.createSession)
	r.Get("/.well-known/openapi.json", Spec().ServeHandler("chatkit-lab", "v1"))
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": h.Now().Sub(h.Started).Seconds(),
	}, http.StatusOK)
}

func (h *handlers) config(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.Config, http.StatusOK)
}

// createSession: body {deviceId}; the request's network identity stands in
// for a missing id. A disabled broker answers 503 before the body matters.
func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeDeviceID(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		if h.Broker.Enabled() {
			h.Log.Warnw("chatkit session bad request", "kind", string(session.KindBadRequest), "err", err)
			writeError(w, session.KindBadRequest)
			return
		}
		raw = ""
	}
	// an empty result is rejected by Mint once availability is checked
	deviceID, _ := session.SanitizeDeviceID(raw, clientIdentity(r))

	cred, err := h.Broker.Mint(r.Context(), deviceID)
	if err != nil {
		writeError(w, session.KindOf(err))
		return
	}
	writeJSON(w, cred, http.StatusOK)
}

var errDeviceIDType = errors.New("deviceId must be a string or number")

// decodeDeviceID accepts an empty body, a missing or null deviceId, a string
// or a number; anything else is malformed.
func decodeDeviceID(body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return "", nil
	}
	var req struct {
		DeviceID json.RawMessage `json:"deviceId"`
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return "", err
	}
	v := bytes.TrimSpace(req.DeviceID)
	if len(v) == 0 || string(v) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n.String(), nil
	}
	return "", errDeviceIDType
}

// Spec describes the public endpoints.
func Spec() *openapi.Registry {
	reg := openapi.NewRegistry()
	reg.Register(openapi.Operation{
		Method:  http.MethodGet,
		Path:    "/api/config",
		Summary: "Embed configuration for the chat widget",
		Responses: map[string]any{
			"200": openapi.Response("workflowUrl, domainKey, sessionApiEnabled, publicBaseUrl, generatedAt"),
		},
	})
	reg.Register(openapi.Operation{
		Method:  http.MethodPost,
		Path:    "/api/chatkit-session",
		Summary: "Mint a short-lived client secret for one device",
		RequestBody: openapi.JSONBody(map[string]any{
			"type":       "object",
			"properties": map[string]any{"deviceId": map[string]any{"type": "string", "maxLength": session.MaxDeviceIDLength}},
		}),
		Responses: map[string]any{
			"200": openapi.Response("clientSecret"),
			"400": openapi.Response("device id missing or malformed"),
			"500": openapi.Response("upstream unreachable"),
			"502": openapi.Response("upstream rejected the request or returned no secret"),
			"503": openapi.Response("session api not configured"),
		},
	})
	reg.Register(openapi.Operation{
		Method:    http.MethodGet,
		Path:      "/healthz",
		Summary:   "Liveness",
		Responses: map[string]any{"200": openapi.Response("status and uptime in seconds")},
	})
	return reg
}
