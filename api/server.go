// Package api serves the HTTP export endpoints and the static client.
package api

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/matt-g-everett/trailcast/export"
)

const maxBodyBytes = 1 << 20

// Exporter runs exports and reports their status.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Artifact, error)
	Status() export.Status
}

// Api handles export requests over HTTP.
type Api struct {
	exporter Exporter
	defaults export.Request
	static   string

	mu     sync.Mutex
	latest *export.Artifact

	log *logrus.Entry
}

// NewApi creates an Api. Request fields left out of a POST take their value
// from defaults. Static files are served from the static directory when it
// is not empty.
func NewApi(exporter Exporter, defaults export.Request, static string) *Api {
	return &Api{
		exporter: exporter,
		defaults: defaults,
		static:   static,
		log:      logrus.WithField("component", "api"),
	}
}

// Handler returns the routes of the API.
func (a *Api) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/export", a.handleExport)
	mux.HandleFunc("GET /api/export/status", a.handleStatus)
	mux.HandleFunc("GET /api/export/latest", a.handleLatest)
	if a.static != "" {
		mux.Handle("/", http.FileServer(http.Dir(a.static)))
	}
	return mux
}

// Serve listens on addr until ctx is done.
func (a *Api) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", addr).Info("Listening...")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "http server shutdown failed")
		}
		return nil
	}
}

func (a *Api) handleExport(w http.ResponseWriter, r *http.Request) {
	var params export.Params
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&params); err != nil && err != io.EOF {
		a.writeError(w, http.StatusBadRequest, errors.Wrap(err, "malformed request body"))
		return
	}

	req, err := params.Request(a.defaults)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	artifact, err := a.exporter.Export(r.Context(), req)
	if err != nil {
		a.writeError(w, statusFor(err), err)
		return
	}

	a.mu.Lock()
	a.latest = artifact
	a.mu.Unlock()

	a.writeArtifact(w, artifact)
}

func (a *Api) handleStatus(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.exporter.Status())
}

func (a *Api) handleLatest(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	artifact := a.latest
	a.mu.Unlock()

	if artifact == nil {
		a.writeError(w, http.StatusNotFound, errors.New("no export has completed"))
		return
	}
	a.writeArtifact(w, artifact)
}

func (a *Api) writeArtifact(w http.ResponseWriter, artifact *export.Artifact) {
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(artifact.Size()))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := artifact.WriteTo(w); err != nil {
		a.log.WithError(err).Warn("Failed to write artifact")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, export.ErrExportInProgress):
		return http.StatusConflict
	case errors.Is(err, export.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, export.ErrSurfaceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *Api) writeError(w http.ResponseWriter, status int, err error) {
	entry := a.log.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Export request failed")
	} else {
		entry.Warn("Export request rejected")
	}
	a.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (a *Api) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.WithError(err).Warn("Failed to write response")
	}
}
