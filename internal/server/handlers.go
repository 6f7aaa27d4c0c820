package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/metrics"
	"github.com/roach88/treestore/internal/querylang"
	"github.com/roach88/treestore/internal/tree"
)

// handlerFunc is a route handler that reports failures as errors.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	code  int
	wrote bool
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.wrote = true
	r.ResponseWriter.WriteHeader(code)
}

// badRequest is a malformed request that never reached the store.
type badRequest struct {
	msg string
	err error
}

func (e *badRequest) Error() string { return fmt.Sprintf("%s: %v", e.msg, e.err) }
func (e *badRequest) Unwrap() error { return e.err }

func (s *Server) handle(pattern, route string, h handlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		if err := h(rec, r); err != nil {
			if rec.wrote {
				s.log.WithError(err).Warn("response interrupted")
			} else {
				s.writeError(rec, err)
			}
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.code,
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

// nodePath is the store path addressed by the {path...} wildcard.
func nodePath(r *http.Request) string {
	return "/" + r.PathValue("path")
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) error {
	n, err := s.store.Get(r.Context(), nodePath(r))
	if err != nil {
		return err
	}

	if field := r.URL.Query().Get("field"); field != "" {
		v, err := n.Lookup(field)
		if err != nil {
			if tree.IsNotFound(err) {
				return err
			}
			return &badRequest{msg: "invalid field", err: err}
		}
		return writeCanonical(w, http.StatusOK, ir.ToNative(v))
	}

	digest, err := n.Digest()
	if err != nil {
		return err
	}
	etag := strconv.Quote(digest)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	return writeJSON(w, http.StatusOK, n)
}

func (s *Server) saveNode(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &tree.Error{Code: tree.CodeInvalidPayload, Path: nodePath(r), Err: err}
	}
	data, err := ir.ParseObject(body)
	if err != nil {
		return &tree.Error{Code: tree.CodeInvalidPayload, Path: nodePath(r), Message: "body must be a JSON object", Err: err}
	}

	s.writeMu.Lock()
	res, err := s.store.Save(r.Context(), data, nodePath(r))
	s.writeMu.Unlock()
	if err != nil {
		return err
	}

	code := http.StatusOK
	if res.Created {
		code = http.StatusCreated
	}
	return writeJSON(w, code, res.Node)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) error {
	s.writeMu.Lock()
	n, err := s.store.Delete(r.Context(), nodePath(r))
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) ls(w http.ResponseWriter, r *http.Request) error {
	return writeStream(w)(s.store.Ls(r.Context(), nodePath(r)))
}

func (s *Server) parents(w http.ResponseWriter, r *http.Request) error {
	return writeStream(w)(s.store.Parents(r.Context(), nodePath(r), r.URL.Query().Get("top")))
}

func (s *Server) find(w http.ResponseWriter, r *http.Request) error {
	pred, err := s.predicate(r.URL.Query().Get("q"))
	if err != nil {
		return err
	}
	return writeStream(w)(s.store.FindPredicate(r.Context(), pred, nodePath(r)))
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) error {
	if _, err := s.store.Exists(r.Context(), "/"); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStream drains a stream before writing, so the backend connection is
// released before the response is sent.
func writeStream(w http.ResponseWriter) func(*tree.Stream, error) error {
	return func(st *tree.Stream, err error) error {
		if err != nil {
			return err
		}
		nodes, err := st.Collect()
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Path     string `json:"path,omitempty"`
	Position *int   `json:"position,omitempty"`
}

// statusFor maps store errors to HTTP statuses.
func statusFor(err error) (int, errorDetail) {
	var perr *querylang.ParseError
	if errors.As(err, &perr) {
		pos := perr.Pos
		return http.StatusBadRequest, errorDetail{Code: "PARSE_ERROR", Message: perr.Error(), Position: &pos}
	}

	var berr *badRequest
	if errors.As(err, &berr) {
		return http.StatusBadRequest, errorDetail{Code: "BAD_REQUEST", Message: berr.Error()}
	}

	var terr *tree.Error
	if !errors.As(err, &terr) {
		return http.StatusInternalServerError, errorDetail{Code: "INTERNAL", Message: err.Error()}
	}
	detail := errorDetail{Code: string(terr.Code), Message: terr.Error(), Path: terr.Path}
	switch terr.Code {
	case tree.CodeInvalidPath, tree.CodeInvalidPayload:
		return http.StatusBadRequest, detail
	case tree.CodeNotFound:
		return http.StatusNotFound, detail
	case tree.CodeParentNotFound:
		return http.StatusConflict, detail
	case tree.CodeRootProtected:
		return http.StatusForbidden, detail
	default:
		return http.StatusInternalServerError, detail
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code, detail := statusFor(err)
	if code == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	if werr := writeJSON(w, code, errorBody{Error: detail}); werr != nil {
		s.log.WithError(werr).Warn("write error response")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return writeBody(w, code, b)
}

func writeCanonical(w http.ResponseWriter, code int, v any) error {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return writeBody(w, code, b)
}

func writeBody(w http.ResponseWriter, code int, b []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err := w.Write(append(b, '\n'))
	return err
}
