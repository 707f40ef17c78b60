package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/appmeta/internal/hash/sha256"
	"github.com/JakeFAU/appmeta/internal/lookup"
)

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]
	results, err := s.searcher.Search(r.Context(), ids)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	body, err := json.Marshal(results)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}
	body = append(body, '\n')

	etag := s.hasher.ETag(body)
	w.Header().Set("ETag", etag)
	if sha256.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Debug("write search response", zap.Error(err))
	}
}

// searchStream writes results as they complete. The status is decided by the
// first event: an error there gets a normal error response. A failure after
// elements have been sent aborts the connection so the client sees a
// truncated array instead of a well-formed partial one.
func (s *Server) searchStream(w http.ResponseWriter, r *http.Request) {
	ids := r.URL.Query()["id"]
	results, err := s.searcher.Stream(r.Context(), ids)
	if err != nil {
		s.writeLookupError(w, r, err)
		return
	}

	first, ok := <-results
	if ok && first.Err != nil {
		s.writeLookupError(w, r, first.Err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	aw := lookup.NewArrayWriter(w)
	if ok {
		if err := aw.Write(first.Metatags); err != nil {
			s.abortStream(r, aw, err)
		}
	}
	if err := aw.Drain(results); err != nil {
		s.abortStream(r, aw, err)
	}
}

func (s *Server) abortStream(r *http.Request, aw *lookup.ArrayWriter, err error) {
	s.logger.Warn("aborting streamed response",
		zap.String("request_id", RequestID(r.Context())),
		zap.Int("elements_written", aw.Len()),
		zap.Error(err),
	)
	panic(http.ErrAbortHandler)
}

func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := lookup.Classify(err)
	fields := []zap.Field{
		zap.String("request_id", RequestID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("lookup failed", fields...)
	} else {
		s.logger.Debug("lookup rejected", fields...)
	}
	writeError(w, status, msg)
}
