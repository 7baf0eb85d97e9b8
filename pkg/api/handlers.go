package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/yandextaxitech/binaryprefs/pkg/codec"
	"github.com/yandextaxitech/binaryprefs/pkg/file"
	"github.com/yandextaxitech/binaryprefs/pkg/prefs"
	"github.com/yandextaxitech/binaryprefs/pkg/snapshot"
)

// maxImportSize bounds the body of an import request
const maxImportSize = 32 << 20

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API and the name of the served store
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy", "store": s.prefs.Name()})
}

// handleList godoc
//
//	@Summary		List preferences
//	@Description	Get every stored preference in text form, optionally filtered by key prefix
//	@Tags			prefs
//	@Produce		json
//	@Param			prefix	query		string	false	"Key prefix"
//	@Success		200		{object}	APIResponse{data=[]snapshot.Entry}
//	@Failure		500		{object}	APIResponse
//	@Router			/prefs [get]
//	@Security		ApiKeyAuth
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	snap, err := snapshot.Take(s.prefs)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	entries := make([]snapshot.Entry, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		if strings.HasPrefix(e.Key, prefix) {
			entries = append(entries, e)
		}
	}
	sendSuccess(w, entries)
}

// handleGet godoc
//
//	@Summary		Get a preference
//	@Description	Get one preference by key in text form
//	@Tags			prefs
//	@Produce		json
//	@Param			key	path		string	true	"Preference key"
//	@Success		200	{object}	APIResponse{data=snapshot.Entry}
//	@Failure		400	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Router			/prefs/{key} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	blob, _, found, err := s.prefs.GetRaw(key)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	if !found {
		sendError(w, "Key not found", http.StatusNotFound)
		return
	}

	entry, err := snapshot.NewEntry(key, blob)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, entry)
}

// handlePut godoc
//
//	@Summary		Put a preference
//	@Description	Store one preference. The kind names the wire type, for example int, string or string-set.
//	@Tags			prefs
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string			true	"Preference key"
//	@Param			value	body		ValueRequest	true	"Value in text form"
//	@Success		200		{object}	APIResponse{data=snapshot.Entry}
//	@Failure		400		{object}	APIResponse
//	@Router			/prefs/{key} [put]
//	@Security		ApiKeyAuth
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	var req ValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry := snapshot.Entry{Key: key, Kind: req.Kind, Value: req.Value, Values: req.Values}
	blob, err := entry.Blob()
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.prefs.Edit().PutRaw(key, blob).Commit(r.Context()); err != nil {
		s.sendStoreError(w, err)
		return
	}

	stored, err := snapshot.NewEntry(key, blob)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, stored)
}

// handleDelete godoc
//
//	@Summary		Delete a preference
//	@Description	Remove one preference by key
//	@Tags			prefs
//	@Produce		json
//	@Param			key	path		string	true	"Preference key"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	APIResponse
//	@Router			/prefs/{key} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}

	found, err := s.prefs.Contains(key)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	if !found {
		sendError(w, "Key not found", http.StatusNotFound)
		return
	}

	if err := s.prefs.Edit().Remove(key).Commit(r.Context()); err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]string{"key": key, "status": "deleted"})
}

// handleExport godoc
//
//	@Summary		Export the store
//	@Description	Download every preference as a snapshot document
//	@Tags			snapshot
//	@Produce		json
//	@Produce		application/yaml
//	@Produce		application/msgpack
//	@Param			format	query		string	false	"json, yaml or msgpack"
//	@Success		200		{object}	snapshot.Snapshot
//	@Failure		400		{object}	APIResponse
//	@Router			/export [get]
//	@Security		ApiKeyAuth
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := snapshot.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := snapshot.Take(s.prefs)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}
	data, err := snapshot.Encode(snap, format)
	if err != nil {
		s.sendStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.prefs.Name()+"."+string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleImport godoc
//
//	@Summary		Import a snapshot
//	@Description	Write every entry of a snapshot document in one commit. With replace, keys missing from the document are removed.
//	@Tags			snapshot
//	@Accept			json
//	@Accept			application/yaml
//	@Accept			application/msgpack
//	@Produce		json
//	@Param			format	query		string	false	"json, yaml or msgpack"
//	@Param			replace	query		bool	false	"Remove keys missing from the document"
//	@Success		200		{object}	map[string]int
//	@Failure		400		{object}	APIResponse
//	@Router			/import [post]
//	@Security		ApiKeyAuth
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	format, err := snapshot.ParseFormat(query.Get("format"))
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	replace := false
	if v := query.Get("replace"); v != "" {
		replace, err = strconv.ParseBool(v)
		if err != nil {
			sendError(w, "Invalid replace parameter", http.StatusBadRequest)
			return
		}
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	snap, err := snapshot.Decode(data, format)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := snapshot.Restore(r.Context(), s.prefs, snap, replace); err != nil {
		s.sendStoreError(w, err)
		return
	}
	sendSuccess(w, map[string]int{"imported": len(snap.Entries)})
}

// keyParam reads and unescapes the key path parameter
func keyParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		sendError(w, "Invalid key", http.StatusBadRequest)
		return "", false
	}
	return key, true
}

// sendStoreError maps store errors to status codes
func (s *Server) sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prefs.ErrInvalidKey), errors.Is(err, file.ErrInvalidName), errors.Is(err, snapshot.ErrInvalidEntry):
		sendError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, codec.ErrUnsupportedVersion), errors.Is(err, codec.ErrMalformed),
		errors.Is(err, codec.ErrTypeMismatch), errors.Is(err, codec.ErrOutOfBounds):
		sendError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, prefs.ErrClosed):
		sendError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.WithError(err).Error("store operation failed")
		sendError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func contentType(f snapshot.Format) string {
	switch f {
	case snapshot.FormatYAML:
		return "application/yaml"
	case snapshot.FormatMsgpack:
		return "application/msgpack"
	default:
		return "application/json"
	}
}
