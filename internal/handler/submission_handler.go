package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/parisxmas/lodgeforms/internal/service"
)

type SubmissionHandler struct {
	svc    *service.SubmissionService
	logger *zap.Logger
}

func NewSubmissionHandler(svc *service.SubmissionService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, logger: logger}
}

// Submit handles every form path. Application outcomes are always answered
// with 200 and a status field; only an unknown form is a 404.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		// An unreadable body is treated as an empty one so validation names
		// the first missing field.
		h.logger.Debug("undecodable submission body", zap.String("path", r.URL.Path), zap.Error(err))
		fields = map[string]string{}
	}

	res, err := h.svc.Submit(r.Context(), r.URL.Path, fields)
	var mf *service.MissingFieldError
	switch {
	case errors.Is(err, service.ErrUnknownForm):
		NotFound(w, r)
		return
	case errors.As(err, &mf):
		// Already in the result message.
	case err != nil:
		h.logger.Warn("submission failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeFields reads a urlencoded, multipart or JSON body into a flat field
// map. The first value wins for repeated keys.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		return decodeJSONFields(r)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, err
		}
		defer r.MultipartForm.RemoveAll()
		return firstValues(r.MultipartForm.Value), nil
	default:
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return firstValues(r.PostForm), nil
	}
}

func decodeJSONFields(r *http.Request) (map[string]string, error) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = v
		case float64, bool:
			fields[k] = fmt.Sprint(v)
		default:
			return nil, fmt.Errorf("field %q: expected a string", k)
		}
	}
	return fields, nil
}

func firstValues(values map[string][]string) map[string]string {
	fields := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields
}
