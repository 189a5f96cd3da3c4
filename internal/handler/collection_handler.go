package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/parisxmas/lodgeforms/internal/repository"
)

// CollectionHandler exposes a stored collection as its raw JSON array.
type CollectionHandler struct {
	store  repository.RecordStore
	logger *zap.Logger
}

func NewCollectionHandler(store repository.RecordStore, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{store: store, logger: logger}
}

func (h *CollectionHandler) Serve(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h.store.Raw(r.Context(), collection)
		if errors.Is(err, repository.ErrCollectionNotFound) {
			NotFound(w, r)
			return
		}
		if err != nil {
			h.logger.Error("reading collection", zap.String("collection", collection), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read collection")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}
