package controller

import (
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleHash looks up the transaction that anchored a hex encoded hash.
func (c *Controller) HandleHash(w http.ResponseWriter, r *http.Request) {
	hash := strings.ToLower(mux.Vars(r)["hash"])
	if _, err := hex.DecodeString(hash); err != nil {
		writeError(w, http.StatusBadRequest, "invalid hash")
		return
	}

	rec, ok, err := c.App.Storage.GetAnchor(r.Context(), hash)
	if err != nil {
		c.App.Logger.Error("Failed to read anchor", zap.String("hash", hash), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "hash not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chainpoint": map[string]any{
		"hash":    hash,
		"anchors": []any{rec},
	}})
}
