package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleVerificationMethods lists the unrevoked verification methods of an identity.
func (c *Controller) HandleVerificationMethods(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	methods, err := c.App.Storage.GetVerificationMethods(r.Context(), address)
	if err != nil {
		c.App.Logger.Error("Failed to read verification methods", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, methods)
}
