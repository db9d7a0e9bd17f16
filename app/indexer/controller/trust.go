package controller

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleTrust returns the roles of an address and what it may issue.
func (c *Controller) HandleTrust(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	data, err := c.App.Roles.GetRolesFor(r.Context(), address)
	if err != nil {
		c.App.Logger.Error("Failed to read roles", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleAssociations returns the direct children and parents of an address.
func (c *Controller) HandleAssociations(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	assoc, err := c.App.Associations.GetAssociations(r.Context(), address)
	if err != nil {
		c.App.Logger.Error("Failed to read associations", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, assoc)
}
