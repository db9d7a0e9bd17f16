package controller

import (
	"net/http"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, _, err := c.App.Storage.GetProcessingHeight(ctx); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "errored", "error": "storage error"})
		return
	}

	resp := map[string]any{"status": "ok"}
	if c.App.Monitor != nil {
		resp["sync"] = c.App.Monitor.Status()
	}
	writeJSON(w, http.StatusOK, resp)
}
