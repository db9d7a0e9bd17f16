package controller

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/ltonetwork/indexer/pkg/storage"
	"go.uber.org/zap"
)

// maxStatsDays bounds one stats query.
const maxStatsDays = 366

func parseDay(v string) (int64, bool) {
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return 0, false
	}
	return storage.Day(t.UnixMilli()), true
}

// HandleTxStats returns daily transaction counts of one type, from and to
// given as YYYY-MM-DD (inclusive).
func (c *Controller) HandleTxStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	from, okFrom := parseDay(vars["from"])
	to, okTo := parseDay(vars["to"])
	if !okFrom || !okTo {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if to < from || to-from >= maxStatsDays {
		writeError(w, http.StatusBadRequest, "invalid period")
		return
	}

	counts, err := c.App.Storage.GetTxStats(r.Context(), vars["type"], from, to)
	if err != nil {
		c.App.Logger.Error("Failed to read transaction stats", zap.String("type", vars["type"]), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (c *Controller) HandleOperationStats(w http.ResponseWriter, r *http.Request) {
	n, err := c.App.Storage.GetOperationStats(r.Context())
	if err != nil {
		c.App.Logger.Error("Failed to read operation stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"operations": n})
}

// HandleSupply returns the burned transaction fees.
func (c *Controller) HandleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := c.App.Storage.GetSupply(r.Context())
	if err != nil {
		c.App.Logger.Error("Failed to read supply", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, supply)
}
