package controller

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ltonetwork/indexer/pkg/indexer/history"
	"go.uber.org/zap"
)

const (
	defaultLimit = 25
	maxLimit     = 100
)

type pageSpec struct {
	Type   string
	Limit  int
	Offset int
}

func parsePageSpec(r *http.Request) (pageSpec, bool) {
	qs := r.URL.Query()
	page := pageSpec{Type: history.AllTypes, Limit: defaultLimit}
	if v := qs.Get("type"); v != "" {
		page.Type = v
	}
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return pageSpec{}, false
		}
		page.Limit = min(n, maxLimit)
	}
	if v := qs.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return pageSpec{}, false
		}
		page.Offset = n
	}
	return page, true
}

// HandleTransactions returns the ids of the transactions an address took part
// in, newest first. X-Total carries the unpaginated count.
func (c *Controller) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	page, ok := parsePageSpec(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pagination")
		return
	}

	ctx := r.Context()
	total, err := c.App.Storage.CountTx(ctx, page.Type, address)
	if err != nil {
		c.App.Logger.Error("Failed to count transactions", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	ids, err := c.App.Storage.GetTx(ctx, page.Type, address, page.Limit, page.Offset)
	if err != nil {
		c.App.Logger.Error("Failed to read transactions", zap.String("address", address), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	w.Header().Set("X-Total", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, ids)
}
