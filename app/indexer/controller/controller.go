package controller

import (
	"net/http"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/ltonetwork/indexer/app/indexer/types"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")

	r.HandleFunc("/trust/{address}", c.HandleTrust).Methods("GET")
	r.HandleFunc("/associations/{address}", c.HandleAssociations).Methods("GET")
	r.HandleFunc("/hash/{hash}", c.HandleHash).Methods("GET")
	r.HandleFunc("/identities/{address}/verification-methods", c.HandleVerificationMethods).Methods("GET")
	r.HandleFunc("/transactions/addresses/{address}", c.HandleTransactions).Methods("GET")

	r.HandleFunc("/stats/transactions/{type}/{from}/{to}", c.HandleTxStats).Methods("GET")
	r.HandleFunc("/stats/operations", c.HandleOperationStats).Methods("GET")
	r.HandleFunc("/stats/supply", c.HandleSupply).Methods("GET")

	return r, nil
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
