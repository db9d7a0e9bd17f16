package indexer

import (
	"net/http"

	"github.com/ltonetwork/indexer/app/indexer/controller"
	"github.com/ltonetwork/indexer/app/indexer/types"
	"go.uber.org/zap"
)

// NewServer attaches the read API to app.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	app.Server = &http.Server{Addr: app.Config.Addr, Handler: router}
	app.Logger.Info("Starting server", zap.String("addr", app.Config.Addr))
	return nil
}
