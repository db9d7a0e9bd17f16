package types

import (
	"context"
	"net/http"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ltonetwork/indexer/pkg/config"
	indexertypes "github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/ltonetwork/indexer/pkg/monitor"
	"github.com/ltonetwork/indexer/pkg/storage"
	"go.uber.org/zap"
)

// RoleQuery expands the trust network roles of an address.
type RoleQuery interface {
	GetRolesFor(ctx context.Context, address string) (indexertypes.RoleData, error)
}

// AssociationQuery reads the one-hop association neighbourhood of an address.
type AssociationQuery interface {
	GetAssociations(ctx context.Context, address string) (indexertypes.Associations, error)
}

type App struct {
	Config config.Config

	// Storage is the active backend behind the indexer keyspace.
	Storage      *storage.Gateway
	Roles        RoleQuery
	Associations AssociationQuery

	// Monitor is nil when the process only serves the read API.
	Monitor *monitor.Monitor
	Pool    pond.Pool

	Logger *zap.Logger
	Server *http.Server
}

// Start runs the block monitor and the HTTP server until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	if a.Monitor != nil {
		if err := a.Monitor.Start(ctx); err != nil {
			a.Logger.Fatal("Unable to start block monitor", zap.Error(err))
		}
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	<-ctx.Done()
	a.Stop()
}

// Stop drains the monitor before closing storage.
func (a *App) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.Pool != nil {
		a.Pool.StopAndWait()
	}
	if err := a.Storage.Close(); err != nil {
		a.Logger.Error("Failed to close storage", zap.Error(err))
	}
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
