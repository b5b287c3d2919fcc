// Package metrics runs the hub's periodic stats logger, an ambient
// ops-visibility ticker reporting occupancy and storage figures.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"lanhub/internal/fileshare"
	"lanhub/internal/presenter"
	"lanhub/internal/registry"
)

// Run logs a snapshot of hub occupancy every interval until ctx is
// done.
func Run(ctx context.Context, reg *registry.Registry, coord *presenter.Coordinator, files *fileshare.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			presenterID := "none"
			if id := coord.Current(); id != presenter.None {
				presenterID = humanize.Comma(int64(id))
			}
			slog.Info("hub stats",
				"participants", reg.Count(),
				"presenter", presenterID,
				"files", files.FileCount(),
				"file_bytes", humanize.Bytes(uint64(files.TotalBytes())),
			)
		}
	}
}
