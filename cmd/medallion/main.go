// Command medallion runs the Olist bronze, silver and gold pipeline.
//
//	medallion run              # all three stages, then the optional export
//	medallion bronze|silver|gold
//	medallion serve            # HTTP API plus optional cron schedule
//
// Settings come from the environment (a .env file is loaded first); flags
// override them.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/medallion/internal/core"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		slog.Error(core.FormatUserError(err), "error", err)
		os.Exit(1)
	}
}
