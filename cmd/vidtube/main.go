package main

import (
	"context"
	"os"

	"github.com/vidtube/backend/internal/app"
	"github.com/vidtube/backend/internal/logging"
)

func main() {
	ctx := context.Background()
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		logging.Logger().Fatal().Err(err).Msg("vidtube exited")
	}
}
