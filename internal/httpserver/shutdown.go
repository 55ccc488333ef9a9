package httpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/vidtube/backend/internal/logging"
)

// ShutdownTimeout bounds how long in-flight requests get to drain.
var ShutdownTimeout = 10 * time.Second

// Stop drains the server, giving in-flight requests at most ShutdownTimeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	logging.Logger().Info().Dur("timeout", ShutdownTimeout).Msg("draining http server")
	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
