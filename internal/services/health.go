package services

import (
	"context"
	"fmt"

	"github.com/vvka-141/graphload/pkg/graphload"
)

// CheckHealth verifies that the server answers queries and accepts writes by
// creating and deleting a probe node.
func CheckHealth(ctx context.Context, client graphload.GraphClient, logger graphload.Logger) error {
	steps := []struct {
		name  string
		query string
	}{
		{"read", queryHealthRead},
		{"write", queryHealthCreate},
		{"cleanup", queryHealthDelete},
	}
	for _, step := range steps {
		logger.Verbose("Health check %s: %s", step.name, step.query)
		if _, err := client.Query(ctx, step.query); err != nil {
			return fmt.Errorf("%w: %s probe: %w", graphload.ErrHealthCheckFailed, step.name, err)
		}
	}
	logger.Verbose("Health check passed")
	return nil
}
