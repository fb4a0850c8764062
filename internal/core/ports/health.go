package ports

import "context"

// HealthChecker probes one external dependency (redis, database, speech
// provider). Check returns an error when the dependency is unreachable.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}
