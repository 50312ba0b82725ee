// Package search probes the catalog search backend (Elasticsearch) and
// assembles its health report for the admin surface.
package search

import "context"

// ClusterStatus is the search cluster's reported health color.
type ClusterStatus string

const (
	ClusterGreen   ClusterStatus = "green"
	ClusterYellow  ClusterStatus = "yellow"
	ClusterRed     ClusterStatus = "red"
	ClusterUnknown ClusterStatus = "unknown"
)

// IndexStats holds size figures for a single index.
type IndexStats struct {
	DocumentCount int64
	SizeBytes     int64
}

// HealthProbe is the external collaborator that inspects the search
// backend. Implementations must be safe for concurrent use; every method
// degrades to its zero value (false/unknown) rather than panicking when
// the backend is unreachable.
type HealthProbe interface {
	// CheckConnectivity reports whether the backend answers at all, and
	// its version string when it does.
	CheckConnectivity(ctx context.Context) (connected bool, version string)

	// CheckIndexExists reports whether the named index is present.
	CheckIndexExists(ctx context.Context, name string) (bool, error)

	// ClusterHealth returns the cluster color, ClusterUnknown on failure.
	ClusterHealth(ctx context.Context) ClusterStatus

	// IndexStats returns document and byte counts for the named index.
	IndexStats(ctx context.Context, name string) (IndexStats, error)
}
