// Package dispatcher holds the per-cluster dispatcher process (spec §4.9):
// bootstrap identity, the watch/reconcile/health/consumer sub-packages it
// wires together, and nothing else at this level.
package dispatcher

import "github.com/google/uuid"

// Identity is the dispatcher's bootstrap state (spec §9 "Global state":
// "AppConfig (org+cluster names) is set once at startup then read-only;
// model as an immutable value created at main and passed explicitly, not a
// module-level singleton"). Every sub-package that needs the cluster or
// organization name takes an Identity value, never a package-level var.
type Identity struct {
	ClusterID        uuid.UUID
	ClusterName      string
	OrganizationName string
}
