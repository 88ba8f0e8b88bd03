// Package workload implements the controller-side half of the workload
// reconciler (spec §4.9, §3): creating a workload row and dispatching its
// manifest to the owning cluster, deleting it via label-cascade, and
// folding per-component status reports back into the aggregate via
// internal/resolver.ResolveWorkload. The dispatcher-side half (manifest
// apply, watchers, per-kind status maps) lives in internal/dispatcher.
// Grounded on internal/project and internal/secret's create/rollup shape,
// generalized to workload's component set.
package workload

import (
	"context"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/store"
)

// ClusterResolver maps a project to the cluster its namespace lives on, the
// same contract internal/secret and internal/storage depend on.
type ClusterResolver interface {
	ClusterForProject(ctx context.Context, projectID uuid.UUID) (uuid.UUID, error)
}

// CreateParams are the caller-supplied inputs to Create. Manifest is the
// already-rendered YAML document stream for the workload's chart (plus any
// overlay); rendering charts into manifests is an API-boundary concern the
// spec leaves unspecified (see DESIGN.md), so Create treats Manifest as
// opaque bytes to ship to the dispatcher.
type CreateParams struct {
	ProjectID uuid.UUID
	Name      string
	ChartID   uuid.UUID
	OverlayID *uuid.UUID
	ModelID   *uuid.UUID
	DatasetID *uuid.UUID
	Manifest  []byte
	CreatedBy string
}

// Create persists the workload row and enqueues its manifest for dispatch
// (spec §4.9 "Manifest apply" is the dispatcher's half of this flow).
func Create(ctx context.Context, st *store.Store, resolver ClusterResolver, sender outbox.Sender, p CreateParams) (*model.Workload, error) {
	clusterID, err := resolver.ClusterForProject(ctx, p.ProjectID)
	if err != nil {
		return nil, err
	}

	w := &model.Workload{
		ID:        uuid.New(),
		ProjectID: p.ProjectID,
		Name:      p.Name,
		ChartID:   p.ChartID,
		OverlayID: p.OverlayID,
		ModelID:   p.ModelID,
		DatasetID: p.DatasetID,
		Status:    model.WorkloadPending,
		Audit:     model.Audit{CreatedBy: p.CreatedBy, UpdatedBy: p.CreatedBy},
	}

	err = outbox.Scope(ctx, sender, func(ctx context.Context, o *outbox.Outbox) error {
		return st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
			if err := tx.CreateWorkload(ctx, w); err != nil {
				return err
			}

			o.Enqueue(clusterID, fabric.TypeWorkloadCreate, fabric.WorkloadCreateMessage{
				WorkloadID: w.ID.String(),
				ProjectID:  p.ProjectID.String(),
				Manifest:   p.Manifest,
			})

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return w, nil
}
