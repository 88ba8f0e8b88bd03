package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
)

// FeedbackStore is the subset of internal/store the status/failure
// reconciliation paths need.
type FeedbackStore interface {
	ListActiveQuotasByCluster(ctx context.Context, clusterID uuid.UUID) ([]model.Quota, error)
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	UpdateQuotaStatusIfOlder(ctx context.Context, id uuid.UUID, asOf time.Time, status model.QuotaStatus, reason string, priorLost *model.Resources, updatedBy string) error
}

// ApplyStatus implements spec §4.6 "Status feedback": diff-matches the
// dispatcher-applied quota set against the DB's active set, per project
// name. DEFAULT_CATCH_ALL_QUOTA_NAME is skipped (spec §4.6 "Protocol
// tie-breaks"), and only quotas whose persisted updated_at is at or before
// msg.UpdatedAt are considered, to avoid clobbering newer writes.
func ApplyStatus(ctx context.Context, store FeedbackStore, clusterID uuid.UUID, msg fabric.ClusterQuotasStatusMessage) error {
	applied := make(map[string]fabric.QuotaEntry, len(msg.Quotas))

	for _, e := range msg.Quotas {
		if e.ProjectName == model.DefaultCatchAllQuotaName {
			continue
		}

		applied[e.ProjectName] = e
	}

	quotas, err := store.ListActiveQuotasByCluster(ctx, clusterID)
	if err != nil {
		return err
	}

	for _, q := range quotas {
		project, err := store.GetProject(ctx, q.ProjectID)
		if err != nil {
			return err
		}

		entry, present := applied[project.Name]

		updatedBy := "dispatcher:" + clusterID.String()

		switch {
		case q.Status == model.QuotaDeleting && !present:
			if err := store.UpdateQuotaStatusIfOlder(ctx, q.ID, msg.UpdatedAt, model.QuotaDeleted, "", nil, updatedBy); err != nil {
				return err
			}
		case q.Status == model.QuotaDeleting:
			// still present on the cluster; wait for the dispatcher to
			// confirm removal before marking Deleted.
		case !present:
			// The cluster no longer reports this quota: zero its live
			// resources and stash the prior values in PriorLost (spec §4.6,
			// §9 Open Question #1), rather than leaving stale numbers next
			// to a Failed status.
			if err := store.UpdateQuotaStatusIfOlder(ctx, q.ID, msg.UpdatedAt, model.QuotaFailed, "quota was removed", &q.Resources, updatedBy); err != nil {
				return err
			}
		case entry.Resources != q.Resources:
			reason := fmt.Sprintf("applied resources do not match configured: configured=%+v applied=%+v", q.Resources, entry.Resources)
			if err := store.UpdateQuotaStatusIfOlder(ctx, q.ID, msg.UpdatedAt, model.QuotaFailed, reason, nil, updatedBy); err != nil {
				return err
			}
		default:
			if err := store.UpdateQuotaStatusIfOlder(ctx, q.ID, msg.UpdatedAt, model.QuotaReady, "", nil, updatedBy); err != nil {
				return err
			}
		}
	}

	return nil
}

// ApplyFailure implements spec §4.6 "On cluster_quotas_failure, every
// project whose quota is Pending and older than the message is marked
// Failed with the provided reason."
func ApplyFailure(ctx context.Context, store FeedbackStore, clusterID uuid.UUID, msg fabric.ClusterQuotasFailureMessage) error {
	quotas, err := store.ListActiveQuotasByCluster(ctx, clusterID)
	if err != nil {
		return err
	}

	updatedBy := "dispatcher:" + clusterID.String()

	for _, q := range quotas {
		if q.Status != model.QuotaPending {
			continue
		}

		if err := store.UpdateQuotaStatusIfOlder(ctx, q.ID, msg.UpdatedAt, model.QuotaFailed, msg.Reason, nil, updatedBy); err != nil {
			return err
		}
	}

	return nil
}

