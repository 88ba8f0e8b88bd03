// Package project implements the project lifecycle component (spec §4.7):
// create preconditions, the transactional create flow spanning
// identity-provider group + project + quota + namespace, rollup-triggered
// status updates, and delete. Grounded on original_source's projects
// service (services/airm/api/app/projects/*) and unikorn's project-manager
// reconciler for the "create group, then dependent resources, all within
// one transaction" shape.
package project

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/fabric"
	"github.com/amd-eai/airm/internal/model"
	"github.com/amd-eai/airm/internal/outbox"
	"github.com/amd-eai/airm/internal/quota"
	"github.com/amd-eai/airm/internal/store"
)

// dnsLabelPattern matches a DNS label: lowercase alphanumerics and hyphens,
// not starting or ending with a hyphen (spec §6).
var dnsLabelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// maxProjectNameLength is spec §6's DNS-label-derived cap.
const maxProjectNameLength = 41

// ValidateName implements spec §4.7/§6: a project name must be a DNS label,
// at most 41 characters, and not in the restricted set. It does not check
// uniqueness within the organization; Create does that separately.
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > maxProjectNameLength {
		return apierrors.Validation(fmt.Sprintf("project name must be 1-%d characters", maxProjectNameLength), "name")
	}

	if !dnsLabelPattern.MatchString(name) {
		return apierrors.Validation("project name must be a valid DNS label", "name")
	}

	if model.RestrictedProjectNames[name] {
		return apierrors.Validation("project name is reserved", "name")
	}

	return nil
}

// IdentityProvider creates the per-project group nested under the
// organization's group (spec §4.7 step 1).
type IdentityProvider interface {
	CreateProjectGroup(ctx context.Context, organizationGroupID, projectName string) (groupID string, err error)
}

// CapacityChecker validates a proposed resource vector against cluster
// capacity (internal/quota.Validate satisfies this).
type CapacityChecker interface {
	Validate(ctx context.Context, clusterID uuid.UUID, excludeProjectID *uuid.UUID, proposed model.Resources) error
}

// CreateParams are the caller-supplied inputs to Create.
type CreateParams struct {
	OrganizationID          uuid.UUID
	ClusterID               uuid.UUID
	Name                    string
	NamespaceName           string
	IdentityProviderGroupID string // the organization's own group, not the project's
	Quota                   model.Resources
	CreatedBy               string
}

// Create implements spec §4.7 "Create": preconditions (cluster HEALTHY, <=
// MaxProjectsPerCluster-1 active projects, no name collision, name not
// restricted) and the capacity check, all before any write; then the five
// create steps inside one DB transaction nested inside one outbox scope —
// a rollback from any step discards every enqueued message.
func Create(ctx context.Context, st *store.Store, idp IdentityProvider, capacity CapacityChecker, sender outbox.Sender, now time.Time, p CreateParams) (*model.Project, error) {
	if err := ValidateName(p.Name); err != nil {
		return nil, err
	}

	c, err := st.GetCluster(ctx, p.ClusterID)
	if err != nil {
		return nil, err
	}

	if c.Status(now) != model.ClusterHealthy {
		return nil, apierrors.PreconditionNotMet("cluster is not HEALTHY")
	}

	activeCount, err := st.CountActiveProjects(ctx, p.ClusterID)
	if err != nil {
		return nil, err
	}

	if activeCount >= model.MaxProjectsPerCluster-1 {
		return nil, apierrors.PreconditionNotMet("cluster has reached its maximum number of projects")
	}

	exists, err := st.ProjectNameExists(ctx, p.OrganizationID, p.Name)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, apierrors.Conflict(fmt.Sprintf("project %q already exists in this organization", p.Name))
	}

	if err := capacity.Validate(ctx, p.ClusterID, nil, p.Quota); err != nil {
		return nil, err
	}

	var created *model.Project

	err = outbox.Scope(ctx, sender, func(ctx context.Context, ob *outbox.Outbox) error {
		return st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
			groupID, err := idp.CreateProjectGroup(ctx, p.IdentityProviderGroupID, p.Name)
			if err != nil {
				return apierrors.ExternalServiceError(err)
			}

			project := &model.Project{
				ID:                      uuid.New(),
				OrganizationID:          p.OrganizationID,
				ClusterID:               p.ClusterID,
				Name:                    p.Name,
				IdentityProviderGroupID: groupID,
				Status:                  model.ProjectPending,
				StatusReason:            "being created",
				Audit:                   model.Audit{CreatedBy: p.CreatedBy, UpdatedBy: p.CreatedBy},
			}
			if err := tx.CreateProject(ctx, project); err != nil {
				return err
			}

			quota := &model.Quota{
				ID:           uuid.New(),
				ProjectID:    project.ID,
				Resources:    p.Quota,
				Status:       model.QuotaPending,
				StatusReason: "being created",
				Audit:        model.Audit{CreatedBy: p.CreatedBy, UpdatedBy: p.CreatedBy},
			}
			if err := tx.CreateQuota(ctx, quota); err != nil {
				return err
			}

			namespace := &model.Namespace{
				ID:           uuid.New(),
				ProjectID:    project.ID,
				ClusterID:    p.ClusterID,
				Name:         p.NamespaceName,
				Status:       model.NamespacePending,
				StatusReason: "creating",
				Audit:        model.Audit{CreatedBy: p.CreatedBy, UpdatedBy: p.CreatedBy},
			}
			if err := tx.CreateNamespace(ctx, namespace); err != nil {
				return err
			}

			ob.Enqueue(p.ClusterID, fabric.TypeProjectNamespaceCreate, fabric.ProjectNamespaceCreateMessage{
				ProjectID: project.ID.String(),
				Name:      namespace.Name,
			})

			created = project

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Built and sent only after the creating transaction has committed (spec
	// §4.6/§4.7 step 5, S1): the new project's own quota must already be
	// visible to ListActiveQuotasByCluster for the allocation to carry it.
	msg, err := quota.BuildAllocationMessage(ctx, st, p.ClusterID, now)
	if err != nil {
		return nil, err
	}

	if err := sender.Send(ctx, p.ClusterID, fabric.TypeClusterQuotasAllocation, msg); err != nil {
		return nil, err
	}

	return created, nil
}
