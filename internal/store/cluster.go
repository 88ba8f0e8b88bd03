package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

// CreateCluster inserts a new cluster. Name is unique within its
// organization, case-folded (spec §3).
func (s *Store) CreateCluster(ctx context.Context, c *model.Cluster) error {
	c.Name = strings.ToLower(c.Name)

	const q = `
		INSERT INTO clusters (id, organization_id, name, workloads_base_url, kube_api_url, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, now(), now(), $6, $6)
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, q, c.ID, c.OrganizationID, c.Name, c.WorkloadsBaseURL, c.KubeAPIURL, c.CreatedBy).
		Scan(&c.CreatedAt, &c.UpdatedAt)

	return mapWriteError("create cluster", err)
}

// GetCluster fetches a cluster by id.
func (s *Store) GetCluster(ctx context.Context, id uuid.UUID) (*model.Cluster, error) {
	const q = `
		SELECT id, organization_id, name, workloads_base_url, kube_api_url, last_heartbeat_at,
		       created_at, updated_at, created_by, updated_by
		FROM clusters WHERE id = $1`

	var c model.Cluster

	err := s.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.OrganizationID, &c.Name, &c.WorkloadsBaseURL, &c.KubeAPIURL,
		&c.LastHeartbeatAt, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("cluster", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &c, nil
}

// GetClusterByName fetches a cluster by its case-folded name within an
// organization, matching a name already adopted from a prior heartbeat
// (spec §4.5, §6 "Queue fabric" — the common queue carries no cluster id,
// so the first heartbeat from a freshly provisioned cluster must be
// matched some other way; see ListClustersByOrganization for that case).
func (s *Store) GetClusterByName(ctx context.Context, organizationID uuid.UUID, name string) (*model.Cluster, error) {
	const q = `
		SELECT id, organization_id, name, workloads_base_url, kube_api_url, last_heartbeat_at,
		       created_at, updated_at, created_by, updated_by
		FROM clusters WHERE organization_id = $1 AND name = $2`

	var c model.Cluster

	err := s.pool.QueryRow(ctx, q, organizationID, strings.ToLower(name)).Scan(&c.ID, &c.OrganizationID, &c.Name,
		&c.WorkloadsBaseURL, &c.KubeAPIURL, &c.LastHeartbeatAt, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("cluster", name)
	}

	if err != nil {
		return nil, err
	}

	return &c, nil
}

// ListClustersByOrganization returns every cluster row owned by
// organizationID, used by the heartbeat handler to find the single
// name-unset cluster awaiting its first heartbeat (spec §4.5 "if
// cluster.name is unset... adopts the name").
func (s *Store) ListClustersByOrganization(ctx context.Context, organizationID uuid.UUID) ([]model.Cluster, error) {
	const q = `
		SELECT id, organization_id, name, workloads_base_url, kube_api_url, last_heartbeat_at,
		       created_at, updated_at, created_by, updated_by
		FROM clusters WHERE organization_id = $1`

	rows, err := s.pool.Query(ctx, q, organizationID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []model.Cluster

	for rows.Next() {
		var c model.Cluster

		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.WorkloadsBaseURL, &c.KubeAPIURL,
			&c.LastHeartbeatAt, &c.CreatedAt, &c.UpdatedAt, &c.CreatedBy, &c.UpdatedBy); err != nil {
			return nil, err
		}

		out = append(out, c)
	}

	return out, rows.Err()
}

// UpdateClusterName adopts a new cluster name (used when a heartbeat's
// cluster_name doesn't yet match, spec §4.5).
func (s *Store) UpdateClusterName(ctx context.Context, id uuid.UUID, name, updatedBy string) error {
	const q = `UPDATE clusters SET name = $2, updated_at = now(), updated_by = $3 WHERE id = $1`

	_, err := s.pool.Exec(ctx, q, id, strings.ToLower(name), updatedBy)

	return mapWriteError("update cluster name", err)
}

// AdvanceHeartbeat sets last_heartbeat_at to at, but only if at is after
// the currently persisted value or the value is unset (spec §4.5 "advances
// last_heartbeat_at only forward").
func (s *Store) AdvanceHeartbeat(ctx context.Context, id uuid.UUID, at time.Time, updatedBy string) error {
	const q = `
		UPDATE clusters
		SET last_heartbeat_at = $2, updated_at = now(), updated_by = $3
		WHERE id = $1 AND (last_heartbeat_at IS NULL OR last_heartbeat_at < $2)`

	_, err := s.pool.Exec(ctx, q, id, at, updatedBy)

	return mapWriteError("advance heartbeat", err)
}

// ReplaceClusterNodes diff-reconciles the node set: unknown names are
// inserted, known names updated only when incoming.UpdatedAt strictly
// dominates the persisted value, and names missing from incoming are
// deleted (spec §4.5). It returns whether the set changed materially
// (insert/update/delete occurred), which drives re-emission of the quota
// allocation.
func (s *Store) ReplaceClusterNodes(ctx context.Context, clusterID uuid.UUID, incoming []model.ClusterNode, updatedBy string) (changed bool, err error) {
	err = s.inTx(ctx, func(tx pgxQuerier) error {
		existing, err := listClusterNodes(ctx, tx, clusterID)
		if err != nil {
			return err
		}

		byName := make(map[string]model.ClusterNode, len(existing))
		for _, n := range existing {
			byName[strings.ToLower(n.Name)] = n
		}

		seen := make(map[string]bool, len(incoming))

		for _, n := range incoming {
			key := strings.ToLower(n.Name)
			seen[key] = true

			prior, found := byName[key]

			switch {
			case !found:
				changed = true
				if err := insertClusterNode(ctx, tx, clusterID, n, updatedBy); err != nil {
					return err
				}
			case n.UpdatedAt.After(prior.UpdatedAt):
				changed = true
				if err := updateClusterNode(ctx, tx, prior.ID, n, updatedBy); err != nil {
					return err
				}
			}
		}

		for key, prior := range byName {
			if !seen[key] {
				changed = true
				if err := deleteClusterNode(ctx, tx, prior.ID); err != nil {
					return err
				}
			}
		}

		return nil
	})

	return changed, err
}

// pgxQuerier is the minimal subset of querier the node-reconcile helpers
// need; both *pgxpool.Pool and pgx.Tx satisfy it via Store.inTx.
type pgxQuerier = querier

func (s *Store) inTx(ctx context.Context, fn func(tx pgxQuerier) error) error {
	return s.WithTx(ctx, func(ctx context.Context, tx *Tx) error {
		return fn(tx.tx)
	})
}

func listClusterNodes(ctx context.Context, q pgxQuerier, clusterID uuid.UUID) ([]model.ClusterNode, error) {
	const query = `
		SELECT id, cluster_id, name, cpu_millicores, memory_bytes, ephemeral_bytes, gpu_count, gpu_vendor,
		       gpu_type, gpu_vram_bytes, gpu_product_name, ready, status_text, updated_at
		FROM cluster_nodes WHERE cluster_id = $1`

	rows, err := q.Query(ctx, query, clusterID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var nodes []model.ClusterNode

	for rows.Next() {
		var n model.ClusterNode

		if err := rows.Scan(&n.ID, &n.ClusterID, &n.Name, &n.CPUMillicores, &n.MemoryBytes, &n.EphemeralBytes,
			&n.GPUCount, &n.GPUVendor, &n.GPUType, &n.GPUVRAMBytes, &n.GPUProductName, &n.Ready, &n.StatusText, &n.UpdatedAt); err != nil {
			return nil, err
		}

		nodes = append(nodes, n)
	}

	return nodes, rows.Err()
}

func insertClusterNode(ctx context.Context, q pgxQuerier, clusterID uuid.UUID, n model.ClusterNode, updatedBy string) error {
	const query = `
		INSERT INTO cluster_nodes
			(id, cluster_id, name, cpu_millicores, memory_bytes, ephemeral_bytes, gpu_count, gpu_vendor,
			 gpu_type, gpu_vram_bytes, gpu_product_name, ready, status_text, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), $14, $15, $15)`

	_, err := q.Exec(ctx, query, uuid.New(), clusterID, n.Name, n.CPUMillicores, n.MemoryBytes, n.EphemeralBytes,
		n.GPUCount, n.GPUVendor, n.GPUType, n.GPUVRAMBytes, n.GPUProductName, n.Ready, n.StatusText, n.UpdatedAt, updatedBy)

	return err
}

func updateClusterNode(ctx context.Context, q pgxQuerier, id uuid.UUID, n model.ClusterNode, updatedBy string) error {
	const query = `
		UPDATE cluster_nodes SET
			cpu_millicores = $2, memory_bytes = $3, ephemeral_bytes = $4, gpu_count = $5, gpu_vendor = $6,
			gpu_type = $7, gpu_vram_bytes = $8, gpu_product_name = $9, ready = $10, status_text = $11,
			updated_at = $12, updated_by = $13
		WHERE id = $1`

	_, err := q.Exec(ctx, query, id, n.CPUMillicores, n.MemoryBytes, n.EphemeralBytes, n.GPUCount, n.GPUVendor,
		n.GPUType, n.GPUVRAMBytes, n.GPUProductName, n.Ready, n.StatusText, n.UpdatedAt, updatedBy)

	return err
}

func deleteClusterNode(ctx context.Context, q pgxQuerier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM cluster_nodes WHERE id = $1`, id)
	return err
}

// ListClusterNodes returns every node owned by a cluster.
func (s *Store) ListClusterNodes(ctx context.Context, clusterID uuid.UUID) ([]model.ClusterNode, error) {
	return listClusterNodes(ctx, s.pool, clusterID)
}
