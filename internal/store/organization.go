package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/amd-eai/airm/internal/apierrors"
	"github.com/amd-eai/airm/internal/model"
)

// CreateOrganization inserts a new organization; Name is case-folded before
// storage (spec §3 "Name (unique, case-folded)").
func (s *Store) CreateOrganization(ctx context.Context, o *model.Organization) error {
	o.Name = strings.ToLower(o.Name)

	const q = `
		INSERT INTO organizations (id, name, identity_provider_id, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, now(), now(), $4, $4)
		RETURNING created_at, updated_at`

	err := s.pool.QueryRow(ctx, q, o.ID, o.Name, o.IdentityProviderID, o.CreatedBy).Scan(&o.CreatedAt, &o.UpdatedAt)

	return mapWriteError("create organization", err)
}

// GetOrganization fetches an organization by id.
func (s *Store) GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	const q = `
		SELECT id, name, identity_provider_id, created_at, updated_at, created_by, updated_by
		FROM organizations WHERE id = $1`

	var o model.Organization

	err := s.pool.QueryRow(ctx, q, id).Scan(&o.ID, &o.Name, &o.IdentityProviderID, &o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("organization", id.String())
	}

	if err != nil {
		return nil, err
	}

	return &o, nil
}

// GetOrganizationByName fetches an organization by its case-folded name.
func (s *Store) GetOrganizationByName(ctx context.Context, name string) (*model.Organization, error) {
	const q = `
		SELECT id, name, identity_provider_id, created_at, updated_at, created_by, updated_by
		FROM organizations WHERE name = $1`

	var o model.Organization

	err := s.pool.QueryRow(ctx, q, strings.ToLower(name)).Scan(&o.ID, &o.Name, &o.IdentityProviderID, &o.CreatedAt, &o.UpdatedAt, &o.CreatedBy, &o.UpdatedBy)
	if isNoRows(err) {
		return nil, apierrors.NotFound("organization", name)
	}

	if err != nil {
		return nil, err
	}

	return &o, nil
}
