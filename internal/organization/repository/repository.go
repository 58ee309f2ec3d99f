package repository

import (
	"context"

	"referral-network-hub/backend/internal/organization/domain"
)

// Repository defines persistence for organizations. The auth core only reads organizations;
// Create exists for the seed command.
type Repository interface {
	GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error)
	CreateOrganization(ctx context.Context, o *domain.Org) error
}
