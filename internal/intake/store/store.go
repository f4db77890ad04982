// Package store defines persistence for pending intake requests.
package store

import (
	"context"

	"xftledger/internal/intake/models"
	id "xftledger/pkg/domain"
)

// Store persists pending requests. Delete is the consumption primitive: it
// removes the request and returns sentinel.ErrNotFound if it was already
// gone, which is what makes settlement replay-safe.
type Store interface {
	Create(ctx context.Context, req *models.Request) error
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	ByAccount(ctx context.Context, account id.Address) ([]*models.Request, error)
	Delete(ctx context.Context, requestID id.RequestID) error
}
