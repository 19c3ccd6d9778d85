package ports

import (
	"context"

	"github.com/bnema/stock-admin-cli/internal/domain"
)

// SessionStore persists at most one auth record. Load returns
// domain.ErrNoSession when nothing usable is stored; implementations delete
// anything structurally invalid rather than returning it.
type SessionStore interface {
	Save(ctx context.Context, auth domain.StoredAuth) error
	Load(ctx context.Context) (domain.StoredAuth, error)
	Clear(ctx context.Context) error
}
