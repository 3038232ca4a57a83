package port

import (
	"context"

	"github.com/victor-wayward/ironode/internal/core/domain"
)

// AccountRepository exposes persistence behaviour for accounts. Save is the
// only durable mutation path; every entity mutation is handed back here.
type AccountRepository interface {
	// Save upserts the whole account document. A zero Version inserts; a
	// non-zero Version updates with compare-and-swap and returns
	// repository.ErrConflict when the stored version moved on. Username
	// uniqueness violations surface as repository.ErrDuplicate; email
	// uniqueness is enforced by the validators because a federated
	// placeholder may legitimately share an address until activation merges
	// the two accounts.
	Save(ctx context.Context, account *domain.Account) error

	FindByID(ctx context.Context, id string) (*domain.Account, error)

	// FindByUsernameOrEmail resolves an identifier: values containing '@'
	// match the lowercased email, everything else the exact username.
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Account, error)

	// FindByFederatedIdentity matches, in order: the provider's external id,
	// the primary email, then any other provider's stored email. First match
	// wins.
	FindByFederatedIdentity(ctx context.Context, provider domain.Provider, externalID string, candidateEmails []string) (*domain.Account, error)

	// RemoveFederatedPlaceholder detaches and returns an account whose
	// federated sub-records assert the given email, excluding excludeID,
	// so its data can be folded into the account being activated. Returns
	// repository.ErrNotFound when no placeholder exists.
	RemoveFederatedPlaceholder(ctx context.Context, email string, excludeID string) (*domain.Account, error)
}

// MessageRepository appends to the contact message log. Append-only.
type MessageRepository interface {
	Append(ctx context.Context, message domain.ContactMessage) error
}
