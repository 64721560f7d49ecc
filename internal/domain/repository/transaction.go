package repository

import "context"

// TransactionManager runs multi-step writes atomically: linking an OAuth
// account, redeeming a one-time token, toggling a role.
type TransactionManager interface {
	// Execute commits when fn returns nil and rolls back otherwise. Repositories
	// obtained from the factory share the transaction.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to one transaction.
type RepositoryFactory interface {
	UserRepo() UserRepository
	OAuthAccountRepo() OAuthAccountRepository
	SessionRepo() SessionRepository
	TokenRepo() OneTimeTokenRepository
}
