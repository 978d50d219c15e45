package unitofwork

import "context"

// RepositoryFactory hands out fresh units of work. Services take the
// factory, never a live transaction.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
