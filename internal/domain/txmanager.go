package domain

// TxManager runs fn inside a single committed database transaction. It
// exists so a service can span several repositories' writes atomically
// (spec.md §5, the pattern-learning triple-write in §4.10 and the sync-mode
// gap fill in §4.9) without those repositories' interfaces needing to know
// about each other. fn's own repository calls must be built against the
// same underlying connection the TxManager implementation hands out --
// postgres.TxManager does this through a txHolder it shares with every
// postgres.*Repository built on the same pool: WithinTx stores the open
// pgx.Tx there, and each repository checks for one before falling back to
// its pool.
type TxManager interface {
	WithinTx(fn func() error) error
}
