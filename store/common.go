package store

// RowStatus is the visibility status of a row.
// ARCHIVED is the soft-deleted (recycle bin) state; archived rows are kept
// until their auto-delete deadline passes or an explicit purge removes them.
type RowStatus string

const (
	// Normal is the status for active rows.
	Normal RowStatus = "NORMAL"
	// Archived is the status for soft-deleted rows.
	Archived RowStatus = "ARCHIVED"
)

func (s RowStatus) String() string {
	return string(s)
}
