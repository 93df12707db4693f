package enums

// ImportRunStatus maps to the import_run_status_enum enum in Postgres.
type ImportRunStatus string

const (
	ImportRunStatusRunning ImportRunStatus = "running"
	ImportRunStatusDone    ImportRunStatus = "done"
	ImportRunStatusError   ImportRunStatus = "error"
)

// IsValid reports whether the value matches the canonical run status enum.
func (s ImportRunStatus) IsValid() bool {
	switch s {
	case ImportRunStatusRunning, ImportRunStatusDone, ImportRunStatusError:
		return true
	}
	return false
}

// IsTerminal reports whether the run can no longer make progress.
func (s ImportRunStatus) IsTerminal() bool {
	return s == ImportRunStatusDone || s == ImportRunStatusError
}
