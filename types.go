package cannedreports

import "fmt"

// StoreType names a ReportStore backend.
type StoreType string

const (
	StoreS3         StoreType = "s3"
	StoreFilesystem StoreType = "filesystem"
	StoreSQLite     StoreType = "sqlite"
	StorePostgres   StoreType = "postgres"
)

func (t StoreType) IsValid() bool {
	switch t {
	case StoreS3, StoreFilesystem, StoreSQLite, StorePostgres:
		return true
	default:
		return false
	}
}

// IsSQL reports whether the backend keeps reports in a database table.
func (t StoreType) IsSQL() bool {
	return t == StoreSQLite || t == StorePostgres
}

func ParseStoreType(s string) (StoreType, error) {
	st := StoreType(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid store type: %s (valid types: s3, filesystem, sqlite, postgres)", s)
	}
	return st, nil
}
