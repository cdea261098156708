package db

import (
	"strings"

	"github.com/persistorai/auditrail/internal/db/migrations"
)

// SchemaVersion returns the number of SQL migration files, which equals the
// schema version the binary expects.
func SchemaVersion() int64 {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		return 0
	}

	var count int64
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			count++
		}
	}

	return count
}
