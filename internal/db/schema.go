package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// EnsureSchema creates schema if it does not exist.
func EnsureSchema(d *gorm.DB, schema string) error {
	if schema == "" || strings.ContainsAny(schema, "\"; ") {
		return fmt.Errorf("invalid schema name %q", schema)
	}
	return d.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error
}
