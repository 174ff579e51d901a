package postgres

import (
	"fmt"
	"strings"
)

// placeholder returns a placeholder for PostgreSQL (uses $1, $2, ...)
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n placeholders for PostgreSQL
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

// nullableTs maps a zero-valued timestamp pointer to SQL NULL, so update
// requests can clear deleted_ts/auto_delete_ts on restore.
func nullableTs(v *int64) any {
	if v == nil || *v == 0 {
		return nil
	}
	return *v
}
