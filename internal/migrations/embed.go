package migrations

import "embed"

// Files — SQL-миграции, применяются по порядку имён
//
//go:embed *.sql
var Files embed.FS
