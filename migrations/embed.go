// Package migrations holds the conectsim SQLite schema as versioned SQL
// files and registers them as database.Schema when imported.
package migrations

import (
	"embed"

	"github.com/nerrad567/conectsim/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.Schema = database.Source{FS: files, Dir: "."}
}
