// Package migrations embeds the SQL migration files so they can be applied
// by the goose programmatic API at server start and in tests.
// Each storage dialect keeps its own directory; the schemas are equivalent.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// SQLite returns the migrations for the SQLite backend, rooted so that goose
// sees the *.sql files at the top level.
func SQLite() fs.FS {
	return mustSub("sqlite")
}

// Postgres returns the migrations for the Postgres backend.
func Postgres() fs.FS {
	return mustSub("postgres")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		// Only reachable if the embed pattern above is changed.
		panic("migrations: " + err.Error())
	}
	return sub
}
