// Package schema locates the on-disk CQL files that make up a
// keyspace's baseline and its ordered migration history.
package schema

import (
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Catalog points at the schema directory tree for one keyspace:
// <Root>/<Keyspace>/baseline/*.cql and
// <Root>/<Keyspace>/schema_migrations/*.cql.
type Catalog struct {
	Root     string
	Keyspace string
}

// Baselines returns the absolute paths of the keyspace's baseline CQL
// files, sorted by basename. A missing directory is not an error; it
// just yields no baselines.
func (c Catalog) Baselines() []string {
	return c.listCQL(filepath.Join(c.Root, c.Keyspace, "baseline"))
}

// Migrations returns the absolute paths of the keyspace's migration
// scripts, sorted by basename so they run in the order their names
// imply (e.g. "001_...", "002_...").
func (c Catalog) Migrations() []string {
	return c.listCQL(filepath.Join(c.Root, c.Keyspace, "schema_migrations"))
}

func (c Catalog) listCQL(dir string) []string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("schema: no directory at %q, treating as empty", dir)
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".cql") {
			log.Printf("schema: skipping non-CQL file %q", filepath.Join(dir, e.Name()))
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths
}

// TableName derives the baseline table name a script path is named
// after, i.e. the basename with its ".cql" suffix stripped.
func TableName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".cql")
}
