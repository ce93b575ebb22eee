package database

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewMemoryDatabase opens a migrated in-memory database. Databases opened
// with different names are isolated from each other.
func NewMemoryDatabase(name string) (*Database, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	if name == "" {
		name = uuid.NewString()
	}
	db, err := NewDatabase(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
