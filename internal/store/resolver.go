package store

import (
	errs "github.com/jward/staticrefl/internal/errors"
)

// Resolver answers class lookups from the index. Lookups are
// case-insensitive, like PHP class names.
type Resolver struct {
	store *Store
}

func NewResolver(s *Store) *Resolver {
	return &Resolver{store: s}
}

func (r *Resolver) HasPathnameForClass(name string) bool {
	path, err := r.store.ClassFile(name)
	return err == nil && path != ""
}

// PathnameForClass returns the indexed file declaring name. Database errors
// are returned as is so a resolver chain does not mistake them for a miss.
func (r *Resolver) PathnameForClass(name string) (string, error) {
	path, err := r.store.ClassFile(name)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errs.PathnameNotFound(name)
	}
	return path, nil
}
