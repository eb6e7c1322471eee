package store

import (
	"fmt"
	"strings"
)

// DirectSubclasses returns the classes whose parent is name.
func (s *Store) DirectSubclasses(name string) ([]*ClassDecl, error) {
	classes, err := s.QueryClasses(
		"SELECT "+ClassCols+" FROM classes WHERE parent_lower = ? ORDER BY name",
		lowerKey(name),
	)
	if err != nil {
		return nil, fmt.Errorf("direct subclasses: %w", err)
	}
	return classes, nil
}

// DirectImplementors returns the classes implementing, and the interfaces
// extending, the interface name.
func (s *Store) DirectImplementors(name string) ([]*ClassDecl, error) {
	classes, err := s.QueryClasses(
		`SELECT `+ClassCols+` FROM classes WHERE id IN (
			SELECT class_id FROM class_interfaces WHERE lower_name = ?
		) ORDER BY name`,
		lowerKey(name),
	)
	if err != nil {
		return nil, fmt.Errorf("direct implementors: %w", err)
	}
	return classes, nil
}

// Descendants returns every class that extends or implements one of names,
// directly or transitively. The roots themselves are excluded unless they
// are reachable from another root.
func (s *Store) Descendants(names ...string) ([]*ClassDecl, error) {
	seen := make(map[string]bool)
	frontier := make([]string, 0, len(names))
	for _, n := range names {
		frontier = append(frontier, lowerKey(n))
	}

	var result []*ClassDecl
	for len(frontier) > 0 {
		placeholders := placeholderList(len(frontier))
		args := stringsToArgs(frontier)
		classes, err := s.QueryClasses(
			`SELECT `+ClassCols+` FROM classes
			 WHERE parent_lower IN (`+placeholders+`)
			    OR id IN (SELECT class_id FROM class_interfaces WHERE lower_name IN (`+placeholders+`))
			 ORDER BY name`,
			append(args, args...)...,
		)
		if err != nil {
			return nil, fmt.Errorf("descendants: %w", err)
		}
		frontier = frontier[:0]
		for _, c := range classes {
			key := strings.ToLower(c.Name)
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, c)
			frontier = append(frontier, key)
		}
	}
	return result, nil
}

// HintUsers returns the classes declaring a method parameter whose type
// hint names one of names.
func (s *Store) HintUsers(names ...string) ([]*ClassDecl, error) {
	if len(names) == 0 {
		return nil, nil
	}
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = lowerKey(n)
	}
	classes, err := s.QueryClasses(
		`SELECT `+ClassCols+` FROM classes WHERE id IN (
			SELECT m.class_id FROM methods m
			JOIN parameters p ON p.method_id = m.id
			WHERE lower(p.type_hint) IN (`+placeholderList(len(keys))+`)
		) ORDER BY name`,
		stringsToArgs(keys)...,
	)
	if err != nil {
		return nil, fmt.Errorf("hint users: %w", err)
	}
	return classes, nil
}

func lowerKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, `\`))
}
