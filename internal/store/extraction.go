package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// execer is satisfied by both *sql.DB and *sql.Tx, so the insert helpers
// serve direct writes and CommitBatch alike.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, hash, line_count, has_errors, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Hash, f.LineCount, f.HasErrors, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileCols = "id, path, hash, line_count, has_errors, last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	err := scanner.Scan(&f.ID, &f.Path, &f.Hash, &f.LineCount, &f.HasErrors, &f.LastIndexed)
	return f, err
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FileByID(id int64) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Class operations ---

// InsertClass inserts a class and its interface list in one transaction.
func (s *Store) InsertClass(c *ClassDecl) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("insert class: begin: %w", err)
	}
	defer tx.Rollback()
	id, err := insertClass(tx, c)
	if err != nil {
		return 0, fmt.Errorf("insert class %q: %w", c.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert class %q: commit: %w", c.Name, err)
	}
	c.ID = id
	return id, nil
}

func insertClass(ex execer, c *ClassDecl) (int64, error) {
	res, err := ex.Exec(
		`INSERT INTO classes (file_id, name, lower_name, kind, modifiers, doc_comment,
			parent_name, parent_lower, signature_hash, start_line, end_line)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.FileID, c.Name, strings.ToLower(c.Name), c.Kind, c.Modifiers, c.DocComment,
		nullString(c.ParentName), nullString(strings.ToLower(c.ParentName)),
		c.SignatureHash, c.StartLine, c.EndLine,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, iface := range c.Interfaces {
		if _, err := ex.Exec(
			"INSERT INTO class_interfaces (class_id, name, lower_name, ordinal) VALUES (?, ?, ?, ?)",
			id, iface, strings.ToLower(iface), i,
		); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// ClassCols is the column list for class queries, exported for use by
// QueryBuilder.
const ClassCols = `id, file_id, name, kind, modifiers, doc_comment, parent_name,
	signature_hash, start_line, end_line`

func scanClass(scanner interface{ Scan(...any) error }) (*ClassDecl, error) {
	c := &ClassDecl{}
	var doc, parent, hash sql.NullString
	err := scanner.Scan(&c.ID, &c.FileID, &c.Name, &c.Kind, &c.Modifiers, &doc, &parent,
		&hash, &c.StartLine, &c.EndLine)
	if err != nil {
		return nil, err
	}
	c.DocComment, c.ParentName, c.SignatureHash = doc.String, parent.String, hash.String
	return c, nil
}

// QueryClasses runs a query selecting ClassCols and loads each class's
// interface list. Exported for use by QueryBuilder.
func (s *Store) QueryClasses(query string, args ...any) ([]*ClassDecl, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var classes []*ClassDecl
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	for _, c := range classes {
		if c.Interfaces, err = s.interfacesOf(c.ID); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

func (s *Store) interfacesOf(classID int64) ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM class_interfaces WHERE class_id = ? ORDER BY ordinal", classID)
	if err != nil {
		return nil, fmt.Errorf("interfaces of class %d: %w", classID, err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan interface: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ClassByName returns the first indexed class or interface called name,
// compared case-insensitively. Returns nil when none is indexed.
func (s *Store) ClassByName(name string) (*ClassDecl, error) {
	classes, err := s.QueryClasses(
		"SELECT "+ClassCols+" FROM classes WHERE lower_name = ? ORDER BY id LIMIT 1",
		strings.ToLower(strings.TrimPrefix(name, `\`)),
	)
	if err != nil {
		return nil, fmt.Errorf("class by name: %w", err)
	}
	if len(classes) == 0 {
		return nil, nil
	}
	return classes[0], nil
}

func (s *Store) ClassesByFile(fileID int64) ([]*ClassDecl, error) {
	return s.QueryClasses("SELECT "+ClassCols+" FROM classes WHERE file_id = ? ORDER BY id", fileID)
}

func (s *Store) ClassesByKind(kind string) ([]*ClassDecl, error) {
	return s.QueryClasses("SELECT "+ClassCols+" FROM classes WHERE kind = ? ORDER BY name", kind)
}

func (s *Store) AllClasses() ([]*ClassDecl, error) {
	return s.QueryClasses("SELECT " + ClassCols + " FROM classes ORDER BY name")
}

// ClassFile returns the path of the file declaring name, or "" when the class
// is not indexed.
func (s *Store) ClassFile(name string) (string, error) {
	var path string
	err := s.db.QueryRow(
		`SELECT f.path FROM classes c JOIN files f ON f.id = c.file_id
		 WHERE c.lower_name = ? ORDER BY c.id LIMIT 1`,
		strings.ToLower(strings.TrimPrefix(name, `\`)),
	).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("class file: %w", err)
	}
	return path, nil
}

// --- Member operations ---

func (s *Store) InsertConstant(c *ConstantDecl) (int64, error) {
	id, err := insertConstant(s.db, c)
	if err != nil {
		return 0, fmt.Errorf("insert constant: %w", err)
	}
	c.ID = id
	return id, nil
}

func insertConstant(ex execer, c *ConstantDecl) (int64, error) {
	res, err := ex.Exec(
		"INSERT INTO constants (class_id, name, value_kind, value_text) VALUES (?, ?, ?, ?)",
		c.ClassID, c.Name, string(c.Value.Kind), c.Value.Text,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ConstantsByClass(classID int64) ([]*ConstantDecl, error) {
	rows, err := s.db.Query(
		"SELECT id, class_id, name, value_kind, value_text FROM constants WHERE class_id = ? ORDER BY id", classID,
	)
	if err != nil {
		return nil, fmt.Errorf("constants by class: %w", err)
	}
	defer rows.Close()
	var consts []*ConstantDecl
	for rows.Next() {
		c := &ConstantDecl{}
		var kind string
		var text sql.NullString
		if err := rows.Scan(&c.ID, &c.ClassID, &c.Name, &kind, &text); err != nil {
			return nil, fmt.Errorf("scan constant: %w", err)
		}
		c.Value = Literal{Kind: LiteralKind(kind), Text: text.String}
		consts = append(consts, c)
	}
	return consts, rows.Err()
}

func (s *Store) InsertMethod(m *MethodDecl) (int64, error) {
	id, err := insertMethod(s.db, m)
	if err != nil {
		return 0, fmt.Errorf("insert method: %w", err)
	}
	m.ID = id
	return id, nil
}

func insertMethod(ex execer, m *MethodDecl) (int64, error) {
	res, err := ex.Exec(
		`INSERT INTO methods (class_id, name, modifiers, doc_comment, start_line, end_line)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ClassID, m.Name, m.Modifiers, m.DocComment, m.StartLine, m.EndLine,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) MethodsByClass(classID int64) ([]*MethodDecl, error) {
	rows, err := s.db.Query(
		`SELECT id, class_id, name, modifiers, doc_comment, start_line, end_line
		 FROM methods WHERE class_id = ? ORDER BY id`, classID,
	)
	if err != nil {
		return nil, fmt.Errorf("methods by class: %w", err)
	}
	defer rows.Close()
	var methods []*MethodDecl
	for rows.Next() {
		m := &MethodDecl{}
		var doc sql.NullString
		if err := rows.Scan(&m.ID, &m.ClassID, &m.Name, &m.Modifiers, &doc, &m.StartLine, &m.EndLine); err != nil {
			return nil, fmt.Errorf("scan method: %w", err)
		}
		m.DocComment = doc.String
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (s *Store) InsertProperty(p *PropertyDecl) (int64, error) {
	id, err := insertProperty(s.db, p)
	if err != nil {
		return 0, fmt.Errorf("insert property: %w", err)
	}
	p.ID = id
	return id, nil
}

func insertProperty(ex execer, p *PropertyDecl) (int64, error) {
	kind, text := literalColumns(p.Default)
	res, err := ex.Exec(
		`INSERT INTO properties (class_id, name, modifiers, doc_comment, value_kind, value_text)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ClassID, p.Name, p.Modifiers, p.DocComment, kind, text,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) PropertiesByClass(classID int64) ([]*PropertyDecl, error) {
	rows, err := s.db.Query(
		`SELECT id, class_id, name, modifiers, doc_comment, value_kind, value_text
		 FROM properties WHERE class_id = ? ORDER BY id`, classID,
	)
	if err != nil {
		return nil, fmt.Errorf("properties by class: %w", err)
	}
	defer rows.Close()
	var props []*PropertyDecl
	for rows.Next() {
		p := &PropertyDecl{}
		var doc, kind, text sql.NullString
		if err := rows.Scan(&p.ID, &p.ClassID, &p.Name, &p.Modifiers, &doc, &kind, &text); err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		p.DocComment = doc.String
		p.Default = scanLiteral(kind, text)
		props = append(props, p)
	}
	return props, rows.Err()
}

func (s *Store) InsertParameter(p *ParameterDecl) (int64, error) {
	id, err := insertParameter(s.db, p)
	if err != nil {
		return 0, fmt.Errorf("insert parameter: %w", err)
	}
	p.ID = id
	return id, nil
}

func insertParameter(ex execer, p *ParameterDecl) (int64, error) {
	kind, text := literalColumns(p.Default)
	res, err := ex.Exec(
		`INSERT INTO parameters (method_id, name, ordinal, by_ref, variadic, type_hint, value_kind, value_text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.MethodID, p.Name, p.Ordinal, p.ByRef, p.Variadic, p.TypeHint, kind, text,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ParametersByMethod(methodID int64) ([]*ParameterDecl, error) {
	rows, err := s.db.Query(
		`SELECT id, method_id, name, ordinal, by_ref, variadic, type_hint, value_kind, value_text
		 FROM parameters WHERE method_id = ? ORDER BY ordinal`, methodID,
	)
	if err != nil {
		return nil, fmt.Errorf("parameters by method: %w", err)
	}
	defer rows.Close()
	var params []*ParameterDecl
	for rows.Next() {
		p := &ParameterDecl{}
		var hint, kind, text sql.NullString
		if err := rows.Scan(&p.ID, &p.MethodID, &p.Name, &p.Ordinal, &p.ByRef, &p.Variadic, &hint, &kind, &text); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		p.TypeHint = hint.String
		p.Default = scanLiteral(kind, text)
		params = append(params, p)
	}
	return params, rows.Err()
}
