package store

import (
	"path/filepath"
	"testing"
	"time"

	errs "github.com/jward/staticrefl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// insertTestFile is a helper that inserts a file and returns it with ID set.
func insertTestFile(t *testing.T, s *Store, path string) *File {
	t.Helper()
	f := &File{Path: path, Hash: "abc123", LineCount: 10, LastIndexed: time.Now().Truncate(time.Second)}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)
	return f
}

// insertTestClass inserts a class with minimal required fields.
func insertTestClass(t *testing.T, s *Store, fileID int64, name, parent string, ifaces ...string) *ClassDecl {
	t.Helper()
	c := &ClassDecl{FileID: fileID, Name: name, Kind: "class", ParentName: parent, Interfaces: ifaces}
	id, err := s.InsertClass(c)
	require.NoError(t, err)
	require.Positive(t, id)
	return c
}

func names(classes []*ClassDecl) []string {
	out := make([]string, len(classes))
	for i, c := range classes {
		out[i] = c.Name
	}
	return out
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	expectedTables := []string{
		"files", "classes", "class_interfaces", "constants",
		"methods", "properties", "parameters", "metadata",
	}
	for _, table := range expectedTables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestMigrate_WALMode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	var mode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
}

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("scripts_hash")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("scripts_hash", "one"))
	require.NoError(t, s.SetMetadata("scripts_hash", "two"))
	v, err = s.GetMetadata("scripts_hash")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

// =============================================================================
// File operations
// =============================================================================

func TestFile_InsertAndRetrieve(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	now := time.Now().Truncate(time.Second)
	f := &File{Path: "/src/User.php", Hash: "sha256abc", LineCount: 42, HasErrors: true, LastIndexed: now}
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := s.FileByPath("/src/User.php")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "sha256abc", got.Hash)
	assert.Equal(t, 42, got.LineCount)
	assert.True(t, got.HasErrors)

	byID, err := s.FileByID(id)
	require.NoError(t, err)
	assert.Equal(t, "/src/User.php", byID.Path)
}

func TestFile_ByPathNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	got, err := s.FileByPath("/nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFile_ListSortedByPath(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestFile(t, s, "/b.php")
	insertTestFile(t, s, "/a.php")

	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/a.php", files[0].Path)
}

// =============================================================================
// Class operations
// =============================================================================

func TestClass_InsertAndQueryByFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/User.php")

	c := &ClassDecl{
		FileID: f.ID, Name: `App\User`, Kind: "class", Modifiers: 64,
		DocComment: "/** User */", ParentName: `App\Model`,
		Interfaces: []string{"JsonSerializable", "Countable"},
		SignatureHash: "h1", StartLine: 3, EndLine: 20,
	}
	id, err := s.InsertClass(c)
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)

	classes, err := s.ClassesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	got := classes[0]
	assert.Equal(t, `App\User`, got.Name)
	assert.Equal(t, 64, got.Modifiers)
	assert.Equal(t, "/** User */", got.DocComment)
	assert.Equal(t, `App\Model`, got.ParentName)
	assert.Equal(t, []string{"JsonSerializable", "Countable"}, got.Interfaces)
	assert.Equal(t, "h1", got.SignatureHash)
	assert.Equal(t, 3, got.StartLine)
}

func TestClass_ByNameIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/User.php")
	insertTestClass(t, s, f.ID, `App\User`, "")

	got, err := s.ClassByName(`\app\USER`)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `App\User`, got.Name)
	assert.Empty(t, got.ParentName)

	missing, err := s.ClassByName("Nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClass_ByKind(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.php")
	insertTestClass(t, s, f.ID, "Impl", "")
	_, err := s.InsertClass(&ClassDecl{FileID: f.ID, Name: "Contract", Kind: "interface"})
	require.NoError(t, err)

	ifaces, err := s.ClassesByKind("interface")
	require.NoError(t, err)
	assert.Equal(t, []string{"Contract"}, names(ifaces))

	all, err := s.AllClasses()
	require.NoError(t, err)
	assert.Equal(t, []string{"Contract", "Impl"}, names(all))
}

func TestClass_File(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/Foo.php")
	insertTestClass(t, s, f.ID, `Vendor\Foo`, "")

	path, err := s.ClassFile(`\vendor\foo`)
	require.NoError(t, err)
	assert.Equal(t, "/src/Foo.php", path)

	path, err = s.ClassFile("Bar")
	require.NoError(t, err)
	assert.Empty(t, path)
}

// =============================================================================
// Member operations
// =============================================================================

func TestMembers_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/a.php")
	c := insertTestClass(t, s, f.ID, "Repo", "")

	_, err := s.InsertConstant(&ConstantDecl{ClassID: c.ID, Name: "LIMIT", Value: Literal{Kind: LiteralInt, Text: "10"}})
	require.NoError(t, err)
	_, err = s.InsertProperty(&PropertyDecl{ClassID: c.ID, Name: "items", Modifiers: 512, Default: &Literal{Kind: LiteralArray}})
	require.NoError(t, err)
	_, err = s.InsertProperty(&PropertyDecl{ClassID: c.ID, Name: "db", Modifiers: 1024})
	require.NoError(t, err)
	m := &MethodDecl{ClassID: c.ID, Name: "find", Modifiers: 256, DocComment: "/** find */", StartLine: 5, EndLine: 7}
	_, err = s.InsertMethod(m)
	require.NoError(t, err)
	_, err = s.InsertParameter(&ParameterDecl{MethodID: m.ID, Name: "limit", Ordinal: 1, Default: &Literal{Kind: LiteralNull, Text: "null"}})
	require.NoError(t, err)
	_, err = s.InsertParameter(&ParameterDecl{MethodID: m.ID, Name: "id", Ordinal: 0, ByRef: true, TypeHint: `App\Id`})
	require.NoError(t, err)

	consts, err := s.ConstantsByClass(c.ID)
	require.NoError(t, err)
	require.Len(t, consts, 1)
	assert.Equal(t, int64(10), consts[0].Value.Value())

	props, err := s.PropertiesByClass(c.ID)
	require.NoError(t, err)
	require.Len(t, props, 2)
	require.NotNil(t, props[0].Default)
	assert.Equal(t, LiteralArray, props[0].Default.Kind)
	assert.Nil(t, props[1].Default)

	methods, err := s.MethodsByClass(c.ID)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "/** find */", methods[0].DocComment)

	params, err := s.ParametersByMethod(m.ID)
	require.NoError(t, err)
	require.Len(t, params, 2)
	assert.Equal(t, "id", params[0].Name)
	assert.True(t, params[0].ByRef)
	assert.Equal(t, `App\Id`, params[0].TypeHint)
	assert.Nil(t, params[0].Default)
	require.NotNil(t, params[1].Default)
	assert.Nil(t, params[1].Default.Value())
}

func TestDeleteFileData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	keep := insertTestFile(t, s, "/keep.php")
	drop := insertTestFile(t, s, "/drop.php")
	insertTestClass(t, s, keep.ID, "Keep", "")
	c := insertTestClass(t, s, drop.ID, "Drop", "", "I")
	m := &MethodDecl{ClassID: c.ID, Name: "run"}
	_, err := s.InsertMethod(m)
	require.NoError(t, err)
	_, err = s.InsertParameter(&ParameterDecl{MethodID: m.ID, Name: "x"})
	require.NoError(t, err)
	_, err = s.InsertConstant(&ConstantDecl{ClassID: c.ID, Name: "A", Value: Literal{Kind: LiteralInt, Text: "1"}})
	require.NoError(t, err)

	require.NoError(t, s.DeleteFileData(drop.ID))

	got, err := s.FileByPath("/drop.php")
	require.NoError(t, err)
	assert.Nil(t, got)
	for _, table := range []string{"parameters", "methods", "constants", "class_interfaces"} {
		var n int
		require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
	all, err := s.AllClasses()
	require.NoError(t, err)
	assert.Equal(t, []string{"Keep"}, names(all))
}

// =============================================================================
// Hierarchy
// =============================================================================

func TestHierarchy_DirectAndDescendants(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/h.php")
	insertTestClass(t, s, f.ID, "Base", "")
	insertTestClass(t, s, f.ID, "Middle", "Base")
	insertTestClass(t, s, f.ID, "Leaf", `\middle`)
	insertTestClass(t, s, f.ID, "Other", "")
	insertTestClass(t, s, f.ID, "Impl", "", "Countable")
	insertTestClass(t, s, f.ID, "SubImpl", "Impl")

	direct, err := s.DirectSubclasses("base")
	require.NoError(t, err)
	assert.Equal(t, []string{"Middle"}, names(direct))

	impls, err := s.DirectImplementors("countable")
	require.NoError(t, err)
	assert.Equal(t, []string{"Impl"}, names(impls))

	desc, err := s.Descendants("Base")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Middle", "Leaf"}, names(desc))

	desc, err = s.Descendants("Countable", "Other")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Impl", "SubImpl"}, names(desc))
}

func TestHintUsers(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/u.php")
	insertTestClass(t, s, f.ID, `App\Money`, "")
	user := insertTestClass(t, s, f.ID, `App\Wallet`, "")
	other := insertTestClass(t, s, f.ID, `App\Ledger`, "")

	m := &MethodDecl{ClassID: user.ID, Name: "add", Modifiers: 256}
	_, err := s.InsertMethod(m)
	require.NoError(t, err)
	_, err = s.InsertParameter(&ParameterDecl{MethodID: m.ID, Name: "amount", Ordinal: 0, TypeHint: `App\Money`})
	require.NoError(t, err)
	_, err = s.InsertParameter(&ParameterDecl{MethodID: m.ID, Name: "note", Ordinal: 1, TypeHint: "array"})
	require.NoError(t, err)
	m2 := &MethodDecl{ClassID: other.ID, Name: "post", Modifiers: 256}
	_, err = s.InsertMethod(m2)
	require.NoError(t, err)
	_, err = s.InsertParameter(&ParameterDecl{MethodID: m2.ID, Name: "entry", Ordinal: 0})
	require.NoError(t, err)

	users, err := s.HintUsers(`\app\money`)
	require.NoError(t, err)
	assert.Equal(t, []string{`App\Wallet`}, names(users))

	users, err = s.HintUsers(`App\Ledger`)
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = s.HintUsers()
	require.NoError(t, err)
	assert.Empty(t, users)
}

// =============================================================================
// Resolver & Hash
// =============================================================================

func TestResolver(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := insertTestFile(t, s, "/src/Foo.php")
	insertTestClass(t, s, f.ID, `Vendor\Foo`, "")

	r := NewResolver(s)
	assert.True(t, r.HasPathnameForClass(`\Vendor\Foo`))
	path, err := r.PathnameForClass(`vendor\foo`)
	require.NoError(t, err)
	assert.Equal(t, "/src/Foo.php", path)

	assert.False(t, r.HasPathnameForClass("Missing"))
	_, err = r.PathnameForClass("Missing")
	assert.ErrorIs(t, err, &errs.Error{Code: errs.CodeNotFound, Subject: "Missing"})
}

func TestComputeSignatureHash(t *testing.T) {
	t.Parallel()
	c := &ClassDecl{Name: "A", Kind: "class", Interfaces: []string{"I", "J"}}
	methods := []*MethodDecl{{Name: "run", Modifiers: 256}}
	params := [][]*ParameterDecl{{{Name: "x", Ordinal: 0}}}

	base := ComputeSignatureHash(c, nil, methods, nil, params)
	assert.Len(t, base, 64)

	// Lines and interface order do not matter.
	moved := &ClassDecl{Name: "a", Kind: "class", Interfaces: []string{"J", "I"}, StartLine: 9}
	assert.Equal(t, base, ComputeSignatureHash(moved, nil, []*MethodDecl{{Name: "RUN", Modifiers: 256, StartLine: 3}}, nil, params))

	// Doc comments are reflected, so they do.
	documented := &ClassDecl{Name: "A", Kind: "class", Interfaces: []string{"I", "J"}, DocComment: "/** x */"}
	assert.NotEqual(t, base, ComputeSignatureHash(documented, nil, methods, nil, params))
	assert.NotEqual(t, base, ComputeSignatureHash(c, nil, []*MethodDecl{{Name: "run", Modifiers: 256, DocComment: "/** run */"}}, nil, params))
	props := []*PropertyDecl{{Name: "p", Modifiers: 256}}
	assert.NotEqual(t,
		ComputeSignatureHash(c, nil, methods, props, params),
		ComputeSignatureHash(c, nil, methods, []*PropertyDecl{{Name: "p", Modifiers: 256, DocComment: "/** p */"}}, params),
	)

	// A parameter default does.
	changed := [][]*ParameterDecl{{{Name: "x", Ordinal: 0, Default: ptr(Literal{Kind: LiteralInt, Text: "1"})}}}
	assert.NotEqual(t, base, ComputeSignatureHash(c, nil, methods, nil, changed))

	withConst := []*ConstantDecl{{Name: "X", Value: Literal{Kind: LiteralInt, Text: "1"}}}
	assert.NotEqual(t, base, ComputeSignatureHash(c, withConst, methods, nil, params))
}

func TestLiteral_Value(t *testing.T) {
	t.Parallel()
	tests := []struct {
		lit  Literal
		want any
	}{
		{Literal{LiteralNull, "NULL"}, nil},
		{Literal{LiteralBool, "TRUE"}, true},
		{Literal{LiteralBool, "false"}, false},
		{Literal{LiteralInt, "255"}, int64(255)},
		{Literal{LiteralFloat, "1.5"}, 1.5},
		{Literal{LiteralString, "hello"}, "hello"},
		{Literal{LiteralArray, "[]"}, []any{}},
		{Literal{LiteralExpr, "self::A + 1"}, "self::A + 1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.lit.Value(), "%+v", tt.lit)
	}
	assert.Equal(t, `"hi"`, Literal{LiteralString, "hi"}.String())
}
