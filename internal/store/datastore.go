package store

// DataStore is the interface for extraction-phase writes. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering for parallel extraction)
// implement it.
type DataStore interface {
	// Inserts return the assigned ID and set it on the record.
	InsertClass(c *ClassDecl) (int64, error)
	InsertConstant(c *ConstantDecl) (int64, error)
	InsertMethod(m *MethodDecl) (int64, error)
	InsertProperty(p *PropertyDecl) (int64, error)
	InsertParameter(p *ParameterDecl) (int64, error)

	ClassesByFile(fileID int64) ([]*ClassDecl, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
