package store

import "sync"

// BatchedStore buffers declaration inserts in memory using fake (negative)
// IDs. It implements DataStore so extraction can write to it without
// knowing whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Classes    []ClassDecl
	Constants  []ConstantDecl
	Methods    []MethodDecl
	Properties []PropertyDecl
	Parameters []ParameterDecl

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertClass(c *ClassDecl) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = b.allocFakeID()
	cp := *c
	cp.Interfaces = append([]string(nil), c.Interfaces...)
	b.Classes = append(b.Classes, cp)
	return c.ID, nil
}

func (b *BatchedStore) InsertConstant(c *ConstantDecl) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = b.allocFakeID()
	b.Constants = append(b.Constants, *c)
	return c.ID, nil
}

func (b *BatchedStore) InsertMethod(m *MethodDecl) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m.ID = b.allocFakeID()
	b.Methods = append(b.Methods, *m)
	return m.ID, nil
}

func (b *BatchedStore) InsertProperty(p *PropertyDecl) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = b.allocFakeID()
	b.Properties = append(b.Properties, *p)
	return p.ID, nil
}

func (b *BatchedStore) InsertParameter(p *ParameterDecl) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = b.allocFakeID()
	b.Parameters = append(b.Parameters, *p)
	return p.ID, nil
}

// ClassesByFile returns classes for a file, merging any buffered (not yet
// committed) classes with those already in the database.
func (b *BatchedStore) ClassesByFile(fileID int64) ([]*ClassDecl, error) {
	classes, err := b.store.ClassesByFile(fileID)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Classes {
		if b.Classes[i].FileID == fileID {
			classes = append(classes, &b.Classes[i])
		}
	}
	return classes, nil
}
