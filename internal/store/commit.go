package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real IDs
// and every FK inside the batch is rewritten through the fakeToReal map.
//
// Insert order respects FK dependencies:
//  1. Classes (depend on file_id only, which is already real)
//  2. Constants, Methods, Properties (depend on class_id)
//  3. Parameters (depend on method_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id int64, what, name string) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("commit batch: %s %q refers to id %d outside the batch", what, name, id)
		}
		return realID, nil
	}

	// 1. Classes
	for _, c := range batch.Classes {
		realID, err := insertClass(tx, &c)
		if err != nil {
			return fmt.Errorf("commit batch: class %q: %w", c.Name, err)
		}
		fakeToReal[c.ID] = realID
	}

	// 2. Members
	for _, c := range batch.Constants {
		if c.ClassID, err = remap(c.ClassID, "constant", c.Name); err != nil {
			return err
		}
		if _, err := insertConstant(tx, &c); err != nil {
			return fmt.Errorf("commit batch: constant %q: %w", c.Name, err)
		}
	}
	for _, m := range batch.Methods {
		if m.ClassID, err = remap(m.ClassID, "method", m.Name); err != nil {
			return err
		}
		realID, err := insertMethod(tx, &m)
		if err != nil {
			return fmt.Errorf("commit batch: method %q: %w", m.Name, err)
		}
		fakeToReal[m.ID] = realID
	}
	for _, p := range batch.Properties {
		if p.ClassID, err = remap(p.ClassID, "property", p.Name); err != nil {
			return err
		}
		if _, err := insertProperty(tx, &p); err != nil {
			return fmt.Errorf("commit batch: property %q: %w", p.Name, err)
		}
	}

	// 3. Parameters
	for _, p := range batch.Parameters {
		if p.MethodID, err = remap(p.MethodID, "parameter", p.Name); err != nil {
			return err
		}
		if _, err := insertParameter(tx, &p); err != nil {
			return fmt.Errorf("commit batch: parameter %q: %w", p.Name, err)
		}
	}

	return tx.Commit()
}
