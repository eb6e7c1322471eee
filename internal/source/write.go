package source

import (
	"fmt"

	"github.com/jward/staticrefl/internal/store"
)

// Write inserts the extracted declarations for fileID into ds. Each class
// gets its signature hash before insertion; members are inserted after
// their owner so they can reference its ID.
func (r *Result) Write(ds store.DataStore, fileID int64) error {
	for _, c := range r.Classes {
		decl := c.Decl
		decl.FileID = fileID
		decl.SignatureHash = c.signatureHash()
		classID, err := ds.InsertClass(&decl)
		if err != nil {
			return fmt.Errorf("source: write class %s: %w", decl.Name, err)
		}

		for _, k := range c.Constants {
			k.ClassID = classID
			if _, err := ds.InsertConstant(&k); err != nil {
				return fmt.Errorf("source: write constant %s::%s: %w", decl.Name, k.Name, err)
			}
		}
		for _, p := range c.Properties {
			p.ClassID = classID
			if _, err := ds.InsertProperty(&p); err != nil {
				return fmt.Errorf("source: write property %s::$%s: %w", decl.Name, p.Name, err)
			}
		}
		for _, m := range c.Methods {
			md := m.Decl
			md.ClassID = classID
			methodID, err := ds.InsertMethod(&md)
			if err != nil {
				return fmt.Errorf("source: write method %s::%s: %w", decl.Name, md.Name, err)
			}
			for _, p := range m.Parameters {
				p.MethodID = methodID
				if _, err := ds.InsertParameter(&p); err != nil {
					return fmt.Errorf("source: write parameter %s::%s $%s: %w", decl.Name, md.Name, p.Name, err)
				}
			}
		}
	}
	return nil
}

func (c *Class) signatureHash() string {
	consts := make([]*store.ConstantDecl, len(c.Constants))
	for i := range c.Constants {
		consts[i] = &c.Constants[i]
	}
	props := make([]*store.PropertyDecl, len(c.Properties))
	for i := range c.Properties {
		props[i] = &c.Properties[i]
	}
	methods := make([]*store.MethodDecl, len(c.Methods))
	params := make([][]*store.ParameterDecl, len(c.Methods))
	for i, m := range c.Methods {
		methods[i] = &m.Decl
		for j := range m.Parameters {
			params[i] = append(params[i], &m.Parameters[j])
		}
	}
	return store.ComputeSignatureHash(&c.Decl, consts, methods, props, params)
}
