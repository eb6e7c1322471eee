package staticrefl

import (
	"github.com/jward/staticrefl/internal/reflection"
	"github.com/jward/staticrefl/internal/store"
)

// Public type aliases for the internal types used in the Engine and
// QueryBuilder APIs. They are identical to the internal types; no
// conversion is needed.

type Store = store.Store
type File = store.File
type ClassDecl = store.ClassDecl

type Class = reflection.Class
type Method = reflection.Method
type Property = reflection.Property
type Parameter = reflection.Parameter
type Modifier = reflection.Modifier

// FilterAll selects every member in Class.Methods and Class.Properties.
const FilterAll = reflection.FilterAll
