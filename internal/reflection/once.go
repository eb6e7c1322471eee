package reflection

import errs "github.com/jward/staticrefl/internal/errors"

// once is a deferred field: unset until init succeeds, then fixed.
type once[T any] struct {
	value T
	set   bool
}

func (o *once[T]) init(field string, v T) error {
	if o.set {
		return errs.AlreadyInitialized(field)
	}
	o.value = v
	o.set = true
	return nil
}

func (o *once[T]) get() (T, bool) {
	return o.value, o.set
}
