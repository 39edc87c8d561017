package expr

// BindingID identifies one parameter slot in the evaluation scope.
type BindingID int

// Env is the mutable binding scope for a single top-level evaluation. It is
// single-writer: two concurrent evaluations must never share an Env, since
// function application mutates it in place. Trees and tags are read-only and
// may be shared freely.
type Env struct {
	vars map[BindingID]any
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{vars: make(map[BindingID]any)}
}

// Seed pre-binds id before evaluation starts and returns the Env for chaining.
func (e *Env) Seed(id BindingID, value any) *Env {
	e.vars[id] = value
	return e
}

// Bind inserts or overwrites the value for id.
func (e *Env) Bind(id BindingID, value any) {
	e.vars[id] = value
}

// Lookup returns the value bound to id.
func (e *Env) Lookup(id BindingID) (any, error) {
	v, ok := e.vars[id]
	if !ok {
		return nil, &BindingNotFoundError{ID: id}
	}
	return v, nil
}

// Unbind removes the entry for id.
func (e *Env) Unbind(id BindingID) {
	delete(e.vars, id)
}

// swap binds id to value and returns a restore func that reinstates whatever
// was bound before (or removes the entry if there was none). Function
// application brackets body evaluation with swap/restore so that a nested
// call shadowing an outer call's parameter id leaves the outer binding
// intact on every exit path.
func (e *Env) swap(id BindingID, value any) (restore func()) {
	prev, had := e.vars[id]
	e.vars[id] = value
	return func() {
		if had {
			e.vars[id] = prev
		} else {
			delete(e.vars, id)
		}
	}
}
