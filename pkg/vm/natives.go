package vm

// NativeFunc implements a method flagged native. It receives the declaring
// class and the call arguments in declaration order, with the receiver first
// for instance methods.
type NativeFunc func(c *Class, args []Value) (Value, error)

type nativeKey struct {
	class, name, descriptor string
}

// NativeRegistry maps (class, method, descriptor) to host functions.
type NativeRegistry struct {
	funcs map[nativeKey]NativeFunc
}

// NewNativeRegistry returns an empty table.
func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{funcs: make(map[nativeKey]NativeFunc)}
}

// Register binds fn, replacing any earlier binding of the same key.
func (r *NativeRegistry) Register(class, name, descriptor string, fn NativeFunc) {
	r.funcs[nativeKey{class, name, descriptor}] = fn
}

// Lookup returns the function bound to the key.
func (r *NativeRegistry) Lookup(class, name, descriptor string) (NativeFunc, bool) {
	fn, ok := r.funcs[nativeKey{class, name, descriptor}]
	return fn, ok
}

// Len returns the number of bindings.
func (r *NativeRegistry) Len() int { return len(r.funcs) }
