package vm

import (
	"fmt"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/daimatz/tinyjvm/pkg/classfile"
)

const (
	// DefaultMaxDepth is the number of nested invocations allowed before a
	// call fails with ErrRecursionLimit.
	DefaultMaxDepth = 1024
	// DefaultCodeCacheSize is the number of decoded Code attributes kept.
	DefaultCodeCacheSize = 256
)

// MainDescriptor is the descriptor of a program entry point.
const MainDescriptor = "([Ljava/lang/String;)V"

// Option configures a Runtime.
type Option func(*options)

type options struct {
	fs        afero.Fs
	classPath []string
	natives   *NativeRegistry
	log       zerolog.Logger
	maxDepth  int
	cacheSize int
}

// WithFs sets the filesystem class files are read from. The default is the
// host filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithClassPath sets the directories and archives probed for classes, in
// order.
func WithClassPath(paths ...string) Option {
	return func(o *options) {
		o.classPath = paths
	}
}

// WithNatives sets the native method table.
func WithNatives(natives *NativeRegistry) Option {
	return func(o *options) {
		o.natives = natives
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithMaxDepth bounds nested invocations.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithCodeCacheSize sets how many decoded method bodies are cached.
func WithCodeCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// Runtime owns the class registry and native table and executes methods.
// It is not safe for concurrent use.
type Runtime struct {
	fs       afero.Fs
	registry *Registry
	natives  *NativeRegistry
	code     *lru.Cache
	log      zerolog.Logger
	maxDepth int
	depth    int
	frames   uint64
}

// New returns a Runtime configured by opts.
func New(opts ...Option) (*Runtime, error) {
	o := &options{
		classPath: []string{".", "src"},
		log:       zerolog.Nop(),
		maxDepth:  DefaultMaxDepth,
		cacheSize: DefaultCodeCacheSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.natives == nil {
		o.natives = NewNativeRegistry()
	}
	if o.maxDepth <= 0 {
		return nil, fmt.Errorf("max depth must be positive, got %d", o.maxDepth)
	}
	cache, err := lru.New(o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating code cache: %w", err)
	}
	return &Runtime{
		fs:       o.fs,
		registry: NewRegistry(ParseClassPath(o.fs, o.classPath), o.log),
		natives:  o.natives,
		code:     cache,
		log:      o.log,
		maxDepth: o.maxDepth,
	}, nil
}

// Registry returns the class registry.
func (r *Runtime) Registry() *Registry { return r.registry }

// Natives returns the native method table.
func (r *Runtime) Natives() *NativeRegistry { return r.natives }

// Class returns the named class, loading it if needed.
func (r *Runtime) Class(name string) (*Class, error) { return r.registry.Class(name) }

// LoadFile defines the class stored at path and puts its directory first on
// the class path so that classes next to it are found.
func (r *Runtime) LoadFile(path string) (*Class, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := r.registry.Define(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	r.registry.path.Prepend(DirEntry{Fs: r.fs, Dir: filepath.Dir(path)})
	return c, nil
}

// Invoke runs the named method of the named class to completion.
func (r *Runtime) Invoke(class, name, descriptor string, args ...Value) (Value, error) {
	c, err := r.registry.Class(class)
	if err != nil {
		return Value{}, err
	}
	return r.call(c, name, descriptor, args)
}

// RunMain runs main(String[]) of the named class with no arguments.
func (r *Runtime) RunMain(class string) error {
	_, err := r.Invoke(class, "main", MainDescriptor)
	return err
}

// Frame builds the activation for name+descriptor of c. Native methods get
// a native frame bound to their registered function; other methods get
// locals sized by the Code attribute and filled from args.
func (r *Runtime) Frame(c *Class, name, descriptor string, args []Value) (*Frame, error) {
	owner, m, err := r.registry.ResolveMethod(c, name, descriptor)
	if err != nil {
		return nil, err
	}
	r.frames++
	f := &Frame{
		rt:     r,
		id:     r.frames,
		class:  owner,
		method: m,
	}

	if m.AccessFlags.IsNative() {
		fn, ok := r.natives.Lookup(owner.Name, name, descriptor)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s%s", ErrUnsatisfiedLink, owner.Name, name, descriptor)
		}
		f.native = fn
		f.args = args
		return f, nil
	}

	code, err := r.codeOf(owner, m)
	if err != nil {
		return nil, err
	}
	slots := 0
	for _, a := range args {
		slots++
		if a.IsCategory2() {
			slots++
		}
	}
	f.code = code.Code
	f.locals = make([]Value, max(int(code.MaxLocals), slots))
	for i := range f.locals {
		f.locals[i] = IntValue(0)
	}
	i := 0
	for _, a := range args {
		f.locals[i] = a
		i++
		if a.IsCategory2() {
			f.locals[i] = VoidValue()
			i++
		}
	}
	f.stack = make([]Value, 0, code.MaxStack)
	return f, nil
}

// call runs one invocation, enforcing the nesting limit.
func (r *Runtime) call(c *Class, name, descriptor string, args []Value) (Value, error) {
	if r.depth >= r.maxDepth {
		return Value{}, fmt.Errorf("%w: %d nested calls", ErrRecursionLimit, r.maxDepth)
	}
	r.depth++
	defer func() { r.depth-- }()

	f, err := r.Frame(c, name, descriptor, args)
	if err != nil {
		return Value{}, err
	}
	return f.Exec()
}

func (r *Runtime) codeOf(c *Class, m *classfile.Member) (*classfile.CodeAttribute, error) {
	key := c.Name + "." + m.Name + m.Descriptor
	if v, ok := r.code.Get(key); ok {
		return v.(*classfile.CodeAttribute), nil
	}
	code, err := m.Code()
	if err != nil {
		return nil, fmt.Errorf("%s.%s%s: %w", c.Name, m.Name, m.Descriptor, err)
	}
	r.code.Add(key, code)
	return code, nil
}
