package vm

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/daimatz/tinyjvm/pkg/classfile"
)

// RootClass is the class every superclass chain ends at.
const RootClass = "java/lang/Object"

// Registry owns every loaded class, keyed by the name read from its class
// file. Classes are never removed. Pointers handed out stay valid while
// further classes are loaded.
type Registry struct {
	classes map[string]*Class
	path    *ClassPath
	log     zerolog.Logger
}

// NewRegistry returns an empty registry that loads from path.
func NewRegistry(path *ClassPath, log zerolog.Logger) *Registry {
	if path == nil {
		path = NewClassPath()
	}
	return &Registry{
		classes: make(map[string]*Class),
		path:    path,
		log:     log,
	}
}

// ClassPath returns the class path searched on a cache miss.
func (r *Registry) ClassPath() *ClassPath { return r.path }

// Len returns the number of loaded classes.
func (r *Registry) Len() int { return len(r.classes) }

// Lookup returns a loaded class without touching the class path.
func (r *Registry) Lookup(name string) (*Class, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// Class returns the named class, loading it from the class path on the
// first request.
func (r *Registry) Class(name string) (*Class, error) {
	if c, ok := r.classes[name]; ok {
		return c, nil
	}

	rc, entry, err := r.path.Open(name)
	if err != nil {
		if name == RootClass && errors.Is(err, ErrClassNotFound) {
			r.log.Debug().Str("class", name).Msg("using built-in root class")
			return r.insert(name, builtinRoot()), nil
		}
		return nil, err
	}
	defer rc.Close()

	cf, err := classfile.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("loading %s from %s: %w", name, entry, err)
	}
	r.log.Debug().Str("class", cf.Name).Stringer("entry", entry).Msg("loaded class")
	return r.insert(name, cf), nil
}

// Define parses a class file from src and registers it under its own name.
func (r *Registry) Define(src io.Reader) (*Class, error) {
	cf, err := classfile.Parse(src)
	if err != nil {
		return nil, err
	}
	r.log.Debug().Str("class", cf.Name).Msg("defined class")
	return r.insert("", cf), nil
}

// insert registers a fully parsed class. When the name is already taken the
// existing class is kept so that field values stored in it survive.
func (r *Registry) insert(requested string, cf *classfile.Class) *Class {
	if requested != "" && requested != cf.Name {
		r.log.Warn().Str("requested", requested).Str("class", cf.Name).Msg("class file declares a different name")
	}
	if c, ok := r.classes[cf.Name]; ok {
		return c
	}
	c := newClass(cf)
	r.classes[cf.Name] = c
	return c
}

// ResolveMethod finds name+descriptor in c or the nearest superclass that
// declares it, and returns the declaring class with the method.
func (r *Registry) ResolveMethod(c *Class, name, descriptor string) (*Class, *classfile.Member, error) {
	var found *classfile.Member
	owner, err := r.walk(c, func(k *Class) bool {
		found = k.FindMethod(name, descriptor)
		return found != nil
	})
	if err != nil {
		return nil, nil, err
	}
	if owner == nil {
		return nil, nil, fmt.Errorf("%w: %s.%s%s", ErrMethodNotFound, c.Name, name, descriptor)
	}
	return owner, found, nil
}

// ResolveField finds the field slot for name+descriptor in c or its
// superclasses.
func (r *Registry) ResolveField(c *Class, name, descriptor string) (*Field, error) {
	var found *Field
	owner, err := r.walk(c, func(k *Class) bool {
		found = k.Field(name, descriptor)
		return found != nil
	})
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: %s.%s:%s", ErrFieldNotFound, c.Name, name, descriptor)
	}
	return found, nil
}

// walk visits c and then its superclasses, loading them as needed, until
// match returns true. It returns nil when the chain is exhausted.
func (r *Registry) walk(c *Class, match func(*Class) bool) (*Class, error) {
	seen := make(map[string]bool)
	for k := c; ; {
		if match(k) {
			return k, nil
		}
		seen[k.Name] = true
		if k.SuperName == "" || seen[k.SuperName] {
			return nil, nil
		}
		super, err := r.Class(k.SuperName)
		if err != nil {
			return nil, fmt.Errorf("loading superclass of %s: %w", k.Name, err)
		}
		k = super
	}
}

// builtinRoot stands in for java/lang/Object when no class path entry
// provides it. Its only method is an empty constructor.
func builtinRoot() *classfile.Class {
	return &classfile.Class{
		MajorVersion: 52,
		AccessFlags:  classfile.AccPublic | classfile.AccSuper,
		Name:         RootClass,
		Methods: []classfile.Member{{
			AccessFlags: classfile.AccPublic,
			Name:        "<init>",
			Descriptor:  "()V",
			Attributes: []classfile.Attribute{{
				Name: "Code",
				// max_stack 0, max_locals 1, return, empty tables
				Data: []byte{0, 0, 0, 1, 0, 0, 0, 1, 0xB1, 0, 0, 0, 0},
			}},
		}},
	}
}
