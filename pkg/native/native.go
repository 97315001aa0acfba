// Package native provides host implementations of JDK methods declared
// native.
package native

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/daimatz/tinyjvm/pkg/vm"
)

// Host is the environment natives write to.
type Host struct {
	Stdout io.Writer
	Log    zerolog.Logger
}

// Register installs every native of this package into reg.
func Register(reg *vm.NativeRegistry, host Host) {
	if host.Stdout == nil {
		host.Stdout = os.Stdout
	}
	registerSystem(reg, host)
	registerMath(reg)
}

// Registry returns a new table holding every native of this package.
func Registry(host Host) *vm.NativeRegistry {
	reg := vm.NewNativeRegistry()
	Register(reg, host)
	return reg
}
