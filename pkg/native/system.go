package native

import (
	"fmt"

	"github.com/daimatz/tinyjvm/pkg/vm"
)

func registerSystem(reg *vm.NativeRegistry, host Host) {
	reg.Register("java/lang/System", "registerNatives", "()V", func(c *vm.Class, _ []vm.Value) (vm.Value, error) {
		names := make([]string, len(c.Fields))
		for i, f := range c.Fields {
			names[i] = f.Name
		}
		host.Log.Debug().Str("class", c.Name).Strs("fields", names).Msg("registerNatives")
		return vm.VoidValue(), nil
	})

	// write(int) writes the low byte of its argument.
	reg.Register("java/io/FileOutputStream", "write", "(I)V", func(_ *vm.Class, args []vm.Value) (vm.Value, error) {
		if len(args) != 2 || args[1].Kind != vm.KindInt {
			return vm.Value{}, fmt.Errorf("%w: FileOutputStream.write(I)V called with %v", vm.ErrTypeMismatch, args)
		}
		if _, err := host.Stdout.Write([]byte{byte(args[1].Int)}); err != nil {
			return vm.Value{}, err
		}
		return vm.VoidValue(), nil
	})
}
