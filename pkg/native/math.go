package native

import (
	"fmt"
	"math"

	"github.com/daimatz/tinyjvm/pkg/vm"
)

func registerMath(reg *vm.NativeRegistry) {
	reg.Register("java/lang/StrictMath", "pow", "(DD)D", func(_ *vm.Class, args []vm.Value) (vm.Value, error) {
		if err := expect(args, vm.KindDouble, vm.KindDouble); err != nil {
			return vm.Value{}, err
		}
		return vm.DoubleValue(math.Pow(args[0].Double, args[1].Double)), nil
	})

	reg.Register("java/lang/Double", "doubleToRawLongBits", "(D)J", func(_ *vm.Class, args []vm.Value) (vm.Value, error) {
		if err := expect(args, vm.KindDouble); err != nil {
			return vm.Value{}, err
		}
		return vm.LongValue(int64(math.Float64bits(args[0].Double))), nil
	})
	reg.Register("java/lang/Double", "longBitsToDouble", "(J)D", func(_ *vm.Class, args []vm.Value) (vm.Value, error) {
		if err := expect(args, vm.KindLong); err != nil {
			return vm.Value{}, err
		}
		return vm.DoubleValue(math.Float64frombits(uint64(args[0].Long))), nil
	})

	reg.Register("java/lang/Float", "floatToRawIntBits", "(F)I", func(_ *vm.Class, args []vm.Value) (vm.Value, error) {
		if err := expect(args, vm.KindFloat); err != nil {
			return vm.Value{}, err
		}
		return vm.IntValue(int32(math.Float32bits(args[0].Float))), nil
	})
	reg.Register("java/lang/Float", "intBitsToFloat", "(I)F", func(_ *vm.Class, args []vm.Value) (vm.Value, error) {
		if err := expect(args, vm.KindInt); err != nil {
			return vm.Value{}, err
		}
		return vm.FloatValue(math.Float32frombits(uint32(args[0].Int))), nil
	})
}

func expect(args []vm.Value, kinds ...vm.Kind) error {
	if len(args) != len(kinds) {
		return fmt.Errorf("%w: want %d arguments, got %d", vm.ErrTypeMismatch, len(kinds), len(args))
	}
	for i, k := range kinds {
		if args[i].Kind != k {
			return fmt.Errorf("%w: argument %d is %s, want %s", vm.ErrTypeMismatch, i, args[i].Kind, k)
		}
	}
	return nil
}
