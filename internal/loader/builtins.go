package loader

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// unloadModule builds sdk/system/unload: when(fn) subscribes fn to the
// teardown of the loader with the reason as its only argument.
func unloadModule(vm *goja.Runtime, l *Loader) (goja.Value, error) {
	exports := vm.NewObject()
	err := exports.Set("when", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("when() expects a function"))
		}
		l.OnUnload(func(reason string) {
			if _, err := fn(goja.Undefined(), vm.ToValue(reason)); err != nil {
				l.logger.Warn("unload listener threw", zap.String("reason", reason), zap.Error(err))
			}
		})
		return goja.Undefined()
	})
	if err != nil {
		return nil, err
	}
	return exports, nil
}
