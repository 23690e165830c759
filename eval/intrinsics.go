package eval

import "fmt"

// invokeIntrinsic dispatches one of the four reserved intrinsic calls.
// Each expects exactly one argument; arity mismatch is a runtime error,
// matching every other call in the language.
func (e *Evaluator) invokeIntrinsic(name string, args []int64) (int64, error) {
	if len(args) != 1 {
		return 0, runtimeErrorf("%s expects exactly one argument, got %d", name, len(args))
	}
	x := args[0]

	switch name {
	case "__clog":
		e.env.writer(fmt.Sprintf("__clog: %d", x))
		return x, nil
	case "__assert":
		if x == 0 {
			return 0, runtimeErrorf("assertion failed: __assert(%d)", x)
		}
		return x, nil
	case "__assert_not":
		if x != 0 {
			return 0, runtimeErrorf("assertion failed: __assert_not(%d)", x)
		}
		return x, nil
	case "__trace":
		e.env.traced.increment(x)
		return 0, nil
	default:
		return 0, runtimeErrorf("unknown intrinsic: %s", name)
	}
}
