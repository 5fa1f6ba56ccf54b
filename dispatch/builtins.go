// Copyright © 2018 The ELPS authors

package dispatch

import "sort"

const (
	// BuiltinModule is imported by every module.  Calls to its functions
	// which are native primitives bypass macro expansion entirely.
	BuiltinModule = "Kernel"

	// NativeModule holds the runtime's native primitives.  It never defines
	// macros.
	NativeModule = "native"
)

// builtins is sorted by name and arity in init and never modified after.
//
// Arithmetic and comparison operators are not listed.  Adding them would
// change which calls skip macro expansion.
var builtins = []Signature{
	{"abs", 1},
	{"apply", 2},
	{"apply", 3},
	{"binary_part", 3},
	{"bit_size", 1},
	{"byte_size", 1},
	{"demonitor", 1},
	{"demonitor", 2},
	{"div", 2},
	{"erase", 1},
	{"error", 1},
	{"error", 2},
	{"exit", 1},
	{"exit", 2},
	{"get", 1},
	{"hd", 1},
	{"is_atom", 1},
	{"is_binary", 1},
	{"is_bitstring", 1},
	{"is_boolean", 1},
	{"is_float", 1},
	{"is_function", 1},
	{"is_function", 2},
	{"is_integer", 1},
	{"is_list", 1},
	{"is_map", 1},
	{"is_number", 1},
	{"is_pid", 1},
	{"is_port", 1},
	{"is_reference", 1},
	{"is_tuple", 1},
	{"length", 1},
	{"link", 1},
	{"make_ref", 0},
	{"map_size", 1},
	{"max", 2},
	{"min", 2},
	{"monitor", 2},
	{"node", 0},
	{"node", 1},
	{"process_flag", 2},
	{"put", 2},
	{"rem", 2},
	{"round", 1},
	{"self", 0},
	{"send", 2},
	{"spawn", 1},
	{"spawn", 2},
	{"spawn", 3},
	{"spawn", 4},
	{"spawn_link", 1},
	{"spawn_link", 2},
	{"spawn_link", 3},
	{"spawn_link", 4},
	{"spawn_monitor", 1},
	{"spawn_monitor", 3},
	{"spawn_opt", 2},
	{"spawn_opt", 3},
	{"spawn_opt", 4},
	{"spawn_opt", 5},
	{"throw", 1},
	{"tl", 1},
	{"trunc", 1},
	{"tuple_size", 1},
	{"unlink", 1},
}

func init() {
	sort.Slice(builtins, func(i, j int) bool { return builtins[i].less(builtins[j]) })
	for i := 1; i < len(builtins); i++ {
		if builtins[i] == builtins[i-1] {
			panic("duplicate builtin: " + builtins[i].String())
		}
	}
}

// IsBuiltin reports whether name/arity is a native primitive of
// BuiltinModule.
func IsBuiltin(name string, arity int) bool {
	sig := Signature{name, arity}
	i := sort.Search(len(builtins), func(i int) bool { return !builtins[i].less(sig) })
	return i < len(builtins) && builtins[i] == sig
}

// Builtins returns a copy of the builtin registry in sorted order.
func Builtins() []Signature {
	sigs := make([]Signature, len(builtins))
	copy(sigs, builtins)
	return sigs
}
