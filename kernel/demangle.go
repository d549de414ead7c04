package kernel

import "github.com/ianlancetaylor/demangle"

// DemangleExport returns name demangled if it looks like a mangled C++ or
// Rust symbol (common in a module's export table on non-Windows, or mixed
// -language, targets), or name unchanged otherwise.
func DemangleExport(name string) string {
	return demangle.Filter(name)
}
