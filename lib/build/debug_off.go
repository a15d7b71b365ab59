//go:build !debug
// +build !debug

package build

// Debug is true when the binary was compiled with the "debug" tag. Packages
// use it to compile in explicit bounds and argument checks which release
// builds skip.
const Debug = false
