//go:build debug
// +build debug

package build

const Debug = true
