//go:build !debug

package types

func debugLog(string, ...interface{}) {}

func onDoubleResolve(int64) {}
