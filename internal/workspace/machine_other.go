//go:build !unix

package workspace

func osVersion() string { return "" }
