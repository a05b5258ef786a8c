package workspace

import (
	"os"
	"runtime"
	"strings"

	"github.com/gurisko/hq/internal/registry"
)

// osNames holds the spellings other registry clients write for each GOOS
var osNames = map[string]string{
	"linux":   "Linux",
	"darwin":  "Darwin",
	"windows": "Windows",
	"freebsd": "FreeBSD",
	"openbsd": "OpenBSD",
	"netbsd":  "NetBSD",
}

// OSName returns the registry spelling of goos
func OSName(goos string) string {
	if name, ok := osNames[goos]; ok {
		return name
	}
	if goos == "" {
		return ""
	}
	return strings.ToUpper(goos[:1]) + goos[1:]
}

// CurrentMachine describes the host this process runs on
func CurrentMachine() registry.Machine {
	host, _ := os.Hostname()
	return registry.Machine{
		Hostname:     host,
		OS:           OSName(runtime.GOOS),
		OSVersion:    osVersion(),
		Architecture: runtime.GOARCH,
	}
}
