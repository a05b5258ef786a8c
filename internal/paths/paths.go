package paths

import (
	"os"
	"path/filepath"
)

func DefaultConfigDir() string {
	if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
		return filepath.Join(x, "hq")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hq")
}

func DefaultStateDir() string {
	if x := os.Getenv("XDG_STATE_HOME"); x != "" {
		return filepath.Join(x, "hq")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "hq")
}

func DefaultConfigPath() string { return filepath.Join(DefaultConfigDir(), "config.yaml") }
func DefaultTokenPath() string  { return filepath.Join(DefaultConfigDir(), "token") }
func DefaultGitDir() string     { return filepath.Join(DefaultStateDir(), "ledger") }
func DefaultSQLiteDSN() string  { return filepath.Join(DefaultStateDir(), "ledger.db") }
