package connection

import (
	"os"
	"sync"
)

// DefaultProjectEnv is read by Google client libraries when no project is
// given explicitly.
const DefaultProjectEnv = "GOOGLE_CLOUD_PROJECT"

// Environment receives the default-project signal emitted by the resolver.
type Environment interface {
	Setenv(key, value string) error
}

var processEnvMu sync.Mutex

type processEnv struct{}

// ProcessEnv writes to the process environment. The variable is global to
// the process: concurrent resolutions for different projects overwrite each
// other, so callers opening clients concurrently must use
// Target.DefaultProject rather than reading the environment back.
func ProcessEnv() Environment {
	return processEnv{}
}

func (processEnv) Setenv(key, value string) error {
	processEnvMu.Lock()
	defer processEnvMu.Unlock()
	return os.Setenv(key, value)
}

// NoEnv discards the signal; the resolved project still travels on Target.
type NoEnv struct{}

// Setenv implements Environment.
func (NoEnv) Setenv(string, string) error {
	return nil
}
