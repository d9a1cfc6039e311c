package app

import (
	"os"
	"sync"
)

const testModeEnv = "PROCURA_TEST_MODE"

// inTestMode caches the PROCURA_TEST_MODE flag for the life of the process.
var inTestMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	return inTestMode()
}
