package helpers

import (
	"fmt"
	"os"
)

// Assert panics with the formatted message if condition is false.
// Used for internal invariants only, never for input validation.
func Assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf(format, args...))
	}
}

func CreateDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
