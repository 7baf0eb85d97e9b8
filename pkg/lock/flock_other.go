//go:build !unix

package lock

import "os"

// Only in-process exclusion is available here.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
