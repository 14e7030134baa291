// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package cashu

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
)

// CleanAndExpandPath expands environment variables and a leading ~ or ~user
// in the path, and cleans the result. An unknown user's home directory is the
// working directory.
func CleanAndExpandPath(path string) string {
	if path == "" {
		return path
	}

	// os.ExpandEnv only knows POSIX-style $VARIABLE.
	path = os.ExpandEnv(path)
	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}
	path = path[1:]

	seps := string(os.PathSeparator)
	if runtime.GOOS == "windows" {
		seps += "/"
	}
	var userName string
	if i := strings.IndexAny(path, seps); i != -1 {
		userName, path = path[:i], path[i:]
	} else {
		userName, path = path, ""
	}

	return filepath.Join(homeDir(userName), path)
}

func homeDir(userName string) string {
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err != nil || u.HomeDir == "" {
		return "."
	}
	return u.HomeDir
}
