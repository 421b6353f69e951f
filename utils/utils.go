package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

func BoolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NextAvailableFilename returns dir/name+ext, or dir/name_N+ext for the first N not taken.
func NextAvailableFilename(dir, name, ext string) string {
	path := filepath.Join(dir, name+ext)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	for i := 1; ; i++ {
		newName := fmt.Sprintf("%s_%d%s", name, i, ext)
		newPath := filepath.Join(dir, newName)
		if _, err := os.Stat(newPath); os.IsNotExist(err) {
			return newPath
		}
	}
}
