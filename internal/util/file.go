package util

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// WriteAtomic replaces filename with contents, creating parent
// directories as needed. If the atomic rename fails (for example on
// filesystems that do not support it) a plain write is attempted.
func WriteAtomic(filename string, contents []byte) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return err
		}
	}
	if err1 := atomic.WriteFile(filename, bytes.NewReader(contents)); err1 != nil {
		if err2 := os.WriteFile(filename, contents, 0o666); err2 != nil {
			return fmt.Errorf("%s: %s; on non-atomic retry: %w", filename, err1, err2)
		}
	}
	return nil
}

func FileExists(filename string) bool {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return false
	} else if err != nil {
		Die("%s: %s", filename, err)
		return false
	} else {
		return true
	}
}
