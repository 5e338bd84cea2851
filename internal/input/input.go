// Package input acquires the raw sleep-record text.
package input

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrEmptyInput = errors.New("sleep record text is empty")

// Read returns the trimmed content of path, or of r when path is empty.
// A non-empty path always wins over r.
func Read(path string, r io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read sleep records file: %w", err)
		}
	} else {
		if r == nil {
			return "", ErrEmptyInput
		}
		data, err = io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read standard input: %w", err)
		}
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", ErrEmptyInput
	}
	return text, nil
}
