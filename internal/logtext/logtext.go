// Package logtext prepares raw launcher logs before they reach the rule engine.
package logtext

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StdinName is the source name used for logs read from standard input.
const StdinName = "-"

// NormalizeLineEndings converts CRLF and lone CR line endings to LF.
// Input:  "Minecraft folder is:\r\nC:/Program Files"
// Output: "Minecraft folder is:\nC:/Program Files"
func NormalizeLineEndings(log string) string {
	if !strings.Contains(log, "\r") {
		return log
	}
	log = strings.ReplaceAll(log, "\r\n", "\n")
	return strings.ReplaceAll(log, "\r", "\n")
}

// StripANSI removes terminal escape sequences, such as colors copied from a console.
// Input:  "\x1b[31mjava.lang.OutOfMemoryError\x1b[0m"
// Output: "java.lang.OutOfMemoryError"
func StripANSI(log string) string {
	if !strings.Contains(log, "\x1b") {
		return log
	}
	return ansi.Strip(log)
}

// Normalize applies all cleanup operations. The input is never modified; a new
// string is returned.
func Normalize(log string) string {
	log = NormalizeLineEndings(log)
	log = StripANSI(log)
	return log
}

// Read reads an entire log from r.
func Read(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read log: %w", err)
	}
	return string(data), nil
}

// ReadSource reads a log from a file path, or from stdin when path is StdinName.
func ReadSource(path string, stdin io.Reader) (string, error) {
	if path == StdinName {
		return Read(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
