// Package clipboard copies answers to the system clipboard via shell commands.
package clipboard

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard program is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// program returns the copy command and its arguments for goos.
func program(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		if _, err := lookPath("pbcopy"); err == nil {
			return []string{"pbcopy"}, nil
		}
	case "linux":
		if _, err := lookPath("wl-copy"); err == nil {
			return []string{"wl-copy"}, nil
		}
		if _, err := lookPath("xclip"); err == nil {
			return []string{"xclip", "-selection", "clipboard"}, nil
		}
		if _, err := lookPath("xsel"); err == nil {
			return []string{"xsel", "--clipboard", "--input"}, nil
		}
	}
	return nil, ErrClipboardUnavailable
}

// IsAvailable reports whether Copy can work on this system.
func IsAvailable() bool {
	_, err := program(runtime.GOOS)
	return err == nil
}

// Copy writes text to the system clipboard.
func Copy(ctx context.Context, text string) error {
	argv, err := program(runtime.GOOS)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
