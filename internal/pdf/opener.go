package pdf

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Viewer opens downloaded papers in a desktop PDF reader.
type Viewer struct {
	// Program is "system" (platform default) or a reader binary name.
	Program string
}

// Command returns the command that would open path, without starting it.
func (v Viewer) Command(path string) (*exec.Cmd, error) {
	if v.Program != "" && v.Program != "system" {
		return exec.Command(v.Program, path), nil
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux":
		return exec.Command("xdg-open", path), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Open starts the viewer on path and returns without waiting for it.
func (v Viewer) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("PDF file does not exist: %s", path)
		}
		return fmt.Errorf("checking PDF file: %w", err)
	}

	cmd, err := v.Command(path)
	if err != nil {
		return err
	}
	return cmd.Start()
}
