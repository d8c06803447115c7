package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Launcher reveals a project directory in a file manager
type Launcher struct {
	command string   // configured command, empty for auto-detection
	args    []string // additional arguments placed before the path
	logger  *slog.Logger

	// lookPath and start are replaced in tests
	lookPath func(string) (string, error)
	start    func(name string, args ...string) error
}

// candidateManagers defines the preferred file managers for each platform,
// tried in order before the system default
var candidateManagers = map[string][]string{
	"darwin":  {},
	"linux":   {"nautilus", "dolphin", "thunar", "nemo"},
	"windows": {"explorer"},
}

// NewLauncher creates a new Launcher
func NewLauncher(cfg OpenerConfig, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		command:  cfg.Command,
		args:     cfg.Args,
		logger:   logger,
		lookPath: exec.LookPath,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start() // Start async, don't wait
		},
	}
}

// Open reveals dir in the configured program, a detected file manager or
// the system default handler. A leading ~ is expanded.
func (l *Launcher) Open(dir string) error {
	dir = ExpandHome([]string{dir})[0]

	// Tier 1: User configured a specific program
	if l.command != "" {
		args := append(append([]string{}, l.args...), dir)
		l.logger.Info("opening with configured command", "command", l.command, "path", dir)
		return l.start(l.command, args...)
	}

	// Tier 2: Try candidate chain
	for _, name := range candidateManagers[runtime.GOOS] {
		if _, err := l.lookPath(name); err != nil {
			l.logger.Debug("file manager not available", "command", name)
			continue
		}
		if err := l.start(name, dir); err == nil {
			l.logger.Info("opened with detected file manager", "command", name, "path", dir)
			return nil
		}
	}

	// Tier 3: Fall back to system default (open/xdg-open/start)
	name, args := defaultOpener(dir)
	l.logger.Info("opening with system default", "os", runtime.GOOS, "path", dir)
	if err := l.start(name, args...); err != nil {
		return fmt.Errorf("opening %s: %w", dir, err)
	}
	return nil
}

func defaultOpener(dir string) (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{dir}
	case "windows":
		return "cmd", []string{"/c", "start", "", dir}
	default:
		return "xdg-open", []string{dir}
	}
}
