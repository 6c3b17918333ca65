package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Loader reads preflight policies from .rego files on disk.
type Loader struct {
	logger  zerolog.Logger
	watcher *fsnotify.Watcher
}

// NewLoader creates a policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "policy-loader").Logger(),
	}
}

// LoadFromPaths loads policies from a list of file or directory paths.
func (l *Loader) LoadFromPaths(paths []string) ([]Policy, error) {
	var all []Policy

	for _, path := range paths {
		policies, err := l.loadFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}
		all = append(all, policies...)
	}

	l.logger.Info().
		Int("total", len(all)).
		Int("sources", len(paths)).
		Msg("Policies loaded from paths")

	return all, nil
}

func (l *Loader) loadFromPath(path string) ([]Policy, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return l.loadFromDirectory(path)
	}

	policy, err := l.loadFromFile(path)
	if err != nil {
		return nil, err
	}
	return []Policy{*policy}, nil
}

// loadFromDirectory loads all .rego files from a directory recursively.
func (l *Loader) loadFromDirectory(dirPath string) ([]Policy, error) {
	var policies []Policy

	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".rego") {
			return nil
		}

		policy, err := l.loadFromFile(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to load policy file")
			return nil
		}

		policies = append(policies, *policy)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return policies, nil
}

func (l *Loader) loadFromFile(filePath string) (*Policy, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(filePath), ".rego")

	policy := &Policy{
		Name:        name,
		Description: extractDescription(string(data)),
		Rego:        string(data),
		Severity:    SeverityWarning,
		Enabled:     true,
		Source:      filePath,
	}

	l.logger.Debug().
		Str("path", filePath).
		Str("policy", policy.Name).
		Msg("Policy loaded from file")

	return policy, nil
}

// extractDescription collects the leading comment block of a Rego file.
func extractDescription(content string) string {
	var description strings.Builder

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			if comment != "" {
				if description.Len() > 0 {
					description.WriteString(" ")
				}
				description.WriteString(comment)
			}
		} else if trimmed != "" {
			break
		}
	}

	return description.String()
}

// Watch watches the given paths and calls reloadFn with the freshly
// loaded policy set whenever a .rego file changes. Events are debounced
// so an editor save producing several writes triggers one reload.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]Policy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	l.watcher = watcher

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to watch path")
		}
	}

	go l.processEvents(ctx, paths, reloadFn)

	l.logger.Info().
		Int("paths", len(paths)).
		Msg("Started watching policy paths")

	return nil
}

func (l *Loader) processEvents(ctx context.Context, paths []string, reloadFn func([]Policy) error) {
	var reloadTimer *time.Timer
	reloadDelay := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			_ = l.watcher.Close()
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !strings.HasSuffix(event.Name, ".rego") {
				continue
			}

			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Policy file changed")

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				policies, err := l.LoadFromPaths(paths)
				if err != nil {
					l.logger.Error().Err(err).Msg("Failed to reload policies")
					return
				}
				if err := reloadFn(policies); err != nil {
					l.logger.Error().Err(err).Msg("Failed to apply reloaded policies")
					return
				}
				l.logger.Info().Int("count", len(policies)).Msg("Policies reloaded")
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// StopWatching stops watching for file changes.
func (l *Loader) StopWatching() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
