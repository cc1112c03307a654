// Package registry provides a global registry for report renderers.
// Renderers register themselves in init() functions, so commands can list
// and select output formats without hardcoded dependencies.
package registry

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/vovakirdan/fmlab/internal/fmlog"
)

// Input is everything a renderer may show.
type Input struct {
	Title string
	RunID string
	// Complete reports that the log carried the run's end marker.
	Complete bool
	Table    *fmlog.ResultTable
	Verdict  fmlog.Verdict
}

// Renderer writes a result table in one output format.
type Renderer interface {
	// Format returns the registry key (e.g., "text", "csv").
	Format() string

	// Description is a one-line summary shown by the list command.
	Description() string

	// Render writes in to w.
	Render(w io.Writer, in Input) error
}

// FormatInfo contains metadata about a registered renderer.
type FormatInfo struct {
	Format      string
	Description string
}

// Factory creates a new renderer instance.
type Factory func() Renderer

var (
	factories    = make(map[string]Factory)
	descriptions = make(map[string]string)
	mu           sync.RWMutex
)

// Register adds a renderer factory to the registry.
// Panics if the format is already registered.
func Register(format string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[format]; exists {
		panic(fmt.Sprintf("registry: format %q already registered", format))
	}

	factories[format] = f
	descriptions[format] = f().Description()
}

// List returns all registered formats, sorted by name.
func List() []FormatInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]FormatInfo, 0, len(factories))
	for format := range factories {
		result = append(result, FormatInfo{
			Format:      format,
			Description: descriptions[format],
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Format < result[j].Format
	})

	return result
}

// Create instantiates a renderer by format name.
func Create(format string) (Renderer, error) {
	mu.RLock()
	defer mu.RUnlock()

	f, ok := factories[format]
	if !ok {
		return nil, fmt.Errorf("registry: unknown format %q", format)
	}

	return f(), nil
}

// Exists checks if a format is registered.
func Exists(format string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := factories[format]
	return ok
}
