// Package loader loads policy bundles from disk. A bundle is a directory
// holding a manifest.yaml and .plang source files; loading parses and
// lowers the sources into an executable module, enabling policy changes
// without code deployments.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/Mindburn-Labs/plang/pkg/ast"
	"github.com/Mindburn-Labs/plang/pkg/ir"
	"github.com/Mindburn-Labs/plang/pkg/parser"
)

// EngineVersion is matched against a bundle manifest's engine constraint.
const EngineVersion = "1.0.0"

// ManifestName is the bundle manifest file name.
const ManifestName = "manifest.yaml"

// Manifest describes a bundle.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`           // semver
	Engine      string   `yaml:"engine,omitempty"`  // semver constraint, e.g. ">= 1.0"
	Description string   `yaml:"description,omitempty"`
	Sources     []string `yaml:"sources,omitempty"` // default: every *.plang in the dir
}

// Bundle is a loaded, lowered policy bundle.
type Bundle struct {
	Manifest    Manifest
	Dir         string
	Program     *ast.Program
	Module      *ir.Module
	ContentHash string
}

// Loader loads bundles and tracks them by name.
type Loader struct {
	mu       sync.RWMutex
	bundles  map[string]*Bundle
	onReload func(*Bundle)
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{bundles: make(map[string]*Bundle)}
}

// OnReload registers a callback invoked whenever a bundle is loaded or
// reloaded.
func (l *Loader) OnReload(fn func(*Bundle)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onReload = fn
}

// Load reads, verifies and lowers the bundle in dir.
func (l *Loader) Load(dir string) (*Bundle, error) {
	manifest, err := readManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	if err := checkVersions(manifest); err != nil {
		return nil, err
	}

	sources := manifest.Sources
	if len(sources) == 0 {
		if sources, err = discoverSources(dir); err != nil {
			return nil, err
		}
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("loader: bundle %s has no .plang sources", manifest.Name)
	}

	prog := &ast.Program{}
	hash := sha256.New()
	for _, name := range sources {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loader: read source %s: %w", name, err)
		}
		fmt.Fprintf(hash, "%s\n", name)
		hash.Write(data)

		fileProg, err := parser.ParseSource(string(data))
		if err != nil {
			return nil, fmt.Errorf("loader: parse %s: %w", name, err)
		}
		prog.Statements = append(prog.Statements, fileProg.Statements...)
	}

	mod, err := ir.Lower(prog)
	if err != nil {
		return nil, fmt.Errorf("loader: lower bundle %s: %w", manifest.Name, err)
	}

	bundle := &Bundle{
		Manifest:    manifest,
		Dir:         dir,
		Program:     prog,
		Module:      mod,
		ContentHash: hex.EncodeToString(hash.Sum(nil)),
	}

	l.mu.Lock()
	l.bundles[manifest.Name] = bundle
	callback := l.onReload
	l.mu.Unlock()

	if callback != nil {
		callback(bundle)
	}
	return bundle, nil
}

// Reload re-reads a previously loaded bundle from its directory. It
// reports whether the content actually changed.
func (l *Loader) Reload(name string) (bool, error) {
	l.mu.RLock()
	current, ok := l.bundles[name]
	l.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("loader: bundle %s not loaded", name)
	}
	fresh, err := l.Load(current.Dir)
	if err != nil {
		return false, err
	}
	return fresh.ContentHash != current.ContentHash, nil
}

// Bundle returns a loaded bundle by name.
func (l *Loader) Bundle(name string) (*Bundle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bundles[name]
	return b, ok
}

// Bundles returns all loaded bundles sorted by name.
func (l *Loader) Bundles() []*Bundle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Bundle, 0, len(l.bundles))
	for _, b := range l.bundles {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

func readManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("loader: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("loader: parse manifest: %w", err)
	}
	if m.Name == "" {
		return Manifest{}, fmt.Errorf("loader: manifest must set name")
	}
	return m, nil
}

func checkVersions(m Manifest) error {
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("loader: bundle %s version %q: %w", m.Name, m.Version, err)
	}
	if m.Engine == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(m.Engine)
	if err != nil {
		return fmt.Errorf("loader: bundle %s engine constraint %q: %w", m.Name, m.Engine, err)
	}
	engine := semver.MustParse(EngineVersion)
	if !constraint.Check(engine) {
		return fmt.Errorf("loader: bundle %s requires engine %q, running %s", m.Name, m.Engine, EngineVersion)
	}
	return nil
}

// discoverSources lists *.plang files in lexical order so the content
// hash is stable across platforms.
func discoverSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loader: read dir %s: %w", dir, err)
	}
	var sources []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".plang" {
			continue
		}
		sources = append(sources, entry.Name())
	}
	sort.Strings(sources)
	return sources, nil
}
