package utils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/mod/modfile"
)

// ErrNoGoMod is returned when no go.mod exists at or above a directory
var ErrNoGoMod = errors.New("go.mod file not found")

// GoModParser resolves import paths against the go.mod that owns a directory
type GoModParser struct {
	mu      sync.Mutex
	modules map[string]string
}

// NewGoModParser creates a parser that caches module names per go.mod path
func NewGoModParser() *GoModParser {
	return &GoModParser{modules: make(map[string]string)}
}

// ParseModuleName extracts the module name from a go.mod file
func (p *GoModParser) ParseModuleName(goModPath string) (string, error) {
	cleanPath := filepath.Clean(goModPath)
	if filepath.Base(cleanPath) != "go.mod" {
		return "", errors.Errorf("file is not a go.mod file: %s", goModPath)
	}

	p.mu.Lock()
	name, ok := p.modules[cleanPath]
	p.mu.Unlock()
	if ok {
		return name, nil
	}

	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read go.mod file")
	}
	modFile, err := modfile.ParseLax(cleanPath, content, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse go.mod file")
	}
	if modFile.Module == nil {
		return "", errors.New("no module declaration found in go.mod")
	}

	name = modFile.Module.Mod.Path
	p.mu.Lock()
	p.modules[cleanPath] = name
	p.mu.Unlock()
	return name, nil
}

// FindGoModFile searches for go.mod starting from startDir and walking up
func (p *GoModParser) FindGoModFile(startDir string) (string, error) {
	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", startDir)
	}

	for {
		goModPath := filepath.Join(currentDir, "go.mod")
		if info, err := os.Stat(goModPath); err == nil && !info.IsDir() {
			return goModPath, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrNoGoMod
		}
		currentDir = parentDir
	}
}

// IsRelativePackage reports whether pkg is written as a directory path
// ("./controllers", "../app", ".")
func IsRelativePackage(pkg string) bool {
	return pkg == "." || pkg == ".." || strings.HasPrefix(pkg, "./") || strings.HasPrefix(pkg, "../")
}

// ResolvePackage turns a relative package directory into an import path using
// the module that owns baseDir. Import paths are returned unchanged.
func (p *GoModParser) ResolvePackage(pkg, baseDir string) (string, error) {
	if !IsRelativePackage(pkg) {
		return pkg, nil
	}

	dir, err := filepath.Abs(filepath.Join(baseDir, filepath.FromSlash(pkg)))
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", pkg)
	}
	goModPath, err := p.FindGoModFile(dir)
	if err != nil {
		return "", err
	}
	module, err := p.ParseModuleName(goModPath)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(filepath.Dir(goModPath), dir)
	if err != nil {
		return "", errors.Wrapf(err, "relating %s to its module", pkg)
	}
	if rel == "." {
		return module, nil
	}
	return module + "/" + filepath.ToSlash(rel), nil
}
