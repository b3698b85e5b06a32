// Package project locates the build-system root of a C/C++ translation
// unit, so tools can rewrite absolute origin paths into project-relative
// ones (cgformat's origin-prefix canonicalization) and stamp stable origins
// into freshly collected graphs.
package project

import (
	"os"
	"path/filepath"
	"strings"
)

// Detector identifies project root folders for C/C++ translation units.
type Detector struct {
	// Common project root marker files/directories
	markers []string
}

// New creates a new project detector instance
func New() *Detector {
	return &Detector{
		markers: []string{
			"compile_commands.json", // Clang tooling compilation database
			"CMakeLists.txt",        // CMake projects
			"meson.build",           // Meson projects
			"configure.ac",          // Autotools projects
			"configure",             // Autotools (generated)
			"Makefile",              // Plain make
			".git",                  // Generic VCS marker
		},
	}
}

// Project describes a detected project root.
type Project struct {
	RootPath     string // Absolute path to the project root directory
	Type         string // Build system that marked the root (cmake, meson, ...)
	RelativePath string // Path from project root to the specified file
}

// Detect identifies the project root for the given file path. When no
// marker is found anywhere up the tree, the file's own directory is
// returned with type "unknown", so callers always get a usable root.
func (d *Detector) Detect(filePath string) (*Project, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}

	startDir := absPath
	fileInfo, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !fileInfo.IsDir() {
		startDir = filepath.Dir(absPath)
	}

	info := &Project{Type: "unknown", RootPath: startDir}
	if rootPath, projectType := d.findProjectRoot(startDir); rootPath != "" {
		info.RootPath = rootPath
		info.Type = projectType
	}

	relPath, err := filepath.Rel(info.RootPath, absPath)
	if err != nil {
		relPath = filepath.Base(absPath)
	}
	info.RelativePath = filepath.ToSlash(relPath)
	return info, nil
}

// RelOrigin rewrites an absolute origin path into a project-relative one.
// Origins outside the project root are returned unchanged so the caller
// can report the mismatch.
func (p *Project) RelOrigin(origin string) (string, bool) {
	root := p.RootPath
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	if !strings.HasPrefix(origin, root) {
		return origin, false
	}
	return filepath.ToSlash(origin[len(root):]), true
}

// findProjectRoot searches up from the current directory for project markers
func (d *Detector) findProjectRoot(startDir string) (string, string) {
	dir := startDir
	for {
		for _, marker := range d.markers {
			markerPath := filepath.Join(dir, marker)
			if _, err := os.Stat(markerPath); err == nil {
				return dir, determineProjectType(marker)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// We've reached the filesystem root with no match
			break
		}
		dir = parent
	}
	return "", ""
}

func determineProjectType(marker string) string {
	switch marker {
	case "compile_commands.json":
		return "compilation-database"
	case "CMakeLists.txt":
		return "cmake"
	case "meson.build":
		return "meson"
	case "configure.ac", "configure":
		return "autotools"
	case "Makefile":
		return "make"
	case ".git":
		return "git"
	default:
		return "unknown"
	}
}
