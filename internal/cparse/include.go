package cparse

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// IncludeDirective is one #include found in a parsed file.
type IncludeDirective struct {
	// File is the including file.
	File string
	Line uint32
	// Target is the include text without quotes or angle brackets.
	Target string
	// Angle is true for #include <...> form.
	Angle bool
}

// ScanIncludes returns the include directives of a parsed file in source
// order. Directives inside conditional preprocessor blocks are included;
// the front end does not evaluate preprocessor conditions.
func ScanIncludes(result *ParseResult) []IncludeDirective {
	if result.Root == nil {
		return nil
	}

	var directives []IncludeDirective
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "preproc_include" {
			pathNode := node.ChildByFieldName("path")
			if pathNode == nil {
				return
			}
			text := result.NodeText(pathNode)
			angle := pathNode.Type() == "system_lib_string"
			target := strings.Trim(text, `"<>`)
			if target != "" {
				directives = append(directives, IncludeDirective{
					File:   result.FilePath,
					Line:   getLine(node),
					Target: target,
					Angle:  angle,
				})
			}
			return
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			visit(node.Child(int(i)))
		}
	}
	visit(result.Root)
	return directives
}

// DefaultSystemIncludeDirs is the fallback when compiler-based discovery
// fails.
var DefaultSystemIncludeDirs = []string{"/usr/local/include", "/usr/include"}

// DiscoverSystemIncludeDirs asks the C compiler for its include search path.
// Best effort: any failure falls back to DefaultSystemIncludeDirs. The
// caller bounds the subprocess with ctx.
func DiscoverSystemIncludeDirs(ctx context.Context, compiler string) []string {
	if compiler == "" {
		compiler = "cc"
	}

	cmd := exec.CommandContext(ctx, compiler, "-E", "-Wp,-v", "-xc", os.DevNull)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return DefaultSystemIncludeDirs
	}

	var dirs []string
	inList := false
	scanner := bufio.NewScanner(&stderr)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "#include <...> search starts here:"):
			inList = true
		case strings.HasPrefix(line, "End of search list."):
			inList = false
		case inList:
			dir := strings.TrimSpace(line)
			// Framework directories on macOS carry a suffix.
			dir = strings.TrimSuffix(dir, " (framework directory)")
			if dir != "" {
				dirs = append(dirs, dir)
			}
		}
	}
	if len(dirs) == 0 {
		return DefaultSystemIncludeDirs
	}
	return dirs
}

// IncludeResolver maps include directives to file paths, distinguishing
// user headers from system headers.
type IncludeResolver struct {
	UserDirs   []string
	SystemDirs []string
}

// Resolve locates the target of an include directive. Quoted includes are
// looked up relative to the including file first; angle includes only in
// the search directories. system reports whether the match came from a
// system directory.
func (r *IncludeResolver) Resolve(d IncludeDirective) (path string, system bool, ok bool) {
	if filepath.IsAbs(d.Target) {
		if fileExists(d.Target) {
			return filepath.Clean(d.Target), r.isSystemPath(d.Target), true
		}
		return "", false, false
	}

	if !d.Angle {
		candidate := filepath.Join(filepath.Dir(d.File), d.Target)
		if fileExists(candidate) {
			return absPath(candidate), r.isSystemPath(candidate), true
		}
	}

	for _, dir := range r.UserDirs {
		candidate := filepath.Join(dir, d.Target)
		if fileExists(candidate) {
			return absPath(candidate), false, true
		}
	}
	for _, dir := range r.SystemDirs {
		candidate := filepath.Join(dir, d.Target)
		if fileExists(candidate) {
			return absPath(candidate), true, true
		}
	}
	return "", false, false
}

// isSystemPath reports whether a path sits under a system include root.
func (r *IncludeResolver) isSystemPath(path string) bool {
	abs := absPath(path)
	for _, dir := range r.SystemDirs {
		rel, err := filepath.Rel(absPath(dir), abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}
