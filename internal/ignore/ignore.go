package ignore

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ig "github.com/sabhiram/go-gitignore"
)

// FileName is the per-directory rules file, gitignore syntax.
const FileName = ".sync_ignore"

// DefaultPatterns are always ignored.
var DefaultPatterns = []string{".sync_temp", FileName, ".DS_Store", "Thumbs.db"}

// Matcher caches compiled .sync_ignore rules per directory and matches paths
// against the cumulative rules of all their ancestors, like .gitignore.
type Matcher struct {
	root string

	mu    sync.Mutex
	cache map[string]*ig.GitIgnore
	// lines holds the preprocessed lines of one directory's own file.
	lines map[string][]string
}

// New returns a Matcher rooted at root.
func New(root string) *Matcher {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Matcher{root: abs, cache: map[string]*ig.GitIgnore{}, lines: map[string][]string{}}
}

// Reset drops cached rules so edited .sync_ignore files are read again.
func (m *Matcher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = map[string]*ig.GitIgnore{}
	m.lines = map[string][]string{}
}

// Skip reports whether the slash-separated path rel (relative to the root)
// is ignored. It has the shape snapshot.Map.Filter expects.
func (m *Matcher) Skip(rel string) bool {
	return m.Match(filepath.Join(m.root, filepath.FromSlash(rel)), false)
}

// Match reports whether the absolute or root-relative path is ignored.
func (m *Matcher) Match(p string, isDir bool) bool {
	if !filepath.IsAbs(p) {
		p = filepath.Join(m.root, p)
	}
	rel, err := filepath.Rel(m.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		for _, d := range DefaultPatterns {
			if strings.EqualFold(seg, d) {
				return true
			}
		}
	}

	dir := p
	if !isDir {
		dir = filepath.Dir(p)
	}

	m.mu.Lock()
	matcher, ok := m.cache[dir]
	if !ok {
		var cumulative []string
		for _, a := range m.ancestors(dir) {
			cumulative = append(cumulative, m.dirLines(a)...)
		}
		if len(cumulative) > 0 {
			matcher = ig.CompileIgnoreLines(cumulative...)
		}
		m.cache[dir] = matcher
	}
	m.mu.Unlock()

	if matcher == nil {
		return false
	}
	if runtime.GOOS == "windows" {
		rel = strings.ToLower(rel)
	}
	return matcher.MatchesPath(rel)
}

// ancestors lists root..dir inclusive, outermost first.
func (m *Matcher) ancestors(dir string) []string {
	var out []string
	cur := dir
	for {
		out = append(out, cur)
		if cur == m.root {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// dirLines reads dir's own rules file. Simple patterns get a **/ variant so
// they also match below the directory that declares them. Callers hold mu.
func (m *Matcher) dirLines(dir string) []string {
	if lines, ok := m.lines[dir]; ok {
		return lines
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		m.lines[dir] = nil
		return nil
	}
	prefix := ""
	if rel, err := filepath.Rel(m.root, dir); err == nil && rel != "." {
		prefix = filepath.ToSlash(rel) + "/"
	}
	var lines []string
	for _, ln := range strings.Split(string(data), "\n") {
		l := strings.TrimSpace(ln)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		neg := ""
		if strings.HasPrefix(l, "!") {
			neg = "!"
			l = strings.TrimPrefix(l, "!")
		}
		l = filepath.ToSlash(l)
		if strings.Contains(l, "/") || strings.Contains(l, "**") {
			lines = append(lines, neg+prefix+strings.TrimPrefix(l, "/"))
			continue
		}
		lines = append(lines, neg+prefix+l, neg+prefix+"**/"+l)
	}
	m.lines[dir] = lines
	return lines
}
