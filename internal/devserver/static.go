package devserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// layeredStatic serves files below prefix from the first directory that has
// them and hands everything else to next.
type layeredStatic struct {
	prefix string
	dirs   []string
	next   http.Handler
}

func (s *layeredStatic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.next.ServeHTTP(w, r)
		return
	}

	name := path.Clean("/" + strings.TrimPrefix(r.URL.Path, s.prefix))
	for _, dir := range s.dirs {
		if dir == "" {
			continue
		}
		full := filepath.Join(dir, filepath.FromSlash(name))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		http.ServeFile(w, r, full)
		return
	}

	s.next.ServeHTTP(w, r)
}
