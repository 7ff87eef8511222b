package definition

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
)

// DirLoader implements ports.DefinitionLoader over a directory of .yaml and .yml
// documents. The id of a document is its file name without the extension.
type DirLoader struct {
	dir string
}

func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{dir: dir}
}

// GetFlow reads <id>.yaml, or <id>.yml when the former does not exist.
func (l *DirLoader) GetFlow(id string) ([]byte, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: invalid id %q", domain.ErrFlowNotFound, id)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		data, err := os.ReadFile(filepath.Join(l.dir, id+ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
}

// ListFlows returns the ids of the directory's documents in name order.
func (l *DirLoader) ListFlows() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read flows directory: %w", err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
