package schema

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/faciam-dev/gadmin/internal/errs"
	"github.com/faciam-dev/gadmin/internal/logger"
)

// DirSource reads {model}.json documents from a directory.
type DirSource struct {
	Dir string
}

// Read implements Source.
func (d *DirSource) Read(_ context.Context, model string) ([]byte, error) {
	if !modelRe.MatchString(model) {
		return nil, errs.NotFound("model", model)
	}
	b, err := os.ReadFile(filepath.Join(d.Dir, model+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("model", model)
		}
		return nil, err
	}
	return b, nil
}

// Models lists the model names present in the directory.
func (d *DirSource) Models() ([]string, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, ".json"))
	}
	return out, nil
}

// Watch invalidates store entries when documents change on disk. Intended
// for development; production relies on the explicit cache-clear endpoint.
// It blocks until ctx is done.
func (d *DirSource) Watch(ctx context.Context, st *Store) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(d.Dir); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			model := strings.TrimSuffix(filepath.Base(ev.Name), ".json")
			st.Clear(model, "")
			logger.L.Info("schema cache invalidated", "model", model, "event", ev.Op.String())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.L.Error("schema watcher", "err", err)
		}
	}
}
