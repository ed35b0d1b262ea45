package server

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// newModelWatcher watches the directory holding the model file. Editors
// often replace a file instead of writing it in place, which a watch on the
// file itself would not survive.
func newModelWatcher(modelFile string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = w.Add(filepath.Dir(modelFile)); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// modelFiles returns the files a model is read from: the file itself, or
// both halves of a text model.
func modelFiles(modelFile string) []string {
	p := filepath.Clean(modelFile)
	ext := filepath.Ext(p)
	switch strings.ToLower(ext) {
	case ".sets", ".rules":
		stem := strings.TrimSuffix(p, ext)
		return []string{stem + ".sets", stem + ".rules"}
	}
	return []string{p}
}

func (s *Server) watch(ctx context.Context, w *fsnotify.Watcher) error {
	defer w.Close()
	files := modelFiles(s.cfg.ModelFile)
	s.log.Info("watching model", zap.Strings("files", files))

	// Saves usually produce bursts of events; reload once per burst.
	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(ev.Name)
			for _, f := range files {
				if name == f {
					s.log.Debug("model file changed", zap.String("file", name), zap.Stringer("op", ev.Op))
					timer.Reset(reloadDebounce)
					break
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Info("model watcher error", zap.Error(err))
		case <-timer.C:
			_ = s.Reload()
		}
	}
}
