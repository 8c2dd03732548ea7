package network

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FileSource reads connectivity from a status file that an external agent
// (a NetworkManager dispatcher script, for example) keeps up to date.
// The first word is "online" or "offline"; an optional second word names
// the connection type.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

func (s *FileSource) Current(context.Context) (Status, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return Status{}, err
	}
	return parseStatusFile(string(b))
}

func parseStatusFile(content string) (Status, error) {
	fields := strings.Fields(strings.ToLower(content))
	if len(fields) == 0 {
		return Status{}, fmt.Errorf("empty status file")
	}

	st := Status{ConnectionType: ConnectionUnknown}
	switch fields[0] {
	case "online", "up", "1", "true":
		st.Connected = true
	case "offline", "down", "0", "false":
		st.Connected = false
	default:
		return Status{}, fmt.Errorf("unknown status %q", fields[0])
	}
	if len(fields) > 1 {
		st.ConnectionType = fields[1]
	}
	if !st.Connected {
		st.ConnectionType = "none"
	}
	return st, nil
}

// Watch observes the parent directory so that atomic replacements of the
// file are seen as well as in-place writes.
func (s *FileSource) Watch(ctx context.Context, fn func(Status)) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return nil, err
	}

	name := filepath.Clean(s.path)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				st, err := s.Current(ctx)
				if err != nil {
					continue
				}
				fn(st)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.Close()
			<-done
		})
	}, nil
}
