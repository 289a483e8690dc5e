package directory

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// fileDocument is the on-disk shape of the subscribers file.
type fileDocument struct {
	Subscribers []Subscriber `yaml:"subscribers"`
}

// FileStore is a Directory backed by a YAML file. External edits to the file
// are picked up at runtime via fsnotify; CLI mutations go through Add/Remove
// and are written back immediately.
type FileStore struct {
	*Memory

	path   string
	logger *logrus.Entry

	mu         sync.Mutex // serializes writes and debounces reloads
	lastReload time.Time
}

// NewFileStore creates a store for the given subscribers file and performs an
// initial load. A missing file is treated as an empty subscriber set.
func NewFileStore(path string, logger *logrus.Entry) (*FileStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	s := &FileStore{
		Memory: NewMemory(),
		path:   path,
		logger: logger,
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Add inserts or replaces a subscriber and persists the file.
func (s *FileStore) Add(sub Subscriber) error {
	s.Memory.Put(sub)
	return s.save()
}

// Remove deletes a subscriber and persists the file. Removing an unknown ID
// reports false without touching the file.
func (s *FileStore) Remove(id string) (bool, error) {
	if !s.Memory.Remove(id) {
		return false, nil
	}
	return true, s.save()
}

// Watch blocks until ctx is done, reloading the store whenever the backing
// file is written. The parent directory is watched rather than the file
// itself so that editors that replace-by-rename are still observed.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.handleChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithError(err).Error("Subscriber file watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}

// handleChange reloads the file with debouncing against rapid write bursts.
func (s *FileStore) handleChange() {
	s.mu.Lock()
	if time.Since(s.lastReload) < 100*time.Millisecond {
		s.mu.Unlock()
		return
	}
	s.lastReload = time.Now()
	s.mu.Unlock()

	if err := s.reload(); err != nil {
		// Keep serving the last good set; a half-written file is transient.
		s.logger.WithError(err).Warn("Failed to reload subscribers file")
		return
	}
	s.logger.WithField("subscribers", len(s.List())).Info("Subscribers reloaded")
}

func (s *FileStore) reload() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.Memory.replaceAll(nil)
		return nil
	}
	if err != nil {
		return err
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.Memory.replaceAll(doc.Subscribers)
	return nil
}

func (s *FileStore) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := fileDocument{Subscribers: s.List()}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	// Write-then-rename so Watch never observes a half-written file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
