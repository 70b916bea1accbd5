package storage

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/JamesPrial/komikshub-bot/pkg/catalog"
	"github.com/JamesPrial/komikshub-bot/pkg/errors"
)

// catalogFile is the on-disk shape shared by the file backend and seed files
type catalogFile struct {
	Characters []catalog.Character `yaml:"characters"`
}

// FileBackend keeps the catalog in a YAML file, typically inside a folder
// synced to cloud storage. Reads are served from memory. Every insert
// rewrites the file atomically, and external edits are picked up through
// fsnotify.
type FileBackend struct {
	path    string
	mem     *MemoryBackend
	writeMu sync.Mutex

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewFileBackend loads path (a missing file is an empty catalog) and, when
// watch is set, reloads it whenever it changes on disk.
func NewFileBackend(path string, watch bool) (*FileBackend, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageInitialization, "invalid catalog path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to create catalog directory")
	}

	f := &FileBackend{path: path, mem: newMemoryBackend("file")}
	if err := f.reload(); err != nil {
		return nil, err
	}

	if watch {
		if err := f.startWatcher(); err != nil {
			return nil, err
		}
	}

	f.mem.logger.Info("Opened file backend", slog.String("path", path), slog.Bool("watch", watch))
	return f, nil
}

// ReadCatalogFile decodes a YAML catalog or seed file
func ReadCatalogFile(path string) ([]catalog.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeValidationFormat, "invalid catalog file %s", path)
	}
	return file.Characters, nil
}

func (f *FileBackend) reload() error {
	chars, err := ReadCatalogFile(f.path)
	if stderrors.Is(err, fs.ErrNotExist) {
		chars, err = nil, nil
	}
	if err != nil {
		return err
	}
	assigned := 0
	for i := range chars {
		chars[i] = chars[i].Normalize()
		if chars[i].ID == "" {
			chars[i].ID = catalog.NewID()
			assigned++
		}
	}
	if err := f.mem.replace(chars); err != nil {
		return errors.Wrapf(err, errors.ErrCodeStorageConstraint, "catalog file %s", f.path)
	}

	// New ids are written back so select tokens survive the next reload.
	if assigned > 0 {
		if err := f.persist(); err != nil {
			f.mem.logger.Warn("Failed to write assigned ids to catalog file",
				slog.String("path", f.path), slog.String("error", err.Error()))
		} else {
			f.mem.logger.Info("Assigned ids to catalog entries",
				slog.String("path", f.path), slog.Int("count", assigned))
		}
	}
	return nil
}

// persist writes the current catalog through a temp file and rename so a
// syncing client never sees a half-written file.
func (f *FileBackend) persist() error {
	f.mem.mu.RLock()
	data, err := yaml.Marshal(catalogFile{Characters: f.mem.snapshotLocked()})
	f.mem.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to encode catalog")
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".catalog-*.yaml")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to write catalog")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to write catalog")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageTransaction, "failed to replace catalog")
	}
	return nil
}

func (f *FileBackend) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to create file watcher")
	}
	// Watch the directory: editors and sync clients replace the file, which
	// drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		watcher.Close()
		return errors.Wrap(err, errors.ErrCodeStorageInitialization, "failed to watch catalog directory")
	}
	f.watcher = watcher

	f.wg.Add(1)
	go f.watch()
	return nil
}

func (f *FileBackend) watch() {
	defer f.wg.Done()
	logger := f.mem.logger
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			f.writeMu.Lock()
			err := f.reload()
			f.writeMu.Unlock()
			if err != nil {
				logger.Warn("Failed to reload catalog file, keeping previous contents",
					slog.String("path", f.path), slog.String("error", err.Error()))
				continue
			}
			logger.Debug("Reloaded catalog file", slog.String("op", event.Op.String()))
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Catalog watcher error", slog.String("error", err.Error()))
		}
	}
}

func (f *FileBackend) ListCharacters(ctx context.Context) ([]catalog.Character, error) {
	return f.mem.ListCharacters(ctx)
}

func (f *FileBackend) GetCharacter(ctx context.Context, id string) (*catalog.Character, error) {
	return f.mem.GetCharacter(ctx, id)
}

func (f *FileBackend) GetCharacterByName(ctx context.Context, name string) (*catalog.Character, error) {
	return f.mem.GetCharacterByName(ctx, name)
}

func (f *FileBackend) RandomCharacters(ctx context.Context, n int) ([]catalog.Character, error) {
	return f.mem.RandomCharacters(ctx, n)
}

// InsertCharacter stores c in memory and on disk. If the file cannot be
// written the insert is rolled back.
func (f *FileBackend) InsertCharacter(ctx context.Context, c catalog.Character) (catalog.Character, error) {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	stored, err := f.mem.InsertCharacter(ctx, c)
	if err != nil {
		return catalog.Character{}, err
	}
	if err := f.persist(); err != nil {
		f.mem.remove(stored.ID)
		return catalog.Character{}, err
	}
	return stored, nil
}

func (f *FileBackend) GetStatistics(ctx context.Context) (map[string]int, error) {
	return f.mem.GetStatistics(ctx)
}

// Close stops the watcher and waits for it to exit
func (f *FileBackend) Close() error {
	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	f.wg.Wait()
	f.watcher = nil
	return err
}
