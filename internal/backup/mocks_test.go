package backup

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"custodian/internal/storage"
)

// fakeStorage is an in-memory object store with failure injection.
type fakeStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPut  bool
	failKeys map[string]bool // keys whose removal should fail
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects:  make(map[string][]byte),
		failKeys: make(map[string]bool),
	}
}

func (f *fakeStorage) Put(_ context.Context, key string, r io.Reader, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("injected upload failure")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, found := f.objects[key]
	if !found {
		return nil, errors.New("object not resolvable: " + key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) List(_ context.Context, prefix string) ([]storage.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]storage.Entry, 0, len(f.objects))
	for key, data := range f.objects {
		if prefix == "" || len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			entries = append(entries, storage.Entry{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (f *fakeStorage) RemoveMany(_ context.Context, keys []string) ([]string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := make([]string, 0, len(keys))
	failed := make([]string, 0)
	for _, key := range keys {
		if f.failKeys[key] {
			failed = append(failed, key)
			continue
		}
		// deleting an absent key is still a success
		delete(f.objects, key)
		deleted = append(deleted, key)
	}
	return deleted, failed, nil
}

func (f *fakeStorage) Ping(context.Context) error { return nil }

func (f *fakeStorage) corrupt(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data := f.objects[key]
	data[len(data)/2] ^= 0x01
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

func (f *fakeStorage) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// fakeDumper writes a deterministic dump and records what Apply got.
type fakeDumper struct {
	mu       sync.Mutex
	content  string
	failDump bool

	// when set, Dump blocks until the channel is closed
	block chan struct{}
	began chan struct{}

	applied        bool
	appliedContent string
}

func newFakeDumper(content string) *fakeDumper {
	return &fakeDumper{content: content, began: make(chan struct{}, 16)}
}

func (d *fakeDumper) Dump(_ context.Context, destDir string) error {
	d.began <- struct{}{}
	if d.block != nil {
		<-d.block
	}
	if d.failDump {
		return errors.New("injected dump failure")
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(destDir, "data.sql"), []byte(d.content), 0600)
}

func (d *fakeDumper) Apply(_ context.Context, srcDir string) error {
	data, err := os.ReadFile(filepath.Join(srcDir, "data.sql"))
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.applied = true
	d.appliedContent = string(data)
	return nil
}

func (d *fakeDumper) wasApplied() (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applied, d.appliedContent
}
