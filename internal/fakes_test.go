package internal

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type upload struct {
	LocalPath  string
	RemoteName string
	FolderID   string
}

// fakeStore is an in-memory FileStore. Errors are keyed by method name.
type fakeStore struct {
	mu sync.Mutex

	folders  map[string]string // "parent/name" -> id
	files    []TableFile
	content  map[string][]byte
	names    []string
	uploads  []upload
	replaced map[string][]byte
	errs     map[string]error
	calls    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		folders:  map[string]string{},
		content:  map[string][]byte{},
		replaced: map[string][]byte{},
		errs:     map[string]error{},
	}
}

func (f *fakeStore) record(method string) error {
	f.calls = append(f.calls, method)
	return f.errs[method]
}

func (f *fakeStore) FindOrCreateFolder(_ context.Context, parentID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindOrCreateFolder"); err != nil {
		return "", err
	}
	key := parentID + "/" + name
	if id, ok := f.folders[key]; ok {
		return id, nil
	}
	id := fmt.Sprintf("folder-%d", len(f.folders)+1)
	f.folders[key] = id
	return id, nil
}

func (f *fakeStore) UploadFile(_ context.Context, localPath, remoteName, folderID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UploadFile"); err != nil {
		return "", err
	}
	f.uploads = append(f.uploads, upload{LocalPath: localPath, RemoteName: remoteName, FolderID: folderID})
	return fmt.Sprintf("upload-%d", len(f.uploads)), nil
}

func (f *fakeStore) FindFileByName(_ context.Context, _ string, namePattern string) (TableFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindFileByName"); err != nil {
		return TableFile{}, err
	}
	for _, file := range f.files {
		if strings.Contains(file.Name, namePattern) {
			return file, nil
		}
	}
	return TableFile{}, fmt.Errorf("%q: %w", namePattern, ErrFileNotFound)
}

func (f *fakeStore) ListNames(_ context.Context, _ string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListNames"); err != nil {
		return nil, err
	}
	return f.names[:min(limit, len(f.names))], nil
}

func (f *fakeStore) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Download"); err != nil {
		return nil, err
	}
	data, ok := f.content[fileID]
	if !ok {
		return nil, fmt.Errorf("no content for %s", fileID)
	}
	return data, nil
}

func (f *fakeStore) ReplaceContent(_ context.Context, fileID string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReplaceContent"); err != nil {
		return err
	}
	f.replaced[fileID] = append([]byte(nil), data...)
	return nil
}

// fakeSheets is an in-memory SheetValues
type fakeSheets struct {
	values    [][]any
	getErr    error
	updateErr error

	updates []sheetUpdate
}

type sheetUpdate struct {
	Range  string
	Values [][]any
}

func (f *fakeSheets) Get(context.Context, string, string) ([][]any, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.values, nil
}

func (f *fakeSheets) Update(_ context.Context, _ string, rng string, values [][]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, sheetUpdate{Range: rng, Values: values})
	return nil
}
