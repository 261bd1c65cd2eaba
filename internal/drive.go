package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	FolderMimeType      = "application/vnd.google-apps.folder"
	SpreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	XLSXMimeType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrFileNotFound is returned by FindFileByName when nothing matches
var ErrFileNotFound = errors.New("file not found")

// FileStore moves files to and from the cloud folder
type FileStore interface {
	FindOrCreateFolder(ctx context.Context, parentID, name string) (string, error)
	UploadFile(ctx context.Context, localPath, remoteName, folderID string) (string, error)
	FindFileByName(ctx context.Context, parentID, namePattern string) (TableFile, error)
	ListNames(ctx context.Context, parentID string, limit int) ([]string, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	ReplaceContent(ctx context.Context, fileID string, data []byte, mimeType string) error
}

// DriveStore implements FileStore on Google Drive, shared drives included
type DriveStore struct {
	service *drive.Service
}

func NewDriveStore(service *drive.Service) *DriveStore {
	return &DriveStore{service: service}
}

func (d *DriveStore) FindOrCreateFolder(ctx context.Context, parentID, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and '%s' in parents and mimeType = '%s' and trashed = false",
		QuoteQuery(name), QuoteQuery(parentID), FolderMimeType)
	list, err := d.service.Files.List().
		Q(q).
		Spaces("drive").
		Fields("files(id, name)").
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("looking up folder %q: %w", name, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := d.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating folder %q: %w", name, err)
	}
	return folder.Id, nil
}

func (d *DriveStore) UploadFile(ctx context.Context, localPath, remoteName, folderID string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	file, err := d.service.Files.Create(&drive.File{
		Name:    remoteName,
		Parents: []string{folderID},
	}).Media(f).Fields("id").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", remoteName, err)
	}
	return file.Id, nil
}

// FindFileByName returns the first non-folder file under parentID whose
// name contains namePattern
func (d *DriveStore) FindFileByName(ctx context.Context, parentID, namePattern string) (TableFile, error) {
	q := fmt.Sprintf("name contains '%s' and '%s' in parents and mimeType != '%s' and trashed = false",
		QuoteQuery(namePattern), QuoteQuery(parentID), FolderMimeType)
	list, err := d.service.Files.List().
		Q(q).
		Fields("files(id, name, mimeType)").
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return TableFile{}, fmt.Errorf("searching for %q: %w", namePattern, err)
	}
	if len(list.Files) == 0 {
		return TableFile{}, fmt.Errorf("%q: %w", namePattern, ErrFileNotFound)
	}
	f := list.Files[0]
	return TableFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType}, nil
}

func (d *DriveStore) ListNames(ctx context.Context, parentID string, limit int) ([]string, error) {
	list, err := d.service.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed = false", QuoteQuery(parentID))).
		Fields("files(name)").
		PageSize(int64(limit)).
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing folder: %w", err)
	}
	names := make([]string, 0, len(list.Files))
	for _, f := range list.Files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (d *DriveStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.service.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileID, err)
	}
	return data, nil
}

func (d *DriveStore) ReplaceContent(ctx context.Context, fileID string, data []byte, mimeType string) error {
	_, err := d.service.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("updating %s: %w", fileID, err)
	}
	return nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// QuoteQuery escapes a value for use inside single quotes in a Drive query
func QuoteQuery(s string) string {
	return queryEscaper.Replace(s)
}
