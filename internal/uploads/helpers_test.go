package uploads

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"printdock.app/api/internal/database"
	"printdock.app/api/internal/storage"
	"printdock.app/api/internal/testinfra"
)

type fakeStore struct {
	mu         sync.Mutex
	failOn     map[string]error
	uploaded   []string
	destroyed  []string
	destroyErr error
	chunk      int
	onChunk    func()
}

func (s *fakeStore) Upload(_ context.Context, in storage.UploadInput) (*storage.Object, error) {
	var n int64
	buf := make([]byte, s.chunkSize())
	for {
		m, err := in.Body.Read(buf)
		n += int64(m)
		if m > 0 && s.onChunk != nil {
			s.onChunk()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[in.Filename]; err != nil {
		return nil, err
	}
	s.uploaded = append(s.uploaded, in.Filename)
	obj := &storage.Object{
		PublicID:     in.Folder + "/" + in.DisplayName,
		URL:          "https://cdn.example.com/" + in.Folder + "/" + in.DisplayName,
		ResourceType: in.ResourceType,
		Bytes:        n,
	}
	if in.ResourceType == storage.ResourceImage {
		obj.Format, obj.Width, obj.Height = storage.Extension(in.Filename), 640, 480
	}
	return obj, nil
}

func (s *fakeStore) chunkSize() int {
	if s.chunk > 0 {
		return s.chunk
	}
	return 32 * 1024
}

func (s *fakeStore) Destroy(_ context.Context, publicID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = append(s.destroyed, publicID)
	return s.destroyErr
}

func (s *fakeStore) List(context.Context, storage.ListInput) (*storage.Listing, error) {
	return &storage.Listing{}, nil
}

type nopSeekCloser struct{ *bytes.Reader }

func (nopSeekCloser) Close() error { return nil }

func memFile(name, contentType string, data []byte) FileInput {
	return FileInput{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadSeekCloser, error) {
			return nopSeekCloser{bytes.NewReader(data)}, nil
		},
	}
}

func newTestPipeline(t *testing.T, store storage.ObjectStore) (*Pipeline, *database.User) {
	t.Helper()
	db := testinfra.OpenSQLite(t)
	user := &database.User{Firstname: "Ada", Lastname: "Lovelace", Email: "ada@example.com", Phone: "1", Password: "x"}
	require.NoError(t, database.CreateUser(context.Background(), db, user))
	return &Pipeline{
		DB:     db,
		Store:  store,
		Logger: testinfra.Logger(t),
		Folder: "Printing",
	}, user
}

func countFiles(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&database.File{}).Count(&n).Error)
	return n
}
