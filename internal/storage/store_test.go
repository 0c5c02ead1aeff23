package storage

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceTypeFor(t *testing.T) {
	tests := map[string]string{
		"image/png":          ResourceImage,
		"IMAGE/JPEG":         ResourceImage,
		"video/mp4":          ResourceVideo,
		"application/pdf":    ResourceRaw,
		"text/csv":           ResourceRaw,
		"":                   ResourceRaw,
		"application/msword": ResourceRaw,
	}
	for contentType, want := range tests {
		assert.Equal(t, want, ResourceTypeFor(contentType), contentType)
	}
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "report", DisplayName("report.pdf"))
	assert.Equal(t, "archive.tar", DisplayName("archive.tar.gz"))
	assert.Equal(t, "README", DisplayName("README"))
	assert.Equal(t, ".env", DisplayName(".env"))
	assert.Equal(t, "photo", DisplayName(`C:\Users\me\photo.JPG`))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "jpg", Extension("photo.JPG"))
	assert.Equal(t, "", Extension("README"))
}

func TestUserFolder(t *testing.T) {
	assert.Equal(t, "Printing/user_42", UserFolder("Printing", "42"))
	assert.Equal(t, "Printing/user_42", UserFolder("Printing/", "42"))
}

// typedFolder serves a single-type listing out of a fixed set of objects, two per page.
type typedFolder struct {
	objects []Object
	calls   []ListInput
}

func (f *typedFolder) list(_ context.Context, in ListInput) (*Listing, error) {
	f.calls = append(f.calls, in)
	var matching []Object
	for _, o := range f.objects {
		if o.ResourceType == in.ResourceType {
			matching = append(matching, o)
		}
	}
	offset := 0
	if in.Cursor != "" {
		offset, _ = strconv.Atoi(in.Cursor)
	}
	size := 2
	if in.MaxResults > 0 && in.MaxResults < size {
		size = in.MaxResults
	}
	end := min(offset+size, len(matching))
	page := &Listing{Objects: matching[offset:end]}
	if end < len(matching) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func collectIDs(t *testing.T, f *typedFolder, max int) []string {
	t.Helper()
	var (
		ids    []string
		cursor string
	)
	for range 10 {
		page, err := ListEachType(context.Background(), f.list, ListInput{Prefix: "Printing/user_1", Cursor: cursor, MaxResults: max})
		require.NoError(t, err)
		if max > 0 {
			assert.LessOrEqual(t, len(page.Objects), max)
		}
		for _, o := range page.Objects {
			ids = append(ids, o.PublicID)
		}
		if page.NextCursor == "" {
			return ids
		}
		cursor = page.NextCursor
	}
	t.Fatal("listing did not terminate")
	return nil
}

func TestListEachType_MixedFolder(t *testing.T) {
	folder := &typedFolder{objects: []Object{
		{PublicID: "flyer", ResourceType: ResourceImage},
		{PublicID: "poster", ResourceType: ResourceImage},
		{PublicID: "banner", ResourceType: ResourceImage},
		{PublicID: "promo", ResourceType: ResourceVideo},
		{PublicID: "invoice", ResourceType: ResourceRaw},
		{PublicID: "menu", ResourceType: ResourceRaw},
	}}

	assert.Equal(t, []string{"flyer", "poster", "banner", "promo", "invoice", "menu"}, collectIDs(t, folder, 3))
	for _, call := range folder.calls {
		assert.NotEmpty(t, call.ResourceType)
		assert.Equal(t, "Printing/user_1", call.Prefix)
	}

	folder.calls = nil
	assert.Equal(t, []string{"flyer", "poster", "banner", "promo", "invoice", "menu"}, collectIDs(t, folder, 0))
}

func TestListEachType_InvalidCursor(t *testing.T) {
	folder := &typedFolder{}
	for _, cursor := range []string{"no-separator", "audio:abc"} {
		_, err := ListEachType(context.Background(), folder.list, ListInput{Cursor: cursor})
		assert.ErrorIs(t, err, ErrInvalidCursor, cursor)
	}
	assert.Empty(t, folder.calls)
}
