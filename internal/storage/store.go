// Package storage moves file bytes to a remote object store. The default backend is
// Cloudinary; an S3 compatible bucket can be used instead.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

const (
	ResourceImage = "image"
	ResourceVideo = "video"
	ResourceRaw   = "raw"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrInvalidCursor = errors.New("invalid listing cursor")
)

// listing order of ListEachType
var resourceTypes = []string{ResourceImage, ResourceVideo, ResourceRaw}

type UploadInput struct {
	Body         io.Reader
	Size         int64
	Filename     string
	ContentType  string
	Folder       string
	DisplayName  string
	ResourceType string
}

// Object describes a stored object as reported by the backend.
type Object struct {
	PublicID     string
	URL          string
	Format       string
	ResourceType string
	Bytes        int64
	Width        int
	Height       int
	CreatedAt    time.Time
}

type ListInput struct {
	Prefix       string
	ResourceType string
	Cursor       string
	MaxResults   int
}

type Listing struct {
	Objects    []Object
	NextCursor string
	Total      int
}

type ObjectStore interface {
	Upload(ctx context.Context, in UploadInput) (*Object, error)
	Destroy(ctx context.Context, publicID, resourceType string) error
	List(ctx context.Context, in ListInput) (*Listing, error)
}

// ResourceTypeFor maps a declared media type to the backend resource type.
// Anything that is not an image or a video, PDFs included, is stored raw.
func ResourceTypeFor(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return ResourceImage
	case strings.HasPrefix(ct, "video/"):
		return ResourceVideo
	}
	return ResourceRaw
}

// Extension returns the lower-case extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

// DisplayName strips the extension from filename.
func DisplayName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// UserFolder is the folder holding every upload of userID.
func UserFolder(root, userID string) string {
	return strings.TrimSuffix(root, "/") + "/user_" + userID
}

// ListEachType lists every resource type under in.Prefix for backends whose listing is
// scoped to one type. Types are paged through in order and a page never holds more than
// in.MaxResults objects. The returned cursor is "<type>:<backend cursor>".
func ListEachType(ctx context.Context, list func(context.Context, ListInput) (*Listing, error), in ListInput) (*Listing, error) {
	start, cursor, err := splitTypeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}

	out := &Listing{Objects: []Object{}}
	for i := start; i < len(resourceTypes); i++ {
		req := ListInput{Prefix: in.Prefix, ResourceType: resourceTypes[i], Cursor: cursor}
		if in.MaxResults > 0 {
			req.MaxResults = in.MaxResults - len(out.Objects)
		}
		page, err := list(ctx, req)
		if err != nil {
			return nil, err
		}
		out.Objects = append(out.Objects, page.Objects...)
		cursor = ""

		if page.NextCursor != "" {
			out.NextCursor = resourceTypes[i] + ":" + page.NextCursor
			break
		}
		if in.MaxResults > 0 && len(out.Objects) >= in.MaxResults {
			if i+1 < len(resourceTypes) {
				out.NextCursor = resourceTypes[i+1] + ":"
			}
			break
		}
	}
	out.Total = len(out.Objects)
	return out, nil
}

func splitTypeCursor(c string) (int, string, error) {
	if c == "" {
		return 0, "", nil
	}
	resourceType, rest, ok := strings.Cut(c, ":")
	if !ok {
		return 0, "", ErrInvalidCursor
	}
	for i, t := range resourceTypes {
		if t == resourceType {
			return i, rest, nil
		}
	}
	return 0, "", ErrInvalidCursor
}
