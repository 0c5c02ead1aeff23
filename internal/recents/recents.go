// Package recents lists a user's uploads newest first, one page at a time.
package recents

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/database"
	"printdock.app/api/internal/storage"
	"printdock.app/api/internal/uploads"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50

	SourceDatabase = "database"
	SourceProvider = "provider"
)

var errInvalidCursor = apperr.Validation("Invalid cursor", map[string]string{"cursor": "Invalid cursor"})

// Record is the display form of one file.
type Record struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PublicID     string    `json:"publicId"`
	Type         string    `json:"type"`
	Size         string    `json:"size"`
	Bytes        int64     `json:"bytes"`
	Modified     string    `json:"modified"`
	URL          string    `json:"url"`
	ResourceType string    `json:"resourceType"`
	Format       string    `json:"format"`
	Width        *int      `json:"width"`
	Height       *int      `json:"height"`
	ModifiedAt   time.Time `json:"-"`
}

type Page struct {
	Files      []Record `json:"files"`
	NextCursor *string  `json:"nextCursor"`
	HasMore    bool     `json:"hasMore"`
	Total      int64    `json:"total"`
	Groups     []Group  `json:"groups,omitempty"`
}

type Request struct {
	UserID       string
	Cursor       string
	Limit        int
	Source       string
	ResourceType string
	Grouped      bool
}

type Query struct {
	DB     *gorm.DB
	Store  storage.ObjectStore
	Logger logrus.FieldLogger

	Folder        string
	DefaultSource string
	Now           func() time.Time
}

// ParseLimit reads the limit query parameter. Missing, malformed and non-positive
// values give DefaultLimit; anything above MaxLimit is capped.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func (q *Query) List(ctx context.Context, req Request) (*Page, error) {
	if req.UserID == "" {
		return nil, apperr.Validation("User ID is required", map[string]string{"userId": "User ID is required"})
	}
	if req.Limit < 1 || req.Limit > MaxLimit {
		req.Limit = ParseLimit(strconv.Itoa(req.Limit))
	}

	source := req.Source
	if source == "" {
		source = q.DefaultSource
	}

	var (
		page *Page
		err  error
	)
	switch source {
	case "", SourceDatabase:
		page, err = q.fromDatabase(ctx, req)
	case SourceProvider:
		page, err = q.fromProvider(ctx, req)
	default:
		return nil, apperr.Validation(fmt.Sprintf("Unknown source '%s'", source), nil)
	}
	if err != nil {
		return nil, err
	}

	if req.Grouped {
		page.Groups = GroupByMonth(page.Files, q.now())
	}
	return page, nil
}

func (q *Query) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now()
}

func (q *Query) fromDatabase(ctx context.Context, req Request) (*Page, error) {
	var after *database.File
	if req.Cursor != "" {
		if _, err := uuid.Parse(req.Cursor); err != nil {
			return nil, errInvalidCursor
		}
		f, found, err := database.GetFileForUser(ctx, q.DB, req.UserID, req.Cursor)
		if err != nil {
			return nil, q.unexpected("resolve cursor", err)
		}
		if !found {
			return nil, errInvalidCursor
		}
		after = f
	}

	files, err := database.ListFilesAfter(ctx, q.DB, req.UserID, after, req.Limit)
	if err != nil {
		return nil, q.unexpected("list files", err)
	}
	total, err := database.CountFiles(ctx, q.DB, req.UserID)
	if err != nil {
		return nil, q.unexpected("count files", err)
	}

	page := &Page{Files: make([]Record, 0, len(files)), Total: total}
	for _, f := range files {
		page.Files = append(page.Files, recordFromFile(f))
	}
	if len(files) == req.Limit {
		last := files[len(files)-1].ID
		page.NextCursor = &last
		page.HasMore = true
	}
	return page, nil
}

func (q *Query) fromProvider(ctx context.Context, req Request) (*Page, error) {
	listing, err := q.Store.List(ctx, storage.ListInput{
		Prefix:       storage.UserFolder(q.Folder, req.UserID),
		ResourceType: req.ResourceType,
		Cursor:       req.Cursor,
		MaxResults:   req.Limit,
	})
	if errors.Is(err, storage.ErrInvalidCursor) {
		return nil, errInvalidCursor
	}
	if err != nil {
		return nil, q.unexpected("list provider objects", err)
	}

	page := &Page{Files: make([]Record, 0, len(listing.Objects))}
	for i, obj := range listing.Objects {
		page.Files = append(page.Files, recordFromObject(obj, i))
	}
	sort.SliceStable(page.Files, func(i, j int) bool {
		return page.Files[i].ModifiedAt.After(page.Files[j].ModifiedAt)
	})

	if listing.NextCursor != "" {
		next := listing.NextCursor
		page.NextCursor = &next
		page.HasMore = true
	}
	page.Total = int64(listing.Total)
	if page.Total == 0 {
		page.Total = int64(len(page.Files))
	}
	return page, nil
}

func recordFromFile(f database.File) Record {
	return Record{
		ID:           f.ID,
		Name:         f.Name,
		PublicID:     f.PublicID,
		Type:         f.Type,
		Size:         FormatSize(f.Size),
		Bytes:        f.Size,
		Modified:     f.UploadedAt.UTC().Format(time.RFC3339),
		URL:          f.URL,
		ResourceType: f.ResourceType,
		Format:       f.Format,
		Width:        f.Width,
		Height:       f.Height,
		ModifiedAt:   f.UploadedAt,
	}
}

// recordFromObject builds a record for a provider listing. The provider has no row id,
// so the id combines the public id with the position in the page.
func recordFromObject(obj storage.Object, index int) Record {
	name := path.Base(obj.PublicID)
	r := Record{
		ID:           fmt.Sprintf("%s_%d", obj.PublicID, index),
		Name:         name,
		PublicID:     obj.PublicID,
		Type:         uploads.LogicalType(name, obj.Format, obj.ResourceType),
		Size:         FormatSize(obj.Bytes),
		Bytes:        obj.Bytes,
		Modified:     obj.CreatedAt.UTC().Format(time.RFC3339),
		URL:          obj.URL,
		ResourceType: obj.ResourceType,
		Format:       obj.Format,
		ModifiedAt:   obj.CreatedAt,
	}
	if obj.Width > 0 {
		w := obj.Width
		r.Width = &w
	}
	if obj.Height > 0 {
		h := obj.Height
		r.Height = &h
	}
	return r
}

func (q *Query) unexpected(op string, err error) error {
	q.Logger.WithError(err).Errorf("recents: %s", op)
	return apperr.Unexpected(op, err)
}
