// Package uploads moves user files to the object store, records their metadata and
// removes them again.
package uploads

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/database"
	"printdock.app/api/internal/events"
	"printdock.app/api/internal/storage"
)

var (
	uploadedFiles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "printdock_uploaded_files_total",
		Help: "Files processed by the upload pipeline, by outcome and logical type",
	}, []string{"outcome", "type"})
	uploadedBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "printdock_uploaded_bytes_total",
		Help: "Bytes accepted by the object store",
	})
)

// Collectors returns the pipeline metrics for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{uploadedFiles, uploadedBytes}
}

// FileInput is one file of a batch. Open is called once, by the task uploading it.
type FileInput struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadSeekCloser, error)
}

type Batch struct {
	ID     string
	UserID string
	Files  []FileInput
}

// FileError is the failure of one file of a batch.
type FileError struct {
	Index       int
	Name        string
	ContentType string
	Err         error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %d (%s, %s): %s", e.Index, e.Name, e.ContentType, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Result is the outcome of one file. Exactly one of File and Err is set.
type Result struct {
	Index int
	Name  string
	File  *database.File
	Err   error
}

type BatchResult struct {
	BatchID string
	Results []Result
}

// Uploaded returns the persisted files in batch order.
func (r *BatchResult) Uploaded() []database.File {
	files := make([]database.File, 0, len(r.Results))
	for _, res := range r.Results {
		if res.File != nil {
			files = append(files, *res.File)
		}
	}
	return files
}

type Pipeline struct {
	DB     *gorm.DB
	Store  storage.ObjectStore
	Logger logrus.FieldLogger

	Notifier Notifier
	Events   events.Publisher

	Folder           string
	MaxBytes         int64
	ProgressInterval time.Duration
	StoreTimeout     time.Duration
}

// Run uploads every file of the batch concurrently and waits for all of them. Sibling
// uploads are never cancelled by a failure. The returned error is the failure of the
// lowest-indexed failing file; the BatchResult always holds every file's outcome.
func (p *Pipeline) Run(ctx context.Context, batch Batch) (*BatchResult, error) {
	if batch.UserID == "" {
		return nil, apperr.Validation("User ID is required", map[string]string{"userId": "User ID is required"})
	}
	if len(batch.Files) == 0 {
		return nil, apperr.Validation("No files provided", map[string]string{"files": "No files provided"})
	}
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}

	notifier := p.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	trackers := make([]*tracker, len(batch.Files))
	for i, f := range batch.Files {
		trackers[i] = newTracker(notifier, batch.UserID, batch.ID, i, f.Name)
		trackers[i].pending()
	}

	result := &BatchResult{BatchID: batch.ID, Results: make([]Result, len(batch.Files))}
	var g errgroup.Group
	for i, f := range batch.Files {
		g.Go(func() error {
			file, err := p.uploadOne(ctx, batch, i, f, trackers[i])
			result.Results[i] = Result{Index: i, Name: f.Name, File: file, Err: err}
			return err
		})
	}
	_ = g.Wait()

	for _, res := range result.Results {
		if res.Err != nil {
			return result, res.Err
		}
	}
	return result, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, batch Batch, index int, in FileInput, t *tracker) (*database.File, error) {
	log := p.Logger.WithFields(logrus.Fields{
		"batch_id": batch.ID,
		"index":    index,
		"filename": in.Name,
		"type":     in.ContentType,
	})
	fail := func(err error) (*database.File, error) {
		t.fail(err)
		uploadedFiles.WithLabelValues("error", "").Inc()
		log.WithError(err).Error("upload failed")
		return nil, &FileError{Index: index, Name: in.Name, ContentType: in.ContentType, Err: err}
	}

	if p.MaxBytes > 0 && in.Size > p.MaxBytes {
		return fail(fmt.Errorf("file exceeds the %d byte limit", p.MaxBytes))
	}

	body, err := in.Open()
	if err != nil {
		return fail(fmt.Errorf("open: %w", err))
	}
	defer body.Close()

	reader := &countingReader{r: body}
	t.start(reader, in.Size, p.ProgressInterval)

	storeCtx := ctx
	if p.StoreTimeout > 0 {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(ctx, p.StoreTimeout)
		defer cancel()
	}

	resourceType := storage.ResourceTypeFor(in.ContentType)
	obj, err := p.Store.Upload(storeCtx, storage.UploadInput{
		Body:         reader,
		Size:         in.Size,
		Filename:     in.Name,
		ContentType:  in.ContentType,
		Folder:       storage.UserFolder(p.Folder, batch.UserID),
		DisplayName:  storage.DisplayName(in.Name),
		ResourceType: resourceType,
	})
	if err != nil {
		return fail(fmt.Errorf("store: %w", err))
	}
	if obj.ResourceType == "" {
		obj.ResourceType = resourceType
	}

	file := &database.File{
		Name:         in.Name,
		PublicID:     obj.PublicID,
		URL:          obj.URL,
		Size:         obj.Bytes,
		Type:         LogicalType(in.Name, obj.Format, obj.ResourceType),
		Format:       obj.Format,
		ResourceType: obj.ResourceType,
		UserID:       batch.UserID,
	}
	if obj.Width > 0 {
		file.Width = &obj.Width
	}
	if obj.Height > 0 {
		file.Height = &obj.Height
	}
	if err := database.CreateFile(ctx, p.DB, file); err != nil {
		return fail(fmt.Errorf("save metadata: %w", err))
	}

	t.succeed()
	uploadedFiles.WithLabelValues("success", file.Type).Inc()
	uploadedBytes.Add(float64(file.Size))
	log.WithFields(logrus.Fields{"file_id": file.ID, "public_id": file.PublicID}).Info("file uploaded")
	p.publish(ctx, events.FileUploaded, events.FileUploadedEvent{
		UserID:  batch.UserID,
		FileID:  file.ID,
		BatchID: batch.ID,
		Name:    file.Name,
		Type:    file.Type,
		Bytes:   file.Size,
		At:      file.UploadedAt,
	})
	return file, nil
}

func (p *Pipeline) publish(ctx context.Context, name string, event interface{}) {
	if p.Events == nil {
		return
	}
	if err := p.Events.Publish(ctx, name, event); err != nil {
		p.Logger.WithError(err).Warnf("could not publish %s", name)
	}
}
