package uploads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/database"
	"printdock.app/api/internal/events"
	"printdock.app/api/internal/storage"
)

type DeleteInput struct {
	FileID       string `json:"fileId"`
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"`
}

type DeleteOutcome struct {
	AlreadyDeleted bool
}

func (o DeleteOutcome) Message() string {
	if o.AlreadyDeleted {
		return "File already deleted from database."
	}
	return "File deleted successfully"
}

// Delete removes the caller's metadata row and its remote object. The object to destroy
// is taken from the row owned by userID, never from the request. A failed remote removal
// is logged and ignored; the row is the authoritative record.
func (p *Pipeline) Delete(ctx context.Context, userID string, in DeleteInput) (*DeleteOutcome, error) {
	if in.FileID == "" || in.PublicID == "" || in.ResourceType == "" {
		return nil, apperr.Validation("Missing required file information for deletion", nil)
	}
	log := p.Logger.WithFields(logrus.Fields{
		"user_id": userID,
		"file_id": in.FileID,
	})

	// file ids are uuids; anything else cannot name a row
	if _, err := uuid.Parse(in.FileID); err != nil {
		return &DeleteOutcome{AlreadyDeleted: true}, nil
	}
	row, found, err := database.GetFileForUser(ctx, p.DB, userID, in.FileID)
	if err != nil {
		log.WithError(err).Error("load file row")
		return nil, apperr.Failed("Failed to delete file", "load file row", err)
	}
	if !found {
		return &DeleteOutcome{AlreadyDeleted: true}, nil
	}
	log = log.WithFields(logrus.Fields{
		"public_id":     row.PublicID,
		"resource_type": row.ResourceType,
	})
	if row.PublicID != in.PublicID {
		log.Warnf("request named public id '%s', using the stored one", in.PublicID)
	}

	storeCtx := ctx
	if p.StoreTimeout > 0 {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(ctx, p.StoreTimeout)
		defer cancel()
	}
	if err := p.Store.Destroy(storeCtx, row.PublicID, row.ResourceType); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Info("remote object already removed")
		} else {
			log.WithError(err).Warn("could not delete remote object, it may have already been removed")
		}
	}

	found, err = database.DeleteFileForUser(ctx, p.DB, userID, row.ID)
	if err != nil {
		log.WithError(err).Error("delete file row")
		return nil, apperr.Failed("Failed to delete file", "delete file row", err)
	}
	if !found {
		return &DeleteOutcome{AlreadyDeleted: true}, nil
	}

	log.Info("file deleted")
	p.publish(ctx, events.FileDeleted, events.FileDeletedEvent{
		UserID:   userID,
		FileID:   row.ID,
		PublicID: row.PublicID,
		At:       time.Now().UTC(),
	})
	return &DeleteOutcome{}, nil
}
