// Package events publishes domain events. Publication is best effort: callers log a
// failed publish and carry on.
package events

import (
	"context"
	"time"
)

const (
	UserRegistered = "user.registered"
	FileUploaded   = "file.uploaded"
	FileDeleted    = "file.deleted"
)

type UserRegisteredEvent struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

type FileUploadedEvent struct {
	UserID  string    `json:"userId"`
	FileID  string    `json:"fileId"`
	BatchID string    `json:"batchId"`
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Bytes   int64     `json:"bytes"`
	At      time.Time `json:"at"`
}

type FileDeletedEvent struct {
	UserID   string    `json:"userId"`
	FileID   string    `json:"fileId"`
	PublicID string    `json:"publicId"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, name string, event interface{}) error
	Close() error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
func (Nop) Close() error                                       { return nil }
