package internal

import "printdock.app/api/internal/database"

// RESTful datatypes

type UserData struct {
	User *database.User `json:"user"`
}
type UserRes struct {
	Success bool     `json:"success"`
	Data    UserData `json:"data"`
}
type RegisterRes struct {
	Success          bool     `json:"success"`
	Data             UserData `json:"data"`
	PasswordStrength int      `json:"passwordStrength"`
}
type AvailabilityRes struct {
	Success   bool            `json:"success"`
	Available bool            `json:"available"`
	Checks    map[string]bool `json:"checks"`
	Message   string          `json:"message"`
}
type MessageRes struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
type UploadData struct {
	BatchID string         `json:"batchId"`
	Files   []UploadedFile `json:"files"`
}
type UploadRes struct {
	Success bool       `json:"success"`
	Data    UploadData `json:"data"`
}

// Substructures

type UploadedFile struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	Format   string `json:"format"`
	Bytes    int64  `json:"bytes"`
}
