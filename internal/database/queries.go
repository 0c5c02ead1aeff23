package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// DuplicateKeyError is returned when an insert hits a unique index.
type DuplicateKeyError struct {
	Constraint string
	Err        error
}

func (e *DuplicateKeyError) Error() string {
	if e.Constraint == "" {
		return "duplicate key"
	}
	return fmt.Sprintf("duplicate key violates %s", e.Constraint)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

func asDuplicate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &DuplicateKeyError{Constraint: pqErr.Constraint, Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &DuplicateKeyError{Err: err}
	}
	return err
}

// identifying columns that may be probed with a caller supplied value
var identifierColumns = map[string]bool{
	"email":    true,
	"username": true,
	"phone":    true,
}

func GetUserByID(ctx context.Context, db *gorm.DB, id string) (*User, error) {
	user := &User{}
	err := db.WithContext(ctx).Where("id = ?", id).Take(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByIdentifier returns the first user whose email, username or phone equals identifier.
func GetUserByIdentifier(ctx context.Context, db *gorm.DB, identifier string) (*User, error) {
	user := &User{}
	err := db.WithContext(ctx).
		Where("email = ? OR username = ? OR phone = ?", identifier, identifier, identifier).
		Order("created_at ASC").
		First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetConflictingUser returns a user sharing any of the given identifying values.
// Empty values are not compared.
func GetConflictingUser(ctx context.Context, db *gorm.DB, email, username, phone string) (*User, error) {
	var (
		clauses []string
		args    []interface{}
	)
	for _, f := range []struct{ column, value string }{
		{"email", email},
		{"username", username},
		{"phone", phone},
	} {
		if f.value == "" {
			continue
		}
		clauses = append(clauses, f.column+" = ?")
		args = append(args, f.value)
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	user := &User{}
	err := db.WithContext(ctx).
		Where("("+strings.Join(clauses, " OR ")+")", args...).
		Order("created_at ASC").
		First(user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserFieldTaken reports whether a user already holds value in column.
func UserFieldTaken(ctx context.Context, db *gorm.DB, column, value string) (bool, error) {
	if !identifierColumns[column] {
		return false, fmt.Errorf("unknown identifying column '%s'", column)
	}
	var count int64
	err := db.WithContext(ctx).Model(&User{}).Where(column+" = ?", value).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func CreateUser(ctx context.Context, db *gorm.DB, user *User) error {
	return asDuplicate(db.WithContext(ctx).Create(user).Error)
}

func CreateFile(ctx context.Context, db *gorm.DB, file *File) error {
	return db.WithContext(ctx).Create(file).Error
}

func GetFileForUser(ctx context.Context, db *gorm.DB, userID, fileID string) (*File, bool, error) {
	file := &File{}
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", fileID, userID).Take(file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return file, true, nil
}

// ListFilesAfter returns up to limit files of userID, newest first, strictly after the
// given row in that order. A nil after starts from the newest file.
func ListFilesAfter(ctx context.Context, db *gorm.DB, userID string, after *File, limit int) ([]File, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if after != nil {
		q = q.Where("(uploaded_at < ? OR (uploaded_at = ? AND id < ?))", after.UploadedAt, after.UploadedAt, after.ID)
	}

	files := []File{}
	err := q.Order("uploaded_at DESC").Order("id DESC").Limit(limit).Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func CountFiles(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&File{}).Where("user_id = ?", userID).Count(&total).Error
	return total, err
}

// DeleteFileForUser removes one metadata row. found is false when no row matched.
func DeleteFileForUser(ctx context.Context, db *gorm.DB, userID, fileID string) (found bool, err error) {
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", fileID, userID).Delete(&File{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
