package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printdock.app/api/internal/database"
	"printdock.app/api/internal/testinfra"
)

func strPtr(s string) *string { return &s }

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	db := testinfra.OpenSQLite(t)

	first := &database.User{Firstname: "Ada", Lastname: "Lovelace", Email: "ada@example.com", Phone: "+1 555 0100", Password: "x"}
	require.NoError(t, database.CreateUser(ctx, db, first))
	assert.NotEmpty(t, first.ID)

	second := &database.User{Firstname: "Ada", Lastname: "Byron", Email: "ada@example.com", Phone: "+1 555 0101", Password: "x"}
	err := database.CreateUser(ctx, db, second)

	var dup *database.DuplicateKeyError
	require.ErrorAs(t, err, &dup)

	var count int64
	require.NoError(t, db.Model(&database.User{}).Where("email = ?", "ada@example.com").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateUser_NullUsernamesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	db := testinfra.OpenSQLite(t)

	require.NoError(t, database.CreateUser(ctx, db, &database.User{Firstname: "Al", Lastname: "One", Email: "a@example.com", Phone: "1", Password: "x"}))
	require.NoError(t, database.CreateUser(ctx, db, &database.User{Firstname: "Bo", Lastname: "Two", Email: "b@example.com", Phone: "2", Password: "x"}))
}

func TestGetUserByIdentifier(t *testing.T) {
	ctx := context.Background()
	db := testinfra.OpenSQLite(t)
	u := &database.User{Firstname: "Grace", Lastname: "Hopper", Email: "grace@example.com", Username: strPtr("grace"), Phone: "+44 20 7946 0000", Password: "x"}
	require.NoError(t, database.CreateUser(ctx, db, u))

	for _, identifier := range []string{"grace@example.com", "grace", "+44 20 7946 0000"} {
		got, err := database.GetUserByIdentifier(ctx, db, identifier)
		require.NoError(t, err)
		require.NotNil(t, got, identifier)
		assert.Equal(t, u.ID, got.ID)
	}

	got, err := database.GetUserByIdentifier(ctx, db, "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetConflictingUser(t *testing.T) {
	ctx := context.Background()
	db := testinfra.OpenSQLite(t)
	u := &database.User{Firstname: "Grace", Lastname: "Hopper", Email: "grace@example.com", Username: strPtr("grace"), Phone: "555", Password: "x"}
	require.NoError(t, database.CreateUser(ctx, db, u))

	got, err := database.GetConflictingUser(ctx, db, "other@example.com", "", "555")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	got, err = database.GetConflictingUser(ctx, db, "other@example.com", "other", "556")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = database.GetConflictingUser(ctx, db, "", "", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserFieldTaken(t *testing.T) {
	ctx := context.Background()
	db := testinfra.OpenSQLite(t)
	require.NoError(t, database.CreateUser(ctx, db, &database.User{Firstname: "Al", Lastname: "One", Email: "a@example.com", Phone: "1", Password: "x"}))

	taken, err := database.UserFieldTaken(ctx, db, "email", "a@example.com")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = database.UserFieldTaken(ctx, db, "phone", "2")
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = database.UserFieldTaken(ctx, db, "password", "x")
	assert.Error(t, err)
}

func TestListFilesAfter_KeysetPagination(t *testing.T) {
	ctx := context.Background()
	db := testinfra.OpenSQLite(t)
	owner := &database.User{Firstname: "Al", Lastname: "One", Email: "a@example.com", Phone: "1", Password: "x"}
	other := &database.User{Firstname: "Bo", Lastname: "Two", Email: "b@example.com", Phone: "2", Password: "x"}
	require.NoError(t, database.CreateUser(ctx, db, owner))
	require.NoError(t, database.CreateUser(ctx, db, other))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, database.CreateFile(ctx, db, &database.File{
			Name: fmt.Sprintf("f%d.png", i), PublicID: fmt.Sprintf("p%d", i), URL: "u", Size: 1,
			Type: "image", ResourceType: "image", UserID: owner.ID, UploadedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, database.CreateFile(ctx, db, &database.File{
		Name: "theirs.png", PublicID: "x", URL: "u", Type: "image", ResourceType: "image", UserID: other.ID, UploadedAt: base,
	}))

	page, err := database.ListFilesAfter(ctx, db, owner.ID, nil, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"f4.png", "f3.png", "f2.png"}, []string{page[0].Name, page[1].Name, page[2].Name})

	rest, err := database.ListFilesAfter(ctx, db, owner.ID, &page[2], 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, "f1.png", rest[0].Name)
	assert.Equal(t, "f0.png", rest[1].Name)

	total, err := database.CountFiles(ctx, db, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestDeleteFileForUser(t *testing.T) {
	ctx := context.Background()
	db := testinfra.OpenSQLite(t)
	owner := &database.User{Firstname: "Al", Lastname: "One", Email: "a@example.com", Phone: "1", Password: "x"}
	require.NoError(t, database.CreateUser(ctx, db, owner))
	f := &database.File{Name: "a.pdf", PublicID: "p", URL: "u", Type: "document", ResourceType: "raw", UserID: owner.ID}
	require.NoError(t, database.CreateFile(ctx, db, f))

	found, err := database.DeleteFileForUser(ctx, db, "someone-else", f.ID)
	require.NoError(t, err)
	assert.False(t, found)

	found, err = database.DeleteFileForUser(ctx, db, owner.ID, f.ID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = database.DeleteFileForUser(ctx, db, owner.ID, f.ID)
	require.NoError(t, err)
	assert.False(t, found)
}
