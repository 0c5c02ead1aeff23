package internal

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"printdock.app/api/internal/apperr"
	"printdock.app/api/internal/middleware"
	"printdock.app/api/internal/recents"
	"printdock.app/api/internal/uploads"
)

// ownUserID returns the session user, rejecting a userId parameter naming someone else.
func ownUserID(c *gin.Context, requested string) (string, error) {
	userID := c.GetString(middleware.UserIDKey)
	if requested != "" && requested != userID {
		return "", &apperr.ForbiddenError{Message: "You can only access your own files"}
	}
	return userID, nil
}

func (h *Handler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		middleware.Abort(c, apperr.Validation("No files provided", map[string]string{"files": err.Error()}))
		return
	}
	userID, err := ownUserID(c, c.PostForm("userId"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	batch := uploads.Batch{ID: c.PostForm("batchId"), UserID: userID}
	for _, fh := range form.File["files"] {
		batch.Files = append(batch.Files, uploads.FileInput{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadSeekCloser, error) { return fh.Open() },
		})
	}

	res, err := h.Uploads.Run(c.Request.Context(), batch)
	var fileErr *uploads.FileError
	if errors.As(err, &fileErr) {
		middleware.Abort(c, apperr.Failed(fmt.Sprintf("Failed to upload %s", fileErr.Name), "upload batch", err))
		return
	}
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	data := UploadData{BatchID: res.BatchID, Files: []UploadedFile{}}
	for _, f := range res.Uploaded() {
		data.Files = append(data.Files, UploadedFile{
			ID:       f.ID,
			URL:      f.URL,
			PublicID: f.PublicID,
			Format:   f.Format,
			Bytes:    f.Size,
		})
	}
	c.JSON(http.StatusOK, UploadRes{Success: true, Data: data})
}

// UploadEvents upgrades to a websocket streaming the status of the user's uploads.
func (h *Handler) UploadEvents(c *gin.Context) {
	userID := c.GetString(middleware.UserIDKey)
	conn, err := h.Sockets.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response
		h.Logger.Warnf("[WS] upgrade failed for user %s: %s", userID, err)
		return
	}
	h.Sockets.HandleSocket(userID, conn)
}

func (h *Handler) RecentFiles(c *gin.Context) {
	userID, err := ownUserID(c, c.Query("userId"))
	if err != nil {
		middleware.Abort(c, err)
		return
	}

	page, err := h.Recents.List(c.Request.Context(), recents.Request{
		UserID:       userID,
		Cursor:       c.Query("cursor"),
		Limit:        recents.ParseLimit(c.Query("limit")),
		Source:       c.Query("source"),
		ResourceType: c.Query("resource_type"),
		Grouped:      c.Query("grouped") == "true",
	})
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) DeleteFile(c *gin.Context) {
	var req uploads.DeleteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Abort(c, apperr.Validation("Missing required file information for deletion", nil))
		return
	}
	userID := c.GetString(middleware.UserIDKey)

	out, err := h.Uploads.Delete(c.Request.Context(), userID, req)
	if err != nil {
		middleware.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageRes{Success: true, Message: out.Message()})
}
