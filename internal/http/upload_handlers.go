package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"storefront-admin/internal/storage"
)

const imageCacheControl = "public, max-age=31536000, immutable"

type ImageResponse struct {
	Key          string  `json:"key"`
	URL          string  `json:"url"`
	Size         int64   `json:"size"`
	ContentType  string  `json:"contentType,omitempty"`
	LastModified *string `json:"lastModified,omitempty"`
}

func (h *Handler) uploadImage(c *gin.Context) {
	if h.images == nil {
		h.writeError(c, storage.ErrNotConfigured)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	header, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "image too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "image file is required"})
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "image too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "cannot read image"})
		return
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "cannot read image"})
		return
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"message": "only image uploads are accepted"})
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "cannot read image"})
		return
	}

	key := storage.NewImageKey(h.images.KeyPrefix(), header.Filename, time.Now())
	url, err := h.images.PutObject(c.Request.Context(), key, file, storage.PutOptions{
		ContentType:  mtype.String(),
		CacheControl: imageCacheControl,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.log.WithField("key", key).Info("image uploaded")
	c.JSON(http.StatusCreated, ImageResponse{
		Key:         key,
		URL:         url,
		Size:        header.Size,
		ContentType: mtype.String(),
	})
}

func (h *Handler) listImages(c *gin.Context) {
	if h.images == nil {
		h.writeError(c, storage.ErrNotConfigured)
		return
	}

	objects, err := h.images.ListObjects(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make([]ImageResponse, len(objects))
	for i := range objects {
		resp[i] = h.objectToResponse(objects[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) objectToResponse(obj storage.ObjectInfo) ImageResponse {
	resp := ImageResponse{
		Key:  obj.Key,
		URL:  h.images.ObjectURL(obj.Key),
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
