package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"sproutbook/internal/archive"
	"sproutbook/internal/backup"
	"sproutbook/internal/snapshot"
)

// errStatus maps backup and snapshot sentinel errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, backup.ErrArtifactNotFound):
		return http.StatusNotFound
	case errors.Is(err, backup.ErrInvalidArtifactName),
		errors.Is(err, backup.ErrInvalidSettings),
		errors.Is(err, backup.ErrStorageUnwritable),
		errors.Is(err, backup.ErrEncryptionNotConfigured),
		errors.Is(err, snapshot.ErrMissingManifest),
		errors.Is(err, snapshot.ErrMalformedManifest),
		errors.Is(err, snapshot.ErrUnsafeEntryName),
		errors.Is(err, archive.ErrInvalidFormat),
		errors.Is(err, archive.ErrCorrupt):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) fail(c *gin.Context, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		r.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (r *Router) runBackup(c *gin.Context) {
	entry, err := r.backups.RunBackup(c.Request.Context(), "manual")
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (r *Router) listArtifacts(c *gin.Context) {
	artifacts, err := r.backups.ListArtifacts()
	if err != nil {
		r.fail(c, err)
		return
	}
	next, armed := r.backups.NextRun()
	resp := gin.H{"artifacts": artifacts}
	if armed {
		resp["next_run"] = next
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) downloadArtifact(c *gin.Context) {
	name := c.Param("name")
	path, err := r.backups.ArtifactPath(name)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.FileAttachment(path, name)
}

func (r *Router) deleteArtifact(c *gin.Context) {
	if err := r.backups.DeleteArtifact(c.Param("name")); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) uploadArtifact(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		r.fail(c, err)
		return
	}
	defer src.Close()

	name, err := r.backups.SaveUploaded(src)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": name})
}

type restoreRequest struct {
	Name string `json:"name" binding:"required"`
}

func (r *Router) restoreBackup(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "artifact name required"})
		return
	}

	result, err := r.backups.Restore(req.Name)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"records": result.RecordCount,
		"media":   result.MediaCount,
	})
}

func (r *Router) exportBackup(c *gin.Context) {
	data, name, err := r.backups.Export(r.clock.Now())
	if err != nil {
		r.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/gzip", data)
}

func (r *Router) importBackup(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	src, err := file.Open()
	if err != nil {
		r.fail(c, err)
		return
	}
	defer src.Close()

	result, err := r.backups.Import(src)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"records": result.RecordCount,
		"media":   result.MediaCount,
	})
}

func (r *Router) backupLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, err := r.backups.Log(limit)
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (r *Router) getBackupSettings(c *gin.Context) {
	settings, err := r.backups.Settings()
	if err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (r *Router) putBackupSettings(c *gin.Context) {
	var settings backup.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings"})
		return
	}
	if err := r.backups.UpdateSettings(settings); err != nil {
		r.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
