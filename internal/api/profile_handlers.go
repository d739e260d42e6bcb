package api

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"sproutbook/internal/model"
)

func (r *Router) getProfile(c *gin.Context) {
	p, err := r.state.Profile()
	if err != nil {
		r.logger.Error("reading profile failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) putProfile(c *gin.Context) {
	var p model.BabyProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile"})
		return
	}
	p.UpdatedAt = r.clock.Now().UTC()
	if err := r.state.ReplaceProfile(&p); err != nil {
		r.logger.Error("saving profile failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (r *Router) listRecords(c *gin.Context) {
	records, err := r.state.GrowthRecords()
	if err != nil {
		r.logger.Error("listing records failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (r *Router) createRecord(c *gin.Context) {
	var rec model.GrowthRecord
	if err := c.ShouldBindJSON(&rec); err != nil || rec.Date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record"})
		return
	}
	rec.ID = r.ids.New()
	rec.CreatedAt = r.clock.Now().UTC()

	// The store surface is read-all/replace-all; append goes through it.
	records, err := r.state.GrowthRecords()
	if err != nil {
		r.logger.Error("listing records failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	records = append(records, rec)
	if err := r.state.ReplaceGrowthRecords(records); err != nil {
		r.logger.Error("saving record failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (r *Router) deleteRecord(c *gin.Context) {
	id := c.Param("id")
	records, err := r.state.GrowthRecords()
	if err != nil {
		r.logger.Error("listing records failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	kept := records[:0]
	found := false
	for _, rec := range records {
		if rec.ID == id {
			found = true
			continue
		}
		kept = append(kept, rec)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err := r.state.ReplaceGrowthRecords(kept); err != nil {
		r.logger.Error("saving records failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) uploadMedia(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	kind := c.PostForm("kind")
	if kind != "photo" && kind != "video" {
		kind = "photo"
	}

	now := r.clock.Now().UTC()
	base := filepath.Base(file.Filename)
	if base == "." || base == "/" || base == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	rel := path.Join(now.Format("2006/01"), fmt.Sprintf("%s-%s", r.ids.New()[:8], base))

	dst := filepath.Join(r.mediaRoot, filepath.FromSlash(rel))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		r.logger.Error("saving media failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	entry := model.MediaFile{
		ID:         r.ids.New(),
		Path:       rel,
		Kind:       kind,
		UploadedAt: now,
	}
	files, err := r.state.MediaFiles()
	if err == nil {
		err = r.state.ReplaceMediaFiles(append(files, entry))
	}
	if err != nil {
		r.logger.Error("saving media metadata failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (r *Router) serveMedia(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	cleaned := path.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		return
	}

	full := filepath.Join(r.mediaRoot, filepath.FromSlash(cleaned))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	c.File(full)
}
