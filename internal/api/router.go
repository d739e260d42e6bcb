// Package api provides the HTTP API for the sproutbook server.
package api

import (
	"github.com/gin-gonic/gin"

	"sproutbook/internal/auth"
	"sproutbook/internal/backup"
	"sproutbook/internal/snapshot"
)

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine

	state     snapshot.StateStore
	creds     auth.Store
	sessions  *auth.SessionManager
	backups   *backup.Service
	mediaRoot string
	clock     backup.Clock
	ids       backup.IDGenerator
	logger    backup.Logger
}

// RouterOptions collects the collaborators for NewRouter.
type RouterOptions struct {
	State     snapshot.StateStore
	Creds     auth.Store
	Sessions  *auth.SessionManager
	Backups   *backup.Service
	MediaRoot string
	Clock     backup.Clock
	IDs       backup.IDGenerator
	Logger    backup.Logger
}

// NewRouter creates the router with all routes registered.
func NewRouter(opts RouterOptions) *Router {
	if opts.Clock == nil {
		opts.Clock = backup.RealClock{}
	}
	if opts.IDs == nil {
		opts.IDs = backup.UUIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = backup.NewNopLogger()
	}

	r := &Router{
		Engine:    gin.New(),
		state:     opts.State,
		creds:     opts.Creds,
		sessions:  opts.Sessions,
		backups:   opts.Backups,
		mediaRoot: opts.MediaRoot,
		clock:     opts.Clock,
		ids:       opts.IDs,
		logger:    opts.Logger,
	}

	r.Engine.Use(gin.Recovery())
	r.Engine.Use(RequestLogger(opts.Logger))

	r.Engine.GET("/healthz", r.health)
	r.Engine.POST("/auth/login", r.login)
	r.Engine.POST("/auth/logout", r.logout)

	authed := r.Engine.Group("/api")
	authed.Use(RequireSession(opts.Sessions))

	authed.GET("/profile", r.getProfile)
	authed.PUT("/profile", r.putProfile)

	authed.GET("/records", r.listRecords)
	authed.POST("/records", r.createRecord)
	authed.DELETE("/records/:id", r.deleteRecord)

	authed.POST("/media", r.uploadMedia)
	authed.GET("/media/*path", r.serveMedia)

	authed.POST("/backup/run", r.runBackup)
	authed.GET("/backup/artifacts", r.listArtifacts)
	authed.GET("/backup/artifacts/:name", r.downloadArtifact)
	authed.DELETE("/backup/artifacts/:name", r.deleteArtifact)
	authed.POST("/backup/artifacts", r.uploadArtifact)
	authed.POST("/backup/restore", r.restoreBackup)
	authed.GET("/backup/export", r.exportBackup)
	authed.POST("/backup/import", r.importBackup)
	authed.GET("/backup/log", r.backupLog)
	authed.GET("/backup/settings", r.getBackupSettings)
	authed.PUT("/backup/settings", r.putBackupSettings)

	return r
}

func (r *Router) health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
