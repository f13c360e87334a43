package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/kelurahan-portal/internal/middleware"
	"github.com/noah-isme/kelurahan-portal/internal/models"
	"github.com/noah-isme/kelurahan-portal/internal/service"
	"github.com/noah-isme/kelurahan-portal/pkg/ratelimit"
)

// Limit is one rate limit rule; a zero Limit disables it.
type Limit struct {
	Limit  int
	Window time.Duration
}

// Routes gathers everything the gateway API mounts.
type Routes struct {
	Prefix     string
	CookieName string

	Sessions *service.SessionService
	Limiter  ratelimit.Limiter
	Logger   *zap.Logger

	LoginLimit   Limit
	SubmitLimit  Limit
	ContactLimit Limit

	Auth       *AuthHandler
	Catalog    *CatalogHandler
	Submission *SubmissionHandler
	Tracking   *TrackingHandler
	Contact    *ContactHandler
	Admin      *AdminHandler
	Dashboard  *DashboardHandler
	Report     *ReportHandler
	Users      *UserHandler
}

// Register mounts the public, staff and admin route groups on r.
func (rt Routes) Register(r gin.IRouter) {
	limit := func(scope string, l Limit) gin.HandlerFunc {
		return middleware.RateLimit(rt.Limiter, scope, l.Limit, l.Window, rt.Logger)
	}
	audit := func(action string) gin.HandlerFunc {
		return middleware.Audit(rt.Logger, action)
	}

	api := r.Group(rt.Prefix)

	api.GET("/layanan", rt.Catalog.List)
	api.GET("/layanan/:id", rt.Catalog.Get)
	api.POST("/validate", rt.Submission.Validate)
	api.POST("/drafts", rt.Submission.CreateDraft)
	api.GET("/drafts/:id", rt.Submission.GetDraft)
	api.PUT("/drafts/:id/files/:slot", rt.Submission.StageFile)
	api.DELETE("/drafts/:id/files/:slot", rt.Submission.UnstageFile)
	api.POST("/permohonan", limit("submit", rt.SubmitLimit), rt.Submission.Submit)
	api.POST("/permohonan/:id/attachments/resume", limit("submit", rt.SubmitLimit), rt.Submission.ResumeAttachments)
	api.POST("/status/check", rt.Tracking.Check)
	api.POST("/kontak", limit("contact", rt.ContactLimit), rt.Contact.Send)
	api.GET("/berkas/download", rt.Admin.DownloadBerkas)

	auth := api.Group("/auth")
	auth.POST("/login", limit("login", rt.LoginLimit), rt.Auth.Login)
	auth.POST("/logout", rt.Auth.Logout)
	auth.GET("/me", rt.Auth.Me)

	staff := api.Group("/admin",
		middleware.RequireSession(rt.Sessions, rt.CookieName),
		middleware.RequireRoles(models.RoleAdmin, models.RolePetugas))
	staff.GET("/permohonan", rt.Admin.List)
	staff.GET("/permohonan/:id", rt.Admin.Detail)
	staff.PUT("/permohonan/:id/status", audit("permohonan.status"), rt.Admin.Transition)
	staff.POST("/permohonan/bulk-status", audit("permohonan.bulk_status"), rt.Admin.BulkStatus)
	staff.POST("/permohonan/bulk-delete", audit("permohonan.bulk_delete"), rt.Admin.BulkDelete)
	staff.GET("/permohonan/export/:format", rt.Admin.Export)
	staff.GET("/berkas/:id/link", rt.Admin.BerkasLink)
	staff.GET("/dashboard", rt.Dashboard.Stats)
	staff.GET("/kontak", rt.Contact.List)
	staff.GET("/kontak/:id", rt.Contact.Get)
	staff.PUT("/kontak/:id", audit("kontak.status"), rt.Contact.SetStatus)
	staff.DELETE("/kontak/:id", audit("kontak.delete"), rt.Contact.Delete)
	staff.POST("/kontak/:id/reply", audit("kontak.reply"), rt.Contact.Reply)
	staff.GET("/laporan/:type", rt.Report.Generate)

	admin := staff.Group("", middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/layanan", rt.Catalog.AdminList)
	admin.POST("/layanan", audit("layanan.create"), rt.Catalog.Create)
	admin.PUT("/layanan/:id", audit("layanan.update"), rt.Catalog.Update)
	admin.DELETE("/layanan/:id", audit("layanan.delete"), rt.Catalog.Delete)
	admin.GET("/users", rt.Users.List)
	admin.POST("/users", audit("user.create"), rt.Users.Create)
	admin.PUT("/users/:id", audit("user.update"), rt.Users.Update)
	admin.DELETE("/users/:id", audit("user.delete"), rt.Users.Delete)
}
