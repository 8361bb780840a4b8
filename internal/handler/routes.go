package handler

import "github.com/gin-gonic/gin"

// KioskHandlers are the handlers bound to a kiosk session.
type KioskHandlers struct {
	Roster  *RosterHandler
	Exit    *ExitHandler
	History *HistoryHandler
	Auth    *AuthHandler
	Search  *SearchHandler
}

// RegisterKioskRoutes mounts the staff-facing pages and actions. r must already carry the
// kiosk session middleware.
func RegisterKioskRoutes(r gin.IRoutes, h KioskHandlers) {
	r.GET("/", h.Roster.Index)
	r.POST("/roster/reload", h.Roster.Reload)
	r.POST("/roster/upload", h.Roster.Upload)
	r.POST("/roster/upload/confirm", h.Roster.ConfirmUpload)
	r.POST("/roster/upload/cancel", h.Roster.CancelUpload)
	r.GET("/students/:id/badge", h.Roster.Badge)

	r.POST("/exit/form", h.Exit.Update)
	r.POST("/exit/submit", h.Exit.Submit)
	r.POST("/exit/close", h.Exit.Close)
	r.GET("/exit/receipt.pdf", h.Exit.Receipt)
	r.GET("/exit/:studentId", h.Exit.Open)
	r.POST("/exit/:studentId", h.Exit.Open)

	r.GET("/history", h.History.Page)
	r.POST("/history/filter", h.History.Filter)
	r.POST("/history/clear", h.History.Clear)
	r.POST("/history/delete", h.History.RequestDelete)
	r.POST("/history/delete/confirm", h.History.ConfirmDelete)
	r.POST("/history/delete/cancel", h.History.CancelDelete)
	r.POST("/history/close", h.History.Close)
	r.GET("/history/export.csv", h.History.ExportCSV)
	r.GET("/history/export.pdf", h.History.ExportPDF)
	r.GET("/exports/:token", h.History.Download)
	r.GET("/pdfs/:file", h.History.Receipt)

	r.GET("/login", h.Auth.LoginPage)
	r.POST("/login", h.Auth.Login)
	r.POST("/logout", h.Auth.Logout)

	if h.Search != nil {
		r.GET("/ws/search", h.Search.Live)
	}
}
