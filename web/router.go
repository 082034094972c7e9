package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/auth"
	"github.com/maeven-tapa/eals/web/handlers"
	"github.com/maeven-tapa/eals/web/middlewares"
)

var (
	admin    = string(auth.RoleAdmin)
	hr       = string(auth.RoleHR)
	employee = string(auth.RoleEmployee)
)

// NewRouter builds the loopback HTTP adapter over a.
func NewRouter(a *app.App) *gin.Engine {
	if !a.Config.Web.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	public := r.Group("/api")
	public.Use(middlewares.RequireJSON())
	{
		public.GET("/setup/welcome", handlers.Welcome(a))

		public.POST("/auth/login", handlers.Login(a))
		public.POST("/auth/change-password", handlers.ChangePassword(a))
		public.POST("/auth/recover", handlers.RecoverAdmin(a))

		public.POST("/reset", handlers.BeginReset(a))
		public.POST("/reset/:flow/identity", handlers.ResetIdentity(a))
		public.POST("/reset/:flow/code", handlers.ResetCode(a))
		public.POST("/reset/:flow/password", handlers.ResetPassword(a))
		public.DELETE("/reset/:flow", handlers.DiscardReset(a))
	}

	protected := r.Group("/api")
	protected.Use(middlewares.Authentication(a.Tokens), middlewares.RequireJSON(gin.MIMEMultipartPOSTForm))
	{
		protected.POST("/auth/logout", handlers.Logout(a))
		protected.GET("/attendance/logs", handlers.AttendanceLogs(a))
		protected.GET("/employees/:id", handlers.GetEmployee(a))
		protected.GET("/employees/:id/picture", handlers.ProfilePicture(a))

		self := protected.Group("", middlewares.RequireRole(employee, hr))
		self.GET("/attendance/pending", handlers.PendingAttendance(a))
		self.POST("/attendance/confirm", handlers.ConfirmAttendance(a))
		self.DELETE("/attendance/pending", handlers.CancelAttendance(a))
		self.POST("/feedback", handlers.SubmitFeedback(a))

		staff := protected.Group("", middlewares.RequireRole(admin, hr))
		staff.GET("/dashboard", handlers.Dashboard(a))
		staff.GET("/employees", handlers.ListEmployees(a))
		staff.GET("/feedback", handlers.ListFeedback(a))

		admins := protected.Group("", middlewares.RequireRole(admin))
		admins.GET("/employees/next-id", handlers.NextEmployeeID(a))
		admins.POST("/employees", handlers.CreateEmployee(a))
		admins.PUT("/employees/:id", handlers.UpdateEmployee(a))
		admins.PUT("/employees/:id/status", handlers.SetEmployeeStatus(a))
		admins.DELETE("/employees/:id", handlers.DeleteEmployee(a))
		admins.POST("/employees/:id/picture", handlers.UploadProfilePicture(a))

		admins.GET("/backup/settings", handlers.BackupSettings(a))
		admins.PUT("/backup/settings", handlers.SaveBackupSettings(a))
		admins.GET("/backup/snapshots", handlers.ListSnapshots(a))
		admins.POST("/backup/snapshots", handlers.CreateSnapshot(a))
		admins.POST("/backup/restore", handlers.RestoreSnapshot(a))

		admins.GET("/journal", handlers.JournalDays(a))
		admins.GET("/journal/:day", handlers.JournalDay(a))
	}

	return r
}

// CheckLoopback rejects listen addresses that are reachable from other hosts.
func CheckLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("listen address %q is not a loopback address", addr)
	}
	return nil
}

// Serve runs the adapter on a.Config.Web.Addr until ctx is done.
func Serve(ctx context.Context, a *app.App) error {
	addr := a.Config.Web.Addr
	if err := CheckLoopback(addr); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
