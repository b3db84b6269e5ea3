package routes

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/verselabs/verse/config"
	"github.com/verselabs/verse/controllers"
	"github.com/verselabs/verse/middleware"
	"github.com/verselabs/verse/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	if utils.Logger != nil {
		r.Use(middleware.AccessLog(utils.Logger))
		r.Use(middleware.Recovery(utils.Logger))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
		// Credentials must be allowed for the cross-site session cookie.
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.POST("/logout", authController.Logout)

	api.GET("/posts", postController.ListPosts)
	api.POST("/posts", middleware.AuthRequired(), postController.CreatePost)

	api.GET("/stats/views", statsController.RecordView)

	// Unmatched API paths are a JSON 404; anything else falls through to the
	// application shell so client-side routing keeps working.
	staticDir := cfg.StaticDir
	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, "route not found")
			return
		}
		if f := filepath.Join(staticDir, filepath.Clean("/"+path)); fileExists(f) {
			ctx.File(f)
			return
		}
		ctx.File(filepath.Join(staticDir, "index.html"))
	})

	return r
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
