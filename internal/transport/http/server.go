package http

import (
	"github.com/gin-gonic/gin"

	"kbretrieval/internal/bootstrap"
	"kbretrieval/internal/transport/http/handler"
	"kbretrieval/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	authHandler := handler.NewAuthHandler(app.AuthService)
	documentHandler := handler.NewDocumentHandler(
		app.IndexService,
		app.Extractor,
		app.ReindexPublisher,
		app.Config.Index.MaxUploadBytes,
	)
	queryHandler := handler.NewQueryHandler(app.RetrievalService)
	categoryHandler := handler.NewCategoryHandler(app.CategoryService)

	v1 := router.Group("/api/v1")
	v1.POST("/auth/token", authHandler.Token)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	authed.POST("/documents", documentHandler.Upload)
	authed.POST("/documents/path", documentHandler.UploadFromPath)
	authed.GET("/documents", documentHandler.List)
	authed.GET("/documents/:id", documentHandler.Get)
	authed.DELETE("/documents/:id", documentHandler.Delete)
	authed.POST("/documents/:id/reindex", documentHandler.Reindex)
	authed.POST("/query", queryHandler.Retrieve)
	authed.POST("/categories", categoryHandler.Add)
	authed.GET("/categories", categoryHandler.List)

	return router
}
