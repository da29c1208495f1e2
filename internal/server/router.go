// Package server assembles the HTTP surface from the service packages.
package server

import (
	"time"

	"github.com/cinestream/cinestream/internal/auth"
	"github.com/cinestream/cinestream/internal/catalog"
	"github.com/cinestream/cinestream/internal/health"
	"github.com/cinestream/cinestream/internal/progress"
	"github.com/cinestream/cinestream/internal/ratelimit"
	"github.com/cinestream/cinestream/internal/stream"
	"github.com/cinestream/cinestream/internal/upload"
	"github.com/cinestream/cinestream/pkg/config"
	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/cinestream/cinestream/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the router needs. Media may be nil, in which
// case uploads skip thumbnails and duration probing.
type Deps struct {
	Config *config.Config
	DB     *database.DB
	Media  upload.MediaTool
}

// Server holds the router and the handlers that need shutdown hooks.
type Server struct {
	Router *gin.Engine
	Stream *stream.Handler
}

func New(deps Deps) *Server {
	cfg := deps.Config
	secret := cfg.Auth.JWTSecret

	users := auth.NewStore(deps.DB)
	movies := catalog.NewStore(deps.DB)
	watch := progress.NewStore(deps.DB, movies)
	pipeline := upload.NewPipeline(movies, deps.Media, upload.Options{
		VideoDir:       cfg.Media.VideoDir,
		ThumbnailDir:   cfg.Media.ThumbnailDir,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
	})

	authHandler := auth.NewHandler(users, secret, cfg.Auth.TokenTTL)
	catalogHandler := catalog.NewHandler(movies)
	progressHandler := progress.NewHandler(watch)
	streamHandler := stream.NewHandler(movies, watch)
	uploadHandler := upload.NewHandler(pipeline)
	healthHandler := health.NewHandler(deps.DB)

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Range"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Range", "Accept-Ranges"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))
	router.Use(securityHeaders())
	router.Use(logger.GinMiddleware(logger.WithContext("component", "http")))
	router.Use(metrics.Middleware())
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Health)
	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/readyz", healthHandler.Readyz)
	router.GET("/metrics", metrics.NewHandler().Metrics)
	router.Static("/media/thumbnails", cfg.Media.ThumbnailDir)

	requireAuth := auth.AuthMiddleware(users, secret)

	apiLimit := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	streamLimit := ratelimit.New(cfg.RateLimit.StreamRequests, cfg.RateLimit.StreamWindow)

	api := router.Group("/api", ratelimit.Middleware(apiLimit, "api"))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	protectedAuth := api.Group("/auth")
	protectedAuth.Use(requireAuth)
	{
		protectedAuth.GET("/profile", authHandler.Profile)
		protectedAuth.PUT("/profile", authHandler.UpdateProfile)
		protectedAuth.POST("/change-password", authHandler.ChangePassword)
	}

	movieGroup := api.Group("/movies")
	{
		movieGroup.GET("", catalogHandler.ListMovies)
		movieGroup.GET("/featured", catalogHandler.Featured)
		movieGroup.GET("/genre/:genre", catalogHandler.ByGenre)
		movieGroup.GET("/:id", auth.OptionalAuth(users, secret, false), catalogHandler.GetMovie)

		protected := movieGroup.Group("")
		protected.Use(requireAuth)
		{
			protected.POST("/:id/favorite", catalogHandler.AddFavorite)
			protected.DELETE("/:id/favorite", catalogHandler.RemoveFavorite)
			protected.POST("/:id/watchlist", catalogHandler.AddToWatchlist)
			protected.DELETE("/:id/watchlist", catalogHandler.RemoveWatchlist)
			protected.POST("/:id/review", catalogHandler.AddReview)
			protected.GET("/user/favorites", catalogHandler.ListFavorites)
			protected.GET("/user/watchlist", catalogHandler.ListWatchlist)
		}
	}

	// Video elements cannot set headers, so the token may ride in the query.
	// Playback issues a range request per chunk, so streams draw on their own
	// budget instead of the general API one.
	streamGroup := router.Group("/api/stream")
	streamGroup.Use(ratelimit.Middleware(streamLimit, "stream"), auth.OptionalAuth(users, secret, true))
	{
		streamGroup.GET("/:id", streamHandler.Stream)
		streamGroup.GET("/:id/info", streamHandler.Info)
		streamGroup.GET("/:id/recommended", streamHandler.Recommended)
	}

	progressGroup := api.Group("/progress")
	progressGroup.Use(requireAuth)
	{
		progressGroup.GET("/continue", progressHandler.ContinueWatching)
		progressGroup.GET("/history", progressHandler.History)
		progressGroup.PUT("/:id", progressHandler.UpdateProgress)
		progressGroup.GET("/:id", progressHandler.GetProgress)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(requireAuth, auth.AdminMiddleware())
	{
		adminGroup.POST("/movies", uploadHandler.UploadMovie)
		adminGroup.PUT("/movies/:id", uploadHandler.UpdateMovie)
		adminGroup.DELETE("/movies/:id", uploadHandler.DeleteMovie)
	}

	return &Server{Router: router, Stream: streamHandler}
}
