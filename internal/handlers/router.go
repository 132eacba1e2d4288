package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/davidtorcivia/stifle-sub000/internal/auth"
	"github.com/davidtorcivia/stifle-sub000/internal/eventsync"
	"github.com/davidtorcivia/stifle-sub000/internal/middleware"
	"github.com/davidtorcivia/stifle-sub000/internal/scoring"
	"github.com/davidtorcivia/stifle-sub000/internal/store"
)

// RouterDeps is everything the HTTP surface needs, passed explicitly.
type RouterDeps struct {
	Events       store.EventStore
	Scores       store.ScoreStore
	Users        store.UserDirectory
	Reconciler   *eventsync.Reconciler
	Materializer *scoring.Materializer
	JWT          *auth.JWTService
	Logger       *zap.Logger
	Version      string
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	events := NewEventHandlers(deps.Reconciler, deps.Logger)
	scores := NewScoreHandlers(deps.Scores, deps.Events, deps.Users, deps.Materializer, deps.Logger)
	leaderboard := NewLeaderboardHandlers(deps.Scores, deps.Users, deps.Logger)
	authHandlers := NewAuthHandlers(deps.Users, deps.JWT, deps.Logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"version": deps.Version,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/version", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"version": deps.Version,
				"service": "stifle-go",
			})
		})

		api.POST("/auth/login", authHandlers.Login)

		authed := api.Group("")
		authed.Use(middleware.RequireAuth(deps.JWT))
		{
			authed.POST("/events/sync", events.SyncEvents)
			authed.GET("/events/current", events.GetCurrentStreak)
			authed.GET("/scores/weekly", scores.GetWeeklyScore)
			authed.GET("/leaderboard/weekly", leaderboard.GetWeeklyLeaderboard)

			admin := authed.Group("/admin")
			{
				admin.POST("/users/:id/recompute", scores.RecomputeUser)
				admin.POST("/retention/purge", scores.PurgeRetention)
			}
		}
	}

	return r
}
