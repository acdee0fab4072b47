// api/routes/router.go
package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "seatchart/docs"
	"seatchart/internal/chart"
	"seatchart/internal/holds"
	"seatchart/internal/layout"
	"seatchart/internal/pricing"
	"seatchart/internal/realtime"
	"seatchart/internal/render"
	"seatchart/internal/shared/config"
	"seatchart/internal/shared/database"
	"seatchart/internal/shared/middleware"
	"seatchart/internal/viewport"
	"seatchart/internal/viewstore"
	"seatchart/pkg/cache"
	"seatchart/pkg/logger"
)

const serviceName = "seatchart"

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher realtime.Publisher

	cache   cache.Service
	loader  *layout.Loader
	locker  holds.Locker
	manager *chart.Manager
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher realtime.Publisher) *Router {
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
	}
}

// Manager is nil until SetupRoutes has run.
func (r *Router) Manager() *chart.Manager {
	return r.manager
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.buildServices()

	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupLayoutRoutes(api)
		r.setupHoldRoutes(api)
		r.setupChartRoutes(api)
	}
}

func (r *Router) buildServices() {
	appLogger := logger.GetDefault()

	if r.db.Redis != nil {
		r.cache = cache.NewService(r.db.Redis)
	}

	var source layout.Source
	if r.config.LayoutAPI.Source == "http" {
		source = layout.NewClient(r.config.LayoutAPI.URL, r.config.LayoutAPI.Timeout)
	} else {
		source = layout.NewRepository(r.db.GetPostgreSQL())
	}
	r.loader = layout.NewLoader(source, r.cache, r.config.Redis.LayoutTTL)

	var store viewport.Store
	if r.cache != nil {
		store = viewstore.New(r.cache, r.config.Redis.ViewStateTTL)
		locker := holds.NewRedisLocker(r.db.Redis, r.publisher, r.config.Redis.SeatHoldTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := locker.PreloadScripts(ctx); err != nil {
			// Scripts load lazily on first use.
			appLogger.Warn("Failed to preload hold scripts", "error", err)
		}
		cancel()
		r.locker = locker
	} else {
		appLogger.Warn("Redis unavailable: seat holds and saved views are disabled")
	}

	cc := r.config.Chart
	opts := chart.DefaultOptions()
	opts.MaxSeats = cc.MaxSeats
	opts.HoldSeconds = cc.HoldSeconds
	opts.PersistDebounce = cc.PersistDebounce
	opts.TapZoomThreshold = cc.TapZoomThreshold
	opts.TapZoomTarget = cc.TapZoomTarget
	opts.IdleTTL = cc.SessionIdleTTL
	opts.Fee = pricing.Fee{Type: pricing.ParseFeeType(cc.ConvenienceFeeType), Magnitude: cc.ConvenienceFeeValue}
	if cc.DragThreshold > 0 {
		opts.Pointer.DragThreshold = cc.DragThreshold
	}
	if cc.MinScale > 0 {
		opts.Pointer.MinScale = cc.MinScale
	}
	if cc.MaxScale > 0 {
		opts.Pointer.MaxScale = cc.MaxScale
	}

	deps := chart.Deps{
		Locker:    r.locker,
		Store:     store,
		Publisher: r.publisher,
		Sprites:   render.NewSpriteCache(r.config.Render.CacheSize, r.config.Render.CacheTTL),
	}
	r.manager = chart.NewManager(r.loader, deps, opts)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   serviceName,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "operational",
			"api_version":     r.config.APIVersion,
			"chart_sessions":  r.manager.Len(),
			"status_feed":     r.config.StatusTransport,
			"layout_source":   r.config.LayoutAPI.Source,
			"holds_available": r.locker != nil,
			"timestamp":       time.Now(),
		})
	})
}

func (r *Router) setupLayoutRoutes(rg *gin.RouterGroup) {
	controller := layout.NewController(r.loader)
	layout.SetupLayoutRoutes(rg, controller, middleware.JWTAuthWithConfig(r.config), middleware.RequireAdmin())
}

func (r *Router) setupHoldRoutes(rg *gin.RouterGroup) {
	if r.locker == nil {
		return
	}
	controller := holds.NewController(r.locker)
	holds.SetupHoldRoutes(rg, controller, middleware.JWTAuthWithConfig(r.config))
}

// Buyers may browse a chart anonymously; checkout attributes the hold to the
// signed-in user when there is one.
func (r *Router) setupChartRoutes(rg *gin.RouterGroup) {
	controller := chart.NewController(r.manager)
	chart.SetupChartRoutes(rg, controller,
		[]gin.HandlerFunc{middleware.OptionalAuthWithConfig(r.config)},
		[]gin.HandlerFunc{middleware.JWTAuthWithConfig(r.config), middleware.RequireAdmin()},
	)
}
