package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"leaves-cms/internal/background"
	"leaves-cms/internal/config"
	"leaves-cms/internal/handlers"
	"leaves-cms/internal/middleware"
	"leaves-cms/internal/models"
	"leaves-cms/internal/repository"
	"leaves-cms/internal/routes"
	"leaves-cms/internal/seed"
	"leaves-cms/internal/service"
	"leaves-cms/pkg/cache"
	"leaves-cms/pkg/logger"
)

type Options struct {
	TemplatesDir string
}

type Application struct {
	cfg     *config.Config
	options Options

	db        *gorm.DB
	cache     *cache.Cache
	scheduler *background.Scheduler
	registry  *routes.Registry

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	router *gin.Engine
	server *http.Server
}

type repositoryContainer struct {
	User       repository.UserRepository
	Site       repository.SiteRepository
	Leaf       repository.LeafRepository
	Page       repository.PageRepository
	Post       repository.PostRepository
	Tag        repository.TagRepository
	Comment    repository.CommentRepository
	Attachment repository.AttachmentRepository
	Redirect   repository.RedirectRepository
}

type serviceContainer struct {
	Auth       *service.AuthService
	Site       *service.SiteService
	Leaf       *service.LeafService
	Page       *service.PageService
	Post       *service.PostService
	Comment    *service.CommentService
	Redirect   *service.RedirectService
	Attachment *service.AttachmentService
	Email      *service.EmailService
	Homepage   *service.HomepageService
}

type handlerContainer struct {
	Auth       *handlers.AuthHandler
	Site       *handlers.SiteHandler
	Stream     *handlers.StreamHandler
	Page       *handlers.PageHandler
	Post       *handlers.PostHandler
	Leaf       *handlers.LeafHandler
	Comment    *handlers.CommentHandler
	Attachment *handlers.AttachmentHandler
	Feed       *handlers.FeedHandler
	Homepage   *handlers.HomepageHandler
	Fallback   *handlers.FallbackHandler
}

func New(cfg *config.Config, opts Options) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{
		cfg:      cfg,
		options:  opts,
		registry: routes.NewRegistry(),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.runMigrations(); err != nil {
		return nil, err
	}
	if err := app.createIndexes(); err != nil {
		return nil, err
	}
	if err := app.initCache(); err != nil {
		return nil, err
	}

	app.scheduler = background.NewScheduler(background.Config{})
	app.scheduler.Start(context.Background())

	app.initRepositories()
	app.initServices()

	seed.EnsureDefaultSite(app.repositories.Site, cfg.DefaultSiteDomain)
	app.services.Site.Invalidate()

	app.initHandlers()
	if err := app.initRouter(); err != nil {
		return nil, err
	}

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})
	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Background scheduler did not stop cleanly", nil)
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	logger.Info("Running database migrations", nil)

	if err := a.db.AutoMigrate(
		&models.User{},
		&models.Site{},
		&models.Preferences{},
		&models.Tag{},
		&models.Leaf{},
		&models.Page{},
		&models.Post{},
		&models.LeafMeta{},
		&models.Comment{},
		&models.Attachment{},
		&models.Redirect{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) createIndexes() error {
	logger.Info("Creating database indexes", nil)

	statements := []string{
		// Custom URLs are unique per language, empty values excluded.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_leaves_language_custom_url ON leaves(language, custom_url) WHERE custom_url <> ''",
		"CREATE INDEX IF NOT EXISTS idx_leaves_published ON leaves(status, date_published DESC) WHERE status = 'published'",
		"CREATE INDEX IF NOT EXISTS idx_leaves_stream ON leaves(show_in_stream) WHERE show_in_stream = true",
		"CREATE INDEX IF NOT EXISTS idx_comments_leaf_status ON comments(leaf_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_attachments_leaf_rank ON attachments(leaf_id, rank ASC)",
	}

	for _, stmt := range statements {
		if err := a.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func (a *Application) initCache() error {
	addr := ""
	if a.cfg.EnableRedis {
		addr = a.cfg.RedisURL
	}
	c, err := cache.NewCache(addr, a.cfg.EnableRedis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.cache = c
	return nil
}

func (a *Application) initRepositories() {
	a.repositories = repositoryContainer{
		User:       repository.NewUserRepository(a.db),
		Site:       repository.NewSiteRepository(a.db),
		Leaf:       repository.NewLeafRepository(a.db),
		Page:       repository.NewPageRepository(a.db),
		Post:       repository.NewPostRepository(a.db),
		Tag:        repository.NewTagRepository(a.db),
		Comment:    repository.NewCommentRepository(a.db),
		Attachment: repository.NewAttachmentRepository(a.db),
		Redirect:   repository.NewRedirectRepository(a.db),
	}
}

func (a *Application) initServices() {
	email := service.NewEmailService(a.cfg)

	a.services = serviceContainer{
		Auth:  service.NewAuthService(a.repositories.User, a.cfg.JWTSecret),
		Site:  service.NewSiteService(a.repositories.Site, a.cfg.DefaultSiteDomain),
		Leaf:  service.NewLeafService(a.repositories.Leaf, a.cache),
		Page:  service.NewPageService(a.repositories.Page, a.repositories.Leaf, a.repositories.Site, a.repositories.Tag, a.cache, a.cfg.DefaultLeafStatus),
		Post:  service.NewPostService(a.repositories.Post, a.repositories.Leaf, a.repositories.Site, a.repositories.Tag, a.cache, a.cfg.DefaultLeafStatus),
		Email: email,
		Redirect: service.NewRedirectService(
			a.repositories.Redirect, a.repositories.Site),
		Attachment: service.NewAttachmentService(
			a.repositories.Attachment, a.repositories.Leaf, a.cfg.AttachmentDir),
		Homepage: service.NewHomepageService(),
	}
	a.services.Comment = service.NewCommentService(
		a.repositories.Comment,
		a.repositories.Leaf,
		a.services.Site,
		email,
		a.scheduler,
		a.leafURL,
		a.cfg.DefaultCommentStatus,
		a.cfg.IsDevelopment(),
	)
}

// leafURL builds the path a notification should point readers at. The custom
// URL wins over the canonical route, matching the feed links.
func (a *Application) leafURL(leaf *models.Leaf) string {
	if leaf.CustomURL != "" {
		return leaf.CustomURL
	}
	content, err := leaf.Resolved()
	if err != nil {
		return ""
	}
	path, err := a.registry.Reverse(content.RouteName(), content.RouteParams())
	if err != nil {
		return ""
	}
	return path
}

func (a *Application) initHandlers() {
	renderer, err := handlers.NewRenderer(a.options.TemplatesDir)
	if err != nil {
		logger.Warn("Templates unavailable, serving JSON only", map[string]interface{}{
			"dir": a.options.TemplatesDir, "error": err.Error()})
		renderer, _ = handlers.NewRenderer("")
	}

	a.handlers = handlerContainer{
		Auth:       handlers.NewAuthHandler(a.services.Auth),
		Site:       handlers.NewSiteHandler(a.services.Site, a.services.Redirect, a.services.Homepage),
		Stream:     handlers.NewStreamHandler(a.services.Leaf),
		Page:       handlers.NewPageHandler(a.services.Page, renderer),
		Post:       handlers.NewPostHandler(a.services.Post, renderer),
		Leaf:       handlers.NewLeafHandler(a.services.Leaf),
		Comment:    handlers.NewCommentHandler(a.services.Comment),
		Attachment: handlers.NewAttachmentHandler(a.services.Attachment),
		Feed:       handlers.NewFeedHandler(a.services.Leaf, a.registry),
		Homepage:   handlers.NewHomepageHandler(a.services.Homepage, a.registry),
	}
	a.handlers.Fallback = handlers.NewFallbackHandler(
		a.services.Leaf,
		a.services.Redirect,
		a.registry,
		a.cfg.AppendSlash,
		a.cfg.IsDevelopment(),
	)
}

// registerRoutes names every public content route. The names are load
// bearing: leaves reverse them for canonical URLs and the fallback chain
// re-dispatches custom URLs through them.
func (a *Application) registerRoutes() error {
	registrations := []error{
		a.registry.GET("recent", "/recent", a.handlers.Stream.Recent),
		a.registry.GET("tag-stream", "/tag/:slug", a.handlers.Stream.ByTag),
		a.registry.GET("author-stream", "/author/:username", a.handlers.Stream.ByAuthor),
		a.registry.GET("blog-post", "/blog/:year/:month/:slug", a.handlers.Post.View),
		a.registry.GET("page-list", "/pages", a.handlers.Page.Navigation),
		a.registry.GET("page-view", "/pages/:slug", a.handlers.Page.View),
		a.registry.GET("leaf-comments", "/leaves/:id/comments", a.handlers.Comment.ListForLeaf),
		a.registry.GET("leaf-translations", "/leaves/:id/translations", a.handlers.Leaf.Translations),
		a.registry.GET("leaf-attachments", "/leaves/:id/attachments", a.handlers.Attachment.ListForLeaf),
		a.registry.GET("attachment-download", "/attachments/:id/download", a.handlers.Attachment.Download),
		a.registry.GET("sitemap", "/sitemap.xml", a.handlers.Feed.Sitemap),
		a.registry.GET("feed", "/feed.xml", a.handlers.Feed.RSS),
	}
	for _, err := range registrations {
		if err != nil {
			return err
		}
	}

	choices := []error{
		a.services.Homepage.Register(service.HomepageChoice{
			Key: "recent", Label: "Recent leaves", RouteName: "recent"}),
		a.services.Homepage.Register(service.HomepageChoice{
			Key: "pages", Label: "Page navigation", RouteName: "page-list"}),
	}
	for _, err := range choices {
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) initRouter() error {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.RateLimitMiddleware(
		middleware.NewRateLimiter(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow)))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Everything public runs inside the site scope.
	router.Use(middleware.SiteMiddleware(a.services.Site))
	router.Use(middleware.OptionalAuthMiddleware(a.cfg.JWTSecret, a.repositories.User))
	router.Use(middleware.LanguageMiddleware())

	if err := a.registerRoutes(); err != nil {
		return err
	}
	a.registry.Mount(router)

	router.GET("/", a.handlers.Homepage.Serve)
	router.GET("/site", a.handlers.Site.Current)
	router.POST("/leaves/:id/comments", a.handlers.Comment.Create)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		{
			public.POST("/register", a.handlers.Auth.Register)
			public.POST("/login", a.handlers.Auth.Login)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(a.cfg.JWTSecret, a.repositories.User))
		{
			protected.GET("/me", a.handlers.Auth.Me)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(a.cfg.JWTSecret, a.repositories.User))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("/sites", a.handlers.Site.List)
			admin.POST("/sites", a.handlers.Site.Create)
			admin.DELETE("/sites/:id", a.handlers.Site.Delete)
			admin.PUT("/sites/:id/preferences", a.handlers.Site.UpdatePreferences)
			admin.GET("/sites/:id/redirects", a.handlers.Site.ListRedirects)
			admin.POST("/redirects", a.handlers.Site.CreateRedirect)
			admin.DELETE("/redirects/:id", a.handlers.Site.DeleteRedirect)

			admin.GET("/pages", a.handlers.Page.All)
			admin.GET("/pages/:id", a.handlers.Page.GetByID)
			admin.POST("/pages", a.handlers.Page.Create)
			admin.PUT("/pages/:id", a.handlers.Page.Update)

			admin.GET("/posts", a.handlers.Post.All)
			admin.GET("/posts/:id", a.handlers.Post.GetByID)
			admin.POST("/posts", a.handlers.Post.Create)
			admin.PUT("/posts/:id", a.handlers.Post.Update)

			admin.DELETE("/leaves/:id", a.handlers.Leaf.Delete)
			admin.POST("/leaves/:id/attachments", a.handlers.Attachment.Upload)
			admin.DELETE("/attachments/:id", a.handlers.Attachment.Delete)

			admin.GET("/comments", a.handlers.Comment.ListByStatus)
			admin.PUT("/comments/:id/status", a.handlers.Comment.Moderate)
			admin.DELETE("/comments/:id", a.handlers.Comment.Delete)
		}
	}

	router.NoRoute(a.handlers.Fallback.Handle)

	a.router = router
	return nil
}
