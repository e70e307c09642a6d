package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vireolabs/vireo/internal/config"
	"github.com/vireolabs/vireo/internal/narration"
	"github.com/vireolabs/vireo/internal/publish"
	"github.com/vireolabs/vireo/internal/safety"
	"github.com/vireolabs/vireo/internal/script"
	"github.com/vireolabs/vireo/internal/service"
	"github.com/vireolabs/vireo/internal/video"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Jobs      service.JobStore
	Projects  service.ProjectStore
	Pipeline  *service.Pipeline
	Scheduler *service.Scheduler
	Auth      *service.AuthService
	Narrator  *narration.Strategy
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	jobs := service.NewJobStore(db)
	projects := service.NewProjectStore(db)
	monitoring := service.NewMonitoringService(db, logger)

	safetyEngine, err := safety.NewEngine(cfg.Safety, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize safety engine: %w", err)
	}

	// Narration backends: edge is free and the default primary, elevenlabs
	// is paid and serves as fallback unless configured as primary
	edge := narration.NewEdgeProvider(cfg.Narration.OutputDir, logger)
	elevenlabs := narration.NewElevenLabsProvider(cfg.Narration.ElevenLabsAPIKey, cfg.Narration.OutputDir, logger)
	var narrator *narration.Strategy
	if cfg.Narration.Primary == "elevenlabs" {
		narrator = narration.NewStrategy(elevenlabs, edge, logger)
	} else {
		narrator = narration.NewStrategy(edge, elevenlabs, logger)
	}

	scripts := script.NewOpenAIGenerator(cfg.Script.APIKey, cfg.Script.BaseURL, cfg.Script.Model, logger)
	renderer := video.NewShotstackRenderer(cfg.Render.ShotstackAPIKey, logger)
	uploader := publish.NewYouTubeUploader(cfg.YouTube.ClientID, cfg.YouTube.ClientSecret, cfg.YouTube.CategoryID, logger)

	pipeline := service.NewPipeline(jobs, projects, scripts, narrator, renderer, uploader,
		safetyEngine, monitoring, logger)
	scheduler := service.NewScheduler(&cfg.Scheduler, logger, jobs, pipeline)
	auth := service.NewAuthService(logger, cfg.Auth.TOTPSecret)

	// Create router
	router := gin.New()

	srv := &Server{
		Config:    cfg,
		DB:        db,
		Router:    router,
		Logger:    logger,
		Jobs:      jobs,
		Projects:  projects,
		Pipeline:  pipeline,
		Scheduler: scheduler,
		Auth:      auth,
		Narrator:  narrator,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Auth-Token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", s.handleHealth)

	// API routes
	api := s.Router.Group("/api/v1")
	{
		jobs := api.Group("/jobs")
		{
			jobs.POST("", s.Auth.Middleware(), s.handleSubmitJob)
			jobs.GET("/:id", s.handleGetJob)
		}

		projects := api.Group("/projects")
		{
			projects.GET("/:id/jobs", s.handleListProjectJobs)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	if err := s.Narrator.HealthCheck(ctx); err != nil {
		status["narration"] = err.Error()
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) handleSubmitJob(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Query("project_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project_id is required"})
		return
	}

	var req service.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := s.Pipeline.Submit(c.Request.Context(), uint(projectID), req)
	if err != nil {
		s.Logger.Error("Failed to submit job", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, err := s.Jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (s *Server) handleListProjectJobs(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return
	}

	jobs, err := s.Jobs.ListByProject(c.Request.Context(), uint(projectID))
	if err != nil {
		s.Logger.Error("Failed to list jobs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop scheduler first
	s.Scheduler.Stop()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
