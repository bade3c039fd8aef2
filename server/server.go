package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/kotsworld/mailsync/api"
	"github.com/kotsworld/mailsync/config"
	"github.com/kotsworld/mailsync/internal/cron"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/repository"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/services"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

// Runtime is what both the server and the one-shot commands need.
type Runtime struct {
	Log          logger.Logger
	Services     *services.Services
	Repositories *repository.Repositories
	TracerCloser io.Closer
}

// NewRuntime sets up logging, tracing, repositories and services over db.
func NewRuntime(cfg *config.Config, db *gorm.DB) (*Runtime, error) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		appLogger.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	opentracing.SetGlobalTracer(tracer)

	repos := repository.InitRepositories(db)

	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Log:          appLogger,
		Services:     svcs,
		Repositories: repos,
		TracerCloser: closer,
	}, nil
}

// Close flushes notifications and traces.
func (r *Runtime) Close() {
	if err := r.Services.Close(); err != nil {
		r.Log.Errorf("Failed to close services: %v", err)
	}
	if r.TracerCloser != nil {
		r.TracerCloser.Close()
	}
	r.Log.Sync()
}

func NewServer(cfg *config.Config, db *gorm.DB) (*Server, error) {
	runtime, err := NewRuntime(cfg, db)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          runtime.Log,
		router:       router,
		services:     runtime.Services,
		repositories: runtime.Repositories,
		cronManager:  cron.NewCronManager(cfg, runtime.Log, kubernetesClient(runtime.Log), runtime.Services.IngestionService),
		tracerCloser: runtime.TracerCloser,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// kubernetesClient returns nil outside a cluster, which runs the scheduler without leader election.
func kubernetesClient(log logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Infof("Not running in Kubernetes: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("Failed to create Kubernetes client: %v", err)
		return nil
	}
	return client
}

func (s *Server) Run() error {
	api.RegisterRoutes(s.router, s.services)

	go func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.log.Infof("Starting HTTP server on :%s", s.config.AppConfig.APIPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	}()

	if err := s.cronManager.Start(s.config.AppConfig.PodName, s.config.AppConfig.PodNamespace); err != nil {
		return err
	}
	s.log.Info("Mailsync is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer tracing.RecoverAndLogToJaeger(s.log)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	s.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Stop scheduling first so no run starts while notifications drain
	stopDone := make(chan struct{})
	go func() {
		defer close(stopDone)
		s.cronManager.Stop()
	}()
	select {
	case <-stopDone:
		s.log.Info("Cron manager stopped")
	case <-shutdownCtx.Done():
		s.log.Warn("Cron manager stop timed out, a sync run may be interrupted")
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	}

	if err := s.services.Close(); err != nil {
		s.log.Errorf("Failed to close services: %v", err)
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}

	return nil
}
