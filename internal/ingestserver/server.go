package ingestserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"clipkeeper/internal/config"
	"clipkeeper/internal/logging"
)

const (
	defaultSentenceLimit = 5
	maxSentenceLimit     = 500
	maxFieldBytes        = 64 << 10
)

// Server is the ingestion HTTP server.
type Server struct {
	cfg       *config.Config
	dataset   *Dataset
	clips     clipStore
	logger    *slog.Logger
	validate  *validator.Validate
	engine    *gin.Engine
	maxUpload int64

	listener net.Listener
	http     *http.Server
	stopOnce sync.Once
}

// New wires routes over dataset. Server directories must already exist.
func New(cfg *config.Config, dataset *Dataset, logger *slog.Logger) (*Server, error) {
	if cfg == nil || dataset == nil {
		return nil, errors.New("ingest server requires config and dataset")
	}
	logger = logging.NewComponentLogger(logger, "server")
	s := &Server{
		cfg:       cfg,
		dataset:   dataset,
		clips:     clipStore{root: cfg.Server.UploadDir, now: time.Now},
		logger:    logger,
		validate:  validator.New(),
		maxUpload: int64(cfg.Server.MaxUploadMiB) << 20,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger), cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", headerRequestID},
		ExposeHeaders:   []string{headerRequestID},
		MaxAge:          12 * time.Hour,
	}))

	api := engine.Group("/api")
	{
		api.GET("/sentences", s.handleSentences)
		api.POST("/import-sentences", s.handleImportSentences)
		api.POST("/upload", s.handleUpload)
		api.GET("/recordings", s.handleRecordings)
		api.GET("/status", s.handleStatus)
	}
	engine.NoRoute(s.handleStatic)
	s.engine = engine

	s.http = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens on the configured bind address and serves in the background
// until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Server.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("ingest server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("upload_dir", s.cfg.Server.UploadDir),
		logging.String("dataset", s.dataset.Path()),
	)
	return nil
}

// Stop shuts the server down, letting in-flight uploads finish for a few
// seconds. Later calls are no-ops.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", logging.Error(err))
		}
	})
}
