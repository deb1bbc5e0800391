package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/yz4230/forgehost/internal/config"
	"github.com/yz4230/forgehost/internal/engine"
	"github.com/yz4230/forgehost/internal/integrity"
	"github.com/yz4230/forgehost/internal/orchestrator"
	"github.com/yz4230/forgehost/internal/repository"
	"github.com/yz4230/forgehost/internal/server/routes"
	"github.com/yz4230/forgehost/internal/storage"
	"github.com/yz4230/forgehost/internal/usecase"
	"gorm.io/gorm"
)

type Server struct {
	e      *echo.Echo
	config *config.Config
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HidePort = true
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogRemoteIP:  true,
		LogHost:      true,
		LogMethod:    true,
		LogURI:       true,
		LogUserAgent: true,
		LogStatus:    true,
		LogLatency:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("remote_ip", v.RemoteIP).
				Str("host", v.Host).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("user_agent", v.UserAgent).
				Int("status", v.Status).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Msg("handled request")
			return nil
		},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error().Err(err).Bytes("stack", stack).Send()
			return err
		},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := logger.WithContext(req.Context())
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	})

	s := &Server{e: e, config: cfg, logger: logger}
	s.init()
	return s
}

func (s *Server) init() {
	injector := do.New()
	s.injectDependencies(injector)
	s.registerRoutes(injector)
}

func (s *Server) injectDependencies(injector *do.Injector) {
	do.ProvideValue(injector, s.config)

	do.Provide(injector, func(i *do.Injector) (*gorm.DB, error) {
		return repository.NewSQLiteDB(s.config.DataRoot)
	})
	do.Provide(injector, func(i *do.Injector) (repository.TxManager, error) {
		return repository.NewTxManager(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (storage.GitStorage, error) {
		root := filepath.Join(s.config.DataRoot, "repositories")
		return storage.NewGitStorage(root, s.logger), nil
	})
	do.Provide(injector, func(i *do.Injector) (storage.ArtifactStorage, error) {
		root := filepath.Join(s.config.DataRoot, "artifacts")
		return storage.NewArtifactStorage(root, s.logger)
	})
	do.Provide(injector, func(i *do.Injector) (integrity.SignatureVerifier, error) {
		return integrity.NewVerifier(), nil
	})
	do.Provide(injector, func(i *do.Injector) (engine.Engine, error) {
		return NewEngine(s.config, do.MustInvoke[storage.GitStorage](i), s.logger)
	})
	do.Provide(injector, func(i *do.Injector) (*orchestrator.Orchestrator, error) {
		return orchestrator.New(
			do.MustInvoke[repository.TxManager](i),
			do.MustInvoke[engine.Engine](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (repository.RepositoryRepository, error) {
		return repository.NewRepositoryRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.UserRepository, error) {
		return repository.NewUserRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.CommitRepository, error) {
		return repository.NewCommitRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.ArtifactRepository, error) {
		return repository.NewArtifactRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.WorkflowRunRepository, error) {
		return repository.NewWorkflowRunRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.WorkflowJobRepository, error) {
		return repository.NewWorkflowJobRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.EnvironmentRepository, error) {
		return repository.NewEnvironmentRepository(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.DeploymentRepository, error) {
		return repository.NewDeploymentRepository(do.MustInvoke[*gorm.DB](i)), nil
	})

	do.Provide(injector, usecase.NewCreateRepositoryUsecase)
	do.Provide(injector, usecase.NewListRepositoryUsecase)
	do.Provide(injector, usecase.NewGetRepositoryUsecase)
	do.Provide(injector, usecase.NewCheckRepositoryNameUsecase)
	do.Provide(injector, usecase.NewIngestCommitUsecase)
	do.Provide(injector, usecase.NewUploadArtifactUsecase)
	do.Provide(injector, usecase.NewCreateWorkflowRunUsecase)
	do.Provide(injector, usecase.NewCancelWorkflowRunUsecase)
	do.Provide(injector, usecase.NewGetWorkflowRunUsecase)
	do.Provide(injector, usecase.NewSubmitApprovalUsecase)
	do.Provide(injector, usecase.NewListEnvironmentsUsecase)
	do.Provide(injector, usecase.NewGetJobLogsUsecase)
	do.Provide(injector, usecase.NewCompleteJobUsecase)
}

func (s *Server) registerRoutes(injector *do.Injector) {
	routes.RegisterRestAPI(injector, s.e)
	routes.RegisterGitSmartHTTP(injector, s.e)
}

// NewEngine builds the configured CI engine adapter. An unset CI base URL
// leaves the ciserver adapter in mock mode.
func NewEngine(cfg *config.Config, gitStorage storage.GitStorage, logger zerolog.Logger) (engine.Engine, error) {
	switch cfg.Engine {
	case "docker":
		return engine.NewDockerEngine(gitStorage, logger), nil
	case "ciserver", "":
		return engine.NewCIServerEngine(engine.CIServerConfig{
			BaseURL: cfg.CIBaseURL,
			Token:   cfg.CIToken,
		}, http.DefaultClient), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info().Str("addr", addr).Msg("starting server")
	return s.e.Start(addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
