package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/diogopython/Nuvemhost/internal/archive"
	"github.com/diogopython/Nuvemhost/internal/cache"
	"github.com/diogopython/Nuvemhost/internal/config"
	"github.com/diogopython/Nuvemhost/internal/database"
	"github.com/diogopython/Nuvemhost/internal/guard"
	"github.com/diogopython/Nuvemhost/internal/handler"
	"github.com/diogopython/Nuvemhost/internal/logging"
	"github.com/diogopython/Nuvemhost/internal/middleware"
	"github.com/diogopython/Nuvemhost/internal/repository"
	"github.com/diogopython/Nuvemhost/internal/router"
	"github.com/diogopython/Nuvemhost/internal/service"
	"github.com/diogopython/Nuvemhost/internal/storage"
)

var serveCMD = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		migrate, _ := cmd.Flags().GetBool("migrate")
		return runServer(migrate)
	},
}

func init() {
	serveCMD.Flags().Bool("migrate", true, "apply pending migrations before serving")
	rootCMD.AddCommand(serveCMD)
}

func runServer(migrate bool) error {
	cfg := config.Load()
	log, closeLog, err := logging.New(cfg.Debug, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn(ctx, "redis unavailable; rate limiting and project cache disabled")
	} else {
		defer rdb.Close()
	}

	var projectCache repository.ProjectCache
	if c := cache.NewRedisProjectCache(rdb, config.LoadCacheConfig(), log); c != nil {
		projectCache = c
	}
	var retainer service.ArchiveRetainer
	if cfg.Archive.Enabled() {
		store, err := storage.NewS3ArchiveStore(ctx, cfg.Archive)
		if err != nil {
			log.Warn(ctx, "archive retention disabled", "err", err)
		} else {
			retainer = store
		}
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	projects := repository.NewProjectRepo(db, projectCache)

	st := cfg.Storage
	policy := archive.NewPolicy(st.ProjectFileExts, st.MaxArchiveFiles, st.MaxArchiveBytes, st.MaxFileBytes)
	projectSvc, err := service.NewProjectService(projects, st.UploadRoot, policy, retainer, log)
	if err != nil {
		return err
	}
	siteSvc := service.NewSiteService(projects, projectSvc.Root(), guard.New(st.ProjectFileExts))
	editorSvc := service.NewEditorService(projects, projectSvc.Root(), guard.New(st.EditableFileExts), st.MaxUploadBytes)
	events := service.NewEventPublisher(cfg.RabbitURL, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug

	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	router.UseDefaults(e, log, st.MaxUploadBytes, cfg.SecretKey, sessions)
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, sessions, events, log), limit)
	router.RegisterProjects(e,
		handler.NewProjectHandler(projectSvc, editorSvc, st.UploadExts, st.MaxUploadBytes, log),
		handler.NewFileHandler(editorSvc, log),
		limit)
	router.RegisterPublic(e, handler.NewPublicHandler(siteSvc))

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "listening", "addr", addr, "env", cfg.Env, "upload_root", projectSvc.Root())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
