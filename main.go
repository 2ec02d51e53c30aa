package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jamiewells/portfolio/internal/analytics"
	"github.com/jamiewells/portfolio/internal/config"
	"github.com/jamiewells/portfolio/internal/contact"
	"github.com/jamiewells/portfolio/internal/content"
	"github.com/jamiewells/portfolio/internal/logging"
	"github.com/jamiewells/portfolio/internal/pageview"
	"github.com/jamiewells/portfolio/internal/thumbs"
	"github.com/jamiewells/portfolio/internal/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "portfolio",
		Short:        RootShort,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newContentCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio over HTTP",
		Long:  ServeLong,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Work with site content",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a site content file",
		Long:  ContentCheckLong,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			site, err := content.LoadFile(path)
			if err != nil {
				return err
			}
			images := 0
			for _, p := range site.Products {
				images += len(p.Images)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d products, %d images\n", len(site.Products), images)
			return nil
		},
	})
	return cmd
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.GinMode)

	site, err := content.LoadFile(cfg.ContentPath)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	store, err := analytics.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	pages, err := pageview.NewStore(site, cfg.PageViewTTL, pageview.WithMaxPages(cfg.PageViewMax))
	if err != nil {
		return err
	}
	go pages.Run(ctx, time.Minute, func(n int) {
		logger.Debug("page views swept", zap.Int("removed", n), zap.Int("live", pages.Len()))
	})

	var mailer contact.Mailer = contact.LogMailer{Logger: logger}
	if cfg.SMTP.Configured() {
		mailer = contact.NewSMTPMailer(cfg.SMTP)
	} else {
		logger.Warn("SMTP credentials not configured; contact messages are stored only")
	}

	adm, err := newAdmin(store, cfg.Admin, cfg.CookieSecure, logger)
	if err != nil {
		return err
	}
	go adm.runRetention(ctx, 24*time.Hour)

	r, err := web.NewEngine(logger)
	if err != nil {
		return err
	}
	r.Use(adm.trackVisitors())

	web.New(web.Deps{
		Site:      site,
		Pages:     pages,
		Thumbs:    thumbs.New(cfg.AssetsDir),
		Metrics:   store,
		Contact:   contact.NewService(store, mailer, logger),
		Logger:    logger,
		AssetsDir: cfg.AssetsDir,
		Secure:    cfg.CookieSecure,
	}).Register(r)
	adm.register(r)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("mode", cfg.GinMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
