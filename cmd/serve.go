package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"insitegent/internal/apihandlers"
	"insitegent/internal/app"
)

var (
	serveAddr string
	servePort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review dashboard API server",
	Long: `Starts an HTTP server exposing the review archive and the
categorization pipeline to the dashboard. When scrape.schedule is set,
a background goroutine scrapes and categorizes on that cron schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Config

		router := gin.Default() // Includes logger and recovery middleware
		apiHandler := apihandlers.NewAPIHandler(
			appInstance.ReviewService,
			appInstance.ReviewArchive,
			appInstance.CategoryStore,
		)
		apiHandler.RegisterRoutes(router)

		if cfg.Scrape.Schedule != "" {
			go runAutoScrape(cmd.Context(), appInstance, cfg.Scrape.Schedule)
		}

		addr := cfg.Server.Addr
		port := cfg.Server.Port
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		listenAddr := fmt.Sprintf("%s:%d", addr, port)
		log.Infof("Starting API server on http://%s", listenAddr)

		// router.Run blocks unless an error occurs.
		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to run API server: %w", err)
		}
		return nil
	},
}

// runAutoScrape scrapes and categorizes on the given cron schedule until the
// context is cancelled. The cron spec was already validated at startup.
func runAutoScrape(ctx context.Context, appInstance *app.App, spec string) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		log.WithError(err).Error("Invalid scrape schedule")
		return
	}
	log.WithField("schedule", spec).Info("Auto-scrape enabled")

	for {
		next := schedule.Next(time.Now())
		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			return
		}

		date, added, err := appInstance.ReviewService.ScrapeAndArchive(ctx, "", appInstance.Config.Scrape.Count)
		if err != nil {
			log.WithError(err).Error("Scheduled scrape failed")
			continue
		}
		if _, err := appInstance.ReviewService.CategorizeDate(ctx, date); err != nil {
			log.WithError(err).Error("Scheduled categorization failed")
			continue
		}
		log.WithFields(log.Fields{"date": date, "added": added}).Info("Scheduled scrape complete")
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (defaults to server.addr)")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (defaults to server.port)")
}
