// chapterctl - operator commands for the chapter backend
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gfgchapter/config"
	"gfgchapter/database"
	"gfgchapter/models"
	"gfgchapter/services"
	"gfgchapter/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// defaultTeams are the chapter's domain teams.
var defaultTeams = []models.Team{
	{ID: "app-development", Name: "App Development"},
	{ID: "web-development", Name: "Web Development"},
	{ID: "machine-learning", Name: "Machine Learning"},
	{ID: "competitive-programming", Name: "Competitive Programming"},
	{ID: "cloud-devops", Name: "Cloud & DevOps"},
	{ID: "design", Name: "Design"},
	{ID: "content", Name: "Content"},
	{ID: "events", Name: "Events"},
}

type teamsFile struct {
	Teams []models.Team `yaml:"teams"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "chapterctl",
		Short:        "Maintenance commands for the chapter backend",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedTeamsCmd(), newReconcileCmd())
	return root
}

func newSeedTeamsCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed-teams",
		Short: "Insert missing teams (existing rows are left alone)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			teams := defaultTeams
			if file != "" {
				loaded, err := loadTeams(file)
				if err != nil {
					return err
				}
				teams = loaded
			}

			_, db, err := connect()
			if err != nil {
				return err
			}
			defer database.CloseDB()

			inserted, err := services.NewTeamService(db).SeedTeams(cmd.Context(), teams)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d teams\n", inserted, len(teams))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a top-level teams list")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Repair thread reply counters that drifted from the message table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer database.CloseDB()

			// repaired teams are announced to the running servers
			feed, closeFeed := newFeed(cfg.Redis)
			defer func() {
				if err := closeFeed(); err != nil {
					logrus.WithError(err).Warn("Failed to close Redis client")
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			fixed, err := services.NewCounterReconciler(db, feed, "").ReconcileOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "repaired %d threads\n", fixed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "give up after this long")
	return cmd
}

func loadTeams(path string) ([]models.Team, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f teamsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Teams) == 0 {
		return nil, fmt.Errorf("%s has no teams", path)
	}
	return f.Teams, nil
}

// newFeed picks the change feed the servers share. Without Redis there is no
// other process to notify.
func newFeed(cfg config.RedisConfig) (services.ChangeFeed, func() error) {
	if !cfg.Enabled {
		return services.NewLocalFeed(), func() error { return nil }
	}
	rdb := services.NewRedisClient(cfg)
	return services.NewRedisFeed(rdb, cfg.Prefix), rdb.Close
}

func connect() (config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return config.Config{}, nil, err
	}
	utils.InitLogger(cfg.LogLevel, cfg.IsProduction())
	logrus.WithFields(cfg.LogFields()).Debug("Loaded configuration")
	db, err := database.Connect(cfg)
	return cfg, db, err
}
