package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quiz-master/internal/config"
	"quiz-master/internal/exports"
	"quiz-master/internal/reports"
	"quiz-master/pkg/artifacts"
	"quiz-master/pkg/database"
	"quiz-master/pkg/logger"
	"quiz-master/pkg/mailer"
)

// app holds what every subcommand needs: configuration, logging and the database.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	db  *gorm.DB
}

func loadApp(envFile string) (*app, error) {
	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, foundDotenv, err := config.Load(files...)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if !foundDotenv {
		log.Debug("No .env file found; using process environment")
	}

	db, err := database.NewPostgresDB(&database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &app{cfg: cfg, log: log, db: db}, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *app) ping(ctx context.Context) error {
	return database.Ping(ctx, a.db)
}

func (a *app) artifactDir() (*artifacts.Dir, error) {
	dir, err := artifacts.NewDir(a.cfg.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("artifact dir: %w", err)
	}
	return dir, nil
}

func (a *app) mailSender() *mailer.SMTPSender {
	return mailer.NewSMTPSender(mailer.Config{
		Host:     a.cfg.SMTPHost,
		Port:     a.cfg.SMTPPort,
		Username: a.cfg.SMTPUser,
		Password: a.cfg.SMTPPassword,
		From:     a.cfg.MailFrom,
	})
}

func (a *app) reportService(dir *artifacts.Dir) *reports.Service {
	return reports.NewService(
		reports.NewRepository(a.db),
		dir,
		a.mailSender(),
		logger.Component(a.log, "reports"),
	)
}

func (a *app) exportService(dir *artifacts.Dir) *exports.Service {
	return exports.NewService(exports.NewRepository(a.db), dir, logger.Component(a.log, "exports"))
}
