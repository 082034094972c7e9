package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/maeven-tapa/eals/attendance"
	"github.com/maeven-tapa/eals/auditlog"
	"github.com/maeven-tapa/eals/auth"
	"github.com/maeven-tapa/eals/backup"
	"github.com/maeven-tapa/eals/config"
	"github.com/maeven-tapa/eals/core"
	"github.com/maeven-tapa/eals/credentials"
	"github.com/maeven-tapa/eals/employees"
	"github.com/maeven-tapa/eals/infrastructure/communication"
	"github.com/maeven-tapa/eals/infrastructure/filesystem"
	"github.com/maeven-tapa/eals/reset"
	"github.com/maeven-tapa/eals/security"
	"github.com/maeven-tapa/eals/setup"
)

// App is the long-lived service object the adapters talk to.
type App struct {
	Config *config.Config

	DB          *core.DatabaseManager
	Journal     *auditlog.Journal
	Credentials *credentials.Store
	Attendance  *attendance.Engine
	Auth        *auth.Controller
	Tokens      *security.TokenIssuer
	Reset       *reset.Service
	Resets      *reset.Registry
	Backup      *backup.Scheduler
	Setup       *setup.Orchestrator
	Employees   *employees.Directory
	Notifier    communication.Notifier

	// Now is the clock every component reads.
	Now func() time.Time
}

type options struct {
	mailer     communication.Mailer
	prober     reset.Prober
	notifier   communication.Notifier
	relauncher backup.Relauncher
	now        func() time.Time
	hasher     func(string) (string, error)
}

type Option func(*options)

// WithMailer overrides the transport chosen by mail.transport.
func WithMailer(m communication.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

func WithProber(p reset.Prober) Option {
	return func(o *options) { o.prober = p }
}

func WithNotifier(n communication.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithRelauncher(r backup.Relauncher) Option {
	return func(o *options) { o.relauncher = r }
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithPasswordHasher replaces the hasher used for initial employee passwords.
func WithPasswordHasher(hash func(string) (string, error)) Option {
	return func(o *options) { o.hasher = hash }
}

// New opens the store and builds every component. It does not run initial
// setup or start the backup loop; see Start.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	mailer := o.mailer
	if mailer == nil {
		mailer, err = newMailer(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = communication.NopNotifier
		if cfg.Slack.Token != "" {
			notifier = communication.NewSlack(cfg.Slack.Token, communication.SlackOption{
				InfoChannelID:  cfg.Slack.InfoChannel,
				ErrorChannelID: cfg.Slack.ErrorChannel,
			})
		}
	}

	prober := o.prober
	if prober == nil {
		prober = reset.DNSProber{Host: cfg.Connectivity.ProbeHost, Timeout: cfg.Connectivity.Timeout}
	}

	secret := cfg.Web.SigningSecret
	if secret == "" {
		log.Println("[WARN] web.signingSecret not set, sessions will not survive a restart")
		if secret, err = security.RandomSecret(32); err != nil {
			return nil, err
		}
	}
	tokens, err := security.NewTokenIssuer(secret, cfg.Web.TokenTTL)
	if err != nil {
		return nil, err
	}
	tokens.WithClock(o.now)

	dm, err := core.Open(ctx, core.Options{
		Path:     cfg.Database.Path,
		LogLevel: core.ParseLogLevel(cfg.Database.LogLevel),
	})
	if err != nil {
		return nil, err
	}

	journal := auditlog.New(dm, cfg.LogsDir(), o.now, auditlog.WithLocation(loc))
	creds := credentials.NewStore(dm)
	engine := attendance.NewEngine(dm, attendance.WithLocation(loc), attendance.WithJournal(journal))

	backupOpts := []backup.Option{
		backup.WithLocation(loc),
		backup.WithClock(o.now),
		backup.WithJournal(journal),
		backup.WithNotifier(notifier),
		backup.WithRelauncher(o.relauncher),
	}
	if cfg.Offsite.Bucket != "" {
		mirror, err := filesystem.NewS3Mirror(ctx, cfg.Offsite.Bucket, cfg.Offsite.Prefix)
		if err != nil {
			dm.Close()
			return nil, fmt.Errorf("failed to set up offsite mirror: %w", err)
		}
		backupOpts = append(backupOpts, backup.WithMirror(mirror))
	}

	directoryOpts := []employees.Option{employees.WithJournal(journal), employees.WithClock(o.now)}
	if o.hasher != nil {
		directoryOpts = append(directoryOpts, employees.WithPasswordHasher(o.hasher))
	}

	a := &App{
		Config:      cfg,
		DB:          dm,
		Journal:     journal,
		Credentials: creds,
		Attendance:  engine,
		Tokens:      tokens,
		Auth: auth.NewController(creds, engine,
			auth.WithJournal(journal),
			auth.WithTokens(tokens),
			auth.WithClock(o.now),
		),
		Reset:     reset.NewService(dm, creds, mailer, prober, journal),
		Resets:    reset.NewRegistry(30 * time.Minute),
		Backup:    backup.NewScheduler(dm, cfg.BackupsDir(), backupOpts...),
		Setup:     setup.New(dm, journal),
		Employees: employees.NewDirectory(dm, cfg.PicturesDir(), directoryOpts...),
		Notifier:  notifier,
		Now:       o.now,
	}
	return a, nil
}

// Start runs initial setup and starts the backup loop.
func (a *App) Start(ctx context.Context) (setup.Welcome, error) {
	w, err := a.Setup.Run(ctx)
	if err != nil {
		return setup.Welcome{}, err
	}
	if err := a.Backup.Start(); err != nil {
		return w, err
	}
	return w, nil
}

// Close stops the backup loop and closes the store.
func (a *App) Close() error {
	a.Backup.Stop()
	return a.DB.Close()
}

func newMailer(ctx context.Context, cfg *config.Config) (communication.Mailer, error) {
	switch cfg.Mail.Transport {
	case "smtp":
		return communication.NewSMTPMailer(communication.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.Mail.From,
		}), nil
	case "ses":
		return communication.NewSESMailer(ctx, cfg.SES.Region, cfg.Mail.From)
	case "memory":
		log.Println("[WARN] mail transport is memory, reset codes are not delivered")
		return &communication.MemoryMailer{}, nil
	}
	return nil, fmt.Errorf("unknown mail transport %q", cfg.Mail.Transport)
}
