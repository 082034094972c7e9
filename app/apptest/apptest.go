package apptest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/maeven-tapa/eals/app"
	"github.com/maeven-tapa/eals/config"
	"github.com/maeven-tapa/eals/infrastructure/communication"
	"github.com/maeven-tapa/eals/reset"
	"github.com/maeven-tapa/eals/security"
)

// Secret is the signing secret of test apps.
const Secret = "c2VjcmV0LXNpZ25pbmcta2V5LWZvci10ZXN0cw=="

var fastParams = security.Argon2Params{Memory: 8 * 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

// Harness is an App over a temp directory with captured email.
type Harness struct {
	*app.App
	Mailer     *communication.MemoryMailer
	Now        time.Time
	Relaunched int
}

// New builds an App rooted in t.TempDir() whose clock reads h.Now.
func New(t testing.TB, now time.Time) *Harness {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(dir, "eals.db")
	cfg.Database.LogLevel = "silent"
	cfg.ResourcesDir = filepath.Join(dir, "resources")
	cfg.Mail.Transport = "memory"
	cfg.Web.SigningSecret = Secret

	h := &Harness{Mailer: &communication.MemoryMailer{}, Now: now}
	a, err := app.New(context.Background(), cfg,
		app.WithMailer(h.Mailer),
		app.WithProber(reset.ProberFunc(func(context.Context) error { return nil })),
		app.WithClock(func() time.Time { return h.Now }),
		app.WithRelauncher(func() error {
			h.Relaunched++
			return nil
		}),
		app.WithPasswordHasher(func(plain string) (string, error) {
			return security.HashPasswordWith(fastParams, plain)
		}),
	)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	h.App = a
	return h
}
