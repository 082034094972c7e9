package setup

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/maeven-tapa/eals/auditlog"
	"github.com/maeven-tapa/eals/core"
)

// Page is one screen of the first-run welcome.
type Page struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Welcome is what the UI shows on first run. Password is the one-time
// bootstrap password in plain text.
type Welcome struct {
	FirstRun bool   `json:"firstRun"`
	AdminID  string `json:"adminId,omitempty"`
	Password string `json:"password,omitempty"`
	Pages    []Page `json:"pages,omitempty"`
}

type Orchestrator struct {
	dm      *core.DatabaseManager
	journal auditlog.Recorder

	mu      sync.Mutex
	welcome *Welcome
}

func New(dm *core.DatabaseManager, journal auditlog.Recorder) *Orchestrator {
	if journal == nil {
		journal = auditlog.Discard
	}
	return &Orchestrator{dm: dm, journal: journal}
}

// Run creates the bootstrap admin on a fresh store. On later runs it
// returns FirstRun false and no pages.
func (o *Orchestrator) Run(ctx context.Context) (Welcome, error) {
	b, err := core.EnsureBootstrapAdmin(ctx, o.dm)
	if err != nil {
		return Welcome{}, fmt.Errorf("initial setup failed: %w", err)
	}
	if !b.Created {
		return Welcome{}, nil
	}

	w := Welcome{
		FirstRun: true,
		AdminID:  b.AdminID,
		Password: b.Password,
		Pages:    welcomePages(b.AdminID, b.Password),
	}

	o.mu.Lock()
	o.welcome = &w
	o.mu.Unlock()

	log.Printf("[INFO] initial setup created admin %s", b.AdminID)
	o.journal.Record(ctx, b.AdminID, fmt.Sprintf("initial setup created admin %s", b.AdminID))
	return w, nil
}

// Pending reports whether a welcome is waiting to be shown.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.welcome != nil
}

// Take hands out the welcome once and forgets the password.
func (o *Orchestrator) Take() (Welcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.welcome == nil {
		return Welcome{}, false
	}
	w := *o.welcome
	o.welcome = nil
	return w, true
}

func welcomePages(adminID, password string) []Page {
	return []Page{
		{
			Title: "Welcome to EALS",
			Body: "This is the first time EALS has been started on this computer. " +
				"An administrator account has been created for you. " +
				"Continue to see the sign-in details.",
		},
		{
			Title: "Administrator sign-in",
			Body: fmt.Sprintf("Admin ID: %s\nPassword: %s\n\n"+
				"Write these down now. The password is shown only once and must be "+
				"changed at the first sign-in. Keep it: it is also the recovery "+
				"password if the new one is forgotten.", adminID, password),
		},
	}
}
