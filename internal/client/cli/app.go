package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/services"
)

// Identity is the part of services.AuthService the CLI uses.
type Identity interface {
	SignIn(ctx context.Context, token string) (services.Session, error)
	SignOut(ctx context.Context) error
	CurrentUserID(ctx context.Context) (string, error)
}

// SyncControl is the part of syncer.Engine the CLI uses.
type SyncControl interface {
	SetUser(ctx context.Context, userID string) error
	ClearUser()
	SetStorageMode(ctx context.Context, mode models.StorageMode) error
	StorageMode(ctx context.Context) models.StorageMode
	LastSynced(ctx context.Context) (*time.Time, error)
	Syncing() bool
}

// Trigger is the part of scheduler.Scheduler the CLI uses.
type Trigger interface {
	SyncNow(ctx context.Context) models.SyncResult
	Foreground(ctx context.Context) bool
}

type Connectivity interface {
	Online() bool
}

type App struct {
	moments services.MomentService
	auth    Identity
	engine  SyncControl
	trigger Trigger
	net     Connectivity

	userID string
	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
}

func NewApp(rt *Runtime) *App {
	return &App{
		moments: rt.Moments,
		auth:    rt.Auth,
		engine:  rt.Engine,
		trigger: rt.Scheduler,
		net:     rt.Status,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		now:     time.Now,
	}
}

func (a *App) isLoggedIn() bool {
	return a.userID != ""
}

// Run resumes a stored session and hands control to the REPL until the user
// exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	if id, err := a.auth.CurrentUserID(ctx); err == nil {
		a.userID = id
	}
	printlnFn(styleTitle.Render("LogMoments") + " (type 'help' for commands)")
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

// status is the prompt decoration: user, connectivity and storage mode.
func (a *App) status() string {
	user := "signed out"
	if a.userID != "" {
		user = a.userID
	}
	conn := styleOnline.Render("online")
	if !a.net.Online() {
		conn = styleOffline.Render("offline")
	}
	return user + " " + conn + " " + string(a.engine.StorageMode(context.Background()))
}
