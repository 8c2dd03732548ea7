package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/common"
)

// Sync runs a cycle right away and reports its outcome.
func (a *App) Sync(ctx context.Context) error {
	res := a.trigger.SyncNow(ctx)
	if res.Reason != nil {
		return res.Reason
	}
	printlnFn(renderSyncResult(res))
	return nil
}

// Mode prints the storage mode, or switches it when given an argument.
// Switching to cloud asks for a foreground sync.
func (a *App) Mode(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Storage mode: " + string(a.engine.StorageMode(ctx)))
		return nil
	}
	mode, err := models.ParseStorageMode(args[0])
	if err != nil {
		return err
	}
	if err := a.engine.SetStorageMode(ctx, mode); err != nil {
		return err
	}
	printlnFn(styleOK.Render("Storage mode set to " + string(mode)))
	if mode == models.StorageCloud {
		a.trigger.Foreground(ctx)
	}
	return nil
}

func (a *App) Status(ctx context.Context) error {
	conn := "online"
	if !a.net.Online() {
		conn = "offline"
	}
	user := a.userID
	if user == "" {
		user = "-"
	}
	last := "never"
	if a.userID != "" {
		t, err := a.engine.LastSynced(ctx)
		switch {
		case err != nil && !errors.Is(err, common.ErrNoUser):
			last = "unknown (" + err.Error() + ")"
		case t != nil:
			last = humanTime(*t, a.now())
		}
	}
	printlnFn(renderKV([][2]string{
		{"User", user},
		{"Network", conn},
		{"Storage mode", string(a.engine.StorageMode(ctx))},
		{"Syncing", fmt.Sprint(a.engine.Syncing())},
		{"Last synced", last},
	}))
	return nil
}
