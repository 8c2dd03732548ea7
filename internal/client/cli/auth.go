package cli

import (
	"context"
	"errors"
)

// getSimpleText, getSecret and getMultiline are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getSecret     = GetSecret
	getMultiline  = GetMultiline
)

// Login asks for an access token, stores the session and binds the sync
// engine to its user. Moments staged while the store was down are imported
// and a foreground sync is requested.
func (a *App) Login(ctx context.Context) error {
	token, err := getSecret(a.reader, "Access token", a.out)
	if err != nil {
		return err
	}
	if token == "" {
		return errors.New("token is required")
	}

	sess, err := a.auth.SignIn(ctx, token)
	if err != nil {
		return err
	}
	a.userID = sess.UserID

	if err := a.engine.SetUser(ctx, sess.UserID); err != nil {
		return err
	}
	if n, err := a.moments.ImportStaged(ctx); err != nil {
		printlnFn(styleWarn.Render("Some staged moments could not be imported: " + err.Error()))
	} else if n > 0 {
		printlnFn(styleDim.Render(plural(n, "staged moment") + " imported"))
	}
	a.trigger.Foreground(ctx)

	name := sess.UserID
	if sess.Email != "" {
		name = sess.Email
	}
	printlnFn(styleOK.Render("Signed in as " + name))
	return nil
}

// Logout forgets the session. Local moments stay on disk.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.SignOut(ctx); err != nil {
		return err
	}
	a.engine.ClearUser()
	a.userID = ""
	printlnFn("Signed out")
	return nil
}
