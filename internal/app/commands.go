package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/afero"

	"mergealert/handlers"
	"mergealert/models"
	"mergealert/services/sessions"
	"mergealert/utils"
)

var (
	ErrScreenNotFound = errors.New("screen not found")
	ErrSetupRequired  = errors.New("administrator setup required: run `mergealert setup-admin`")
	ErrSetupDone      = errors.New("administrator setup already completed")
	ErrNotSignedIn    = errors.New("not signed in: run `mergealert login`")
)

// Open navigates to target through the guard and renders the screen it
// lands on. When a request during rendering ends the session, the queued
// redirect (the login screen) is shown as well.
func (a *App) Open(ctx context.Context, target string) error {
	if target == "" {
		target = utils.HomePath
	}
	renderErr := a.openOnce(ctx, target)

	if next, ok := a.History.TakePending(); ok {
		a.log.Debug("following queued redirect", "target", next)
		if err := a.openOnce(ctx, next); err != nil && renderErr == nil {
			renderErr = err
		}
	}
	return renderErr
}

func (a *App) openOnce(ctx context.Context, target string) error {
	d, err := a.History.Navigate(ctx, target)
	if err != nil {
		return err
	}
	if d.NotFound {
		return fmt.Errorf("%w: %s", ErrScreenNotFound, utils.PathOnly(target))
	}
	return a.Screens.Render(ctx, d.Route, a.History.CurrentPath(), a.printer())
}

func (a *App) printer() *handlers.Printer {
	return handlers.NewPrinter(a.out, a.Config.Output)
}

// Login signs in and, when redirect is set, opens that screen.
func (a *App) Login(ctx context.Context, username, password, redirect string) error {
	if a.Bootstrap.CheckAdminSetup(ctx, true) {
		return ErrSetupRequired
	}
	if err := a.Session.Login(ctx, username, password); err != nil {
		return err
	}
	a.Notifier.Success("signed in as " + a.Session.Username())
	if redirect != "" {
		return a.Open(ctx, utils.SafeRedirect(redirect))
	}
	return nil
}

// Register creates an account and signs in with it.
func (a *App) Register(ctx context.Context, req models.RegisterRequest) error {
	if a.Bootstrap.CheckAdminSetup(ctx, true) {
		return ErrSetupRequired
	}
	if err := a.Session.Register(ctx, req); err != nil {
		return err
	}
	a.Notifier.Success("registered and signed in as " + a.Session.Username())
	return nil
}

// Logout ends the session locally, whatever the server says.
func (a *App) Logout(ctx context.Context) {
	if !a.Session.IsAuthenticated() {
		a.Notifier.Success("not signed in")
		return
	}
	a.Session.Logout(ctx)
	a.Notifier.Success("signed out")
}

// SetupAdmin completes the one-time administrator bootstrap.
func (a *App) SetupAdmin(ctx context.Context, req models.SetupAdminRequest) error {
	if !a.Bootstrap.CheckAdminSetup(ctx, true) {
		return ErrSetupDone
	}
	if err := a.Bootstrap.SetupAdmin(ctx, req); err != nil {
		return err
	}
	a.Notifier.Success("administrator created, sign in with `mergealert login`")
	return nil
}

// Whoami shows the profile screen of the signed-in account.
func (a *App) Whoami(ctx context.Context) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	return a.Open(ctx, "/profile")
}

// ChangePassword changes the signed-in account's password.
func (a *App) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	if err := a.Session.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return err
	}
	a.Notifier.Success("password changed")
	return nil
}

// UpdateProfile updates email and/or the GitLab personal access token.
func (a *App) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	account, err := a.Session.UpdateProfile(ctx, req)
	if err != nil {
		return err
	}
	a.Notifier.Success("profile updated for " + account.Username)
	return nil
}

// UploadAvatar uploads an image file as the account avatar.
func (a *App) UploadAvatar(ctx context.Context, path string) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	data, err := afero.ReadFile(a.Fs, path)
	if err != nil {
		return fmt.Errorf("read avatar: %w", err)
	}
	avatar, err := a.Session.UploadAvatar(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	a.Notifier.Success("avatar uploaded: " + avatar)
	return nil
}

// SetEmojiAvatar stores a short emoji as the avatar.
func (a *App) SetEmojiAvatar(ctx context.Context, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return errors.New("emoji is required")
	}
	return a.UpdateProfile(ctx, models.UpdateProfileRequest{Avatar: emoji})
}

// ResetPassword sets a new password for another account (admin only). An
// empty password is generated and printed.
func (a *App) ResetPassword(ctx context.Context, accountID uint, password string) error {
	if err := a.authorize(ctx, resAccounts, sessions.ActionUpdate); err != nil {
		return err
	}
	generated := password == ""
	pw, err := a.Screens.Accounts.ResetPassword(ctx, accountID, password)
	if err != nil {
		return err
	}
	if generated {
		p := a.printer()
		return p.Print(map[string]any{"account_id": accountID, "password": pw}, func(tw *tabwriter.Writer) {
			fmt.Fprintf(tw, "account %d\tnew password: %s\n", accountID, pw)
		})
	}
	a.Notifier.Success(fmt.Sprintf("password reset for account %d", accountID))
	return nil
}

// requireSession runs the same expiry and profile checks the guard runs
// before a protected screen.
func (a *App) requireSession(ctx context.Context) error {
	if !a.Session.CheckTokenExpiry(ctx) || !a.Session.IsAuthenticated() {
		return ErrNotSignedIn
	}
	if a.Session.HasProfile() {
		return nil
	}
	if err := a.Session.FetchProfile(ctx); err != nil {
		a.Session.ClearSession(ctx)
		return fmt.Errorf("%w: %v", ErrNotSignedIn, err)
	}
	return nil
}
