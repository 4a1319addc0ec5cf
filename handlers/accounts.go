package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/sethvargo/go-password/password"

	"mergealert/models"
	"mergealert/utils"
)

const (
	generatedPasswordLength  = 16
	generatedPasswordDigits  = 4
	generatedPasswordSymbols = 2
	minPasswordLength        = 6
)

var (
	ErrAccountIDRequired = errors.New("account id is required")
	ErrPasswordTooShort  = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

type accountService interface {
	ListAccounts(ctx context.Context, q models.AccountQuery) (*models.AccountPage, error)
	ResetAccountPassword(ctx context.Context, id uint, newPassword string) error
}

// AccountsHandler renders console accounts (admin only) and resets their passwords.
type AccountsHandler struct {
	accounts accountService
	generate func() (string, error)
}

func NewAccountsHandler(accounts accountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts, generate: GeneratePassword}
}

// GeneratePassword returns a random password suitable for a reset.
func GeneratePassword() (string, error) {
	return password.Generate(generatedPasswordLength, generatedPasswordDigits, generatedPasswordSymbols, false, true)
}

// QueryFromValues reads page, page_size, search and role.
func QueryFromValues(q url.Values) models.AccountQuery {
	query := models.AccountQuery{
		Search: strings.TrimSpace(q.Get("search")),
		Role:   strings.TrimSpace(q.Get("role")),
	}
	query.Page, _ = strconv.Atoi(q.Get("page"))
	query.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}
	return query
}

func (h *AccountsHandler) Render(ctx context.Context, p *Printer, q url.Values) error {
	page, err := h.accounts.ListAccounts(ctx, QueryFromValues(q))
	if err != nil {
		return err
	}
	if page.Data == nil {
		page.Data = []models.Account{}
	}
	return p.Print(page, func(tw *tabwriter.Writer) {
		row(tw, "ID", "USERNAME", "EMAIL", "ROLE", "ACTIVE", "GITLAB TOKEN", "LAST LOGIN")
		for _, a := range page.Data {
			row(tw, a.ID, a.Username, a.Email, a.Role, yesNo(a.IsActive), yesNo(a.HasGitLabToken), utils.FormatTimePtr(a.LastLoginAt))
		}
		row(tw)
		row(tw, fmt.Sprintf("page %d, %d of %s accounts", page.Page, len(page.Data), utils.FormatCount(page.Total)))
	})
}

// ResetPassword sets a new password for account id. An empty newPassword is
// replaced by a generated one, which is returned.
func (h *AccountsHandler) ResetPassword(ctx context.Context, id uint, newPassword string) (string, error) {
	if id == 0 {
		return "", ErrAccountIDRequired
	}
	if newPassword == "" {
		generated, err := h.generate()
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		newPassword = generated
	}
	if len(newPassword) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	if err := h.accounts.ResetAccountPassword(ctx, id, newPassword); err != nil {
		return "", err
	}
	return newPassword, nil
}
