package app

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"mergealert/config"
	"mergealert/internal/logging"
	"mergealert/models"
	"mergealert/services/favicon"
	"mergealert/services/notify"
)

// ErrUsage marks a command line the console could not parse.
var ErrUsage = errors.New("usage")

const usage = `usage: mergealert [global flags] <command> [flags] [args]

commands:
  login [-u user] [-redirect path]    sign in
  register -u user -email addr        create an account and sign in
  setup-admin -token t -email addr    complete the one-time administrator setup
  logout                              sign out
  whoami                              show the signed-in account
  open [path]                         open a screen, e.g. /users?search=bob
  passwd                              change your password
  profile [-email e] [-gitlab-token t]
  avatar <image file | emoji>         set your avatar
  reset-password -id n [-password p | -generate]

global flags:
`

// Run is the CLI entrypoint used by cmd/mergealert. It returns the exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := run(ctx, args, stdin, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		if errors.Is(err, ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("mergealert", flag.ContinueOnError)
	global.SetOutput(stderr)
	dir := global.String("config", "", "config directory (default "+config.DefaultDir()+")")
	baseURL := global.String("api", "", "REST API base URL")
	output := global.String("o", "", "output format: table, json or yaml")
	verbose := global.Bool("v", false, "debug logging")
	global.Usage = func() {
		fmt.Fprint(stderr, usage)
		global.PrintDefaults()
		fmt.Fprint(stderr, "\n"+manageUsage)
	}
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	cfg, err := config.Load(*dir)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = strings.TrimRight(*baseURL, "/")
	}
	if *output != "" {
		cfg.Output = *output
	}
	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	_, logCloser := logging.New(logging.Options{Level: level, File: cfg.LogFile, MaxSizeMB: cfg.LogFileMaxSize, Stderr: stderr})
	defer logCloser.Close()

	rest := global.Args()
	if len(rest) == 0 {
		rest = []string{"open"}
	}

	a, err := New(ctx, cfg, Deps{Notifier: notify.NewConsole(stderr), Out: stdout})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintln(stderr, "error:", err)
		}
	}()

	p := newPrompter(stdin, stderr)
	return a.dispatch(ctx, rest[0], rest[1:], p, stderr)
}

func (a *App) dispatch(ctx context.Context, name string, args []string, p *prompter, stderr io.Writer) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	parse := func() error {
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return nil
	}

	switch name {
	case "login":
		username := fs.String("u", "", "username")
		redirect := fs.String("redirect", "", "screen to open after signing in")
		if err := parse(); err != nil {
			return err
		}
		user, err := p.lineIfEmpty(*username, "username: ")
		if err != nil {
			return err
		}
		pw, err := p.password("password: ")
		if err != nil {
			return err
		}
		return a.Login(ctx, user, pw, *redirect)

	case "register":
		username := fs.String("u", "", "username")
		email := fs.String("email", "", "email address")
		if err := parse(); err != nil {
			return err
		}
		if *username == "" || *email == "" {
			return fmt.Errorf("%w: register needs -u and -email", ErrUsage)
		}
		pw, err := p.newPassword()
		if err != nil {
			return err
		}
		return a.Register(ctx, models.RegisterRequest{Username: *username, Email: *email, Password: pw})

	case "setup-admin":
		token := fs.String("token", "", "setup token printed by the server")
		email := fs.String("email", "", "administrator email")
		if err := parse(); err != nil {
			return err
		}
		if *token == "" || *email == "" {
			return fmt.Errorf("%w: setup-admin needs -token and -email", ErrUsage)
		}
		pw, err := p.newPassword()
		if err != nil {
			return err
		}
		return a.SetupAdmin(ctx, models.SetupAdminRequest{Token: *token, Email: *email, Password: pw})

	case "logout":
		a.Logout(ctx)
		return nil

	case "whoami":
		return a.Whoami(ctx)

	case "open":
		if err := parse(); err != nil {
			return err
		}
		return a.Open(ctx, fs.Arg(0))

	case "passwd":
		old, err := p.password("current password: ")
		if err != nil {
			return err
		}
		pw, err := p.newPassword()
		if err != nil {
			return err
		}
		return a.ChangePassword(ctx, old, pw)

	case "profile":
		email := fs.String("email", "", "new email address")
		token := fs.String("gitlab-token", "", "GitLab personal access token; empty clears it")
		if err := parse(); err != nil {
			return err
		}
		req := models.UpdateProfileRequest{Email: *email}
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "gitlab-token" {
				req.GitLabPATToken = token
			}
		})
		if req.Email == "" && req.GitLabPATToken == nil {
			return a.Whoami(ctx)
		}
		return a.UpdateProfile(ctx, req)

	case "avatar":
		if err := parse(); err != nil {
			return err
		}
		arg := fs.Arg(0)
		if arg == "" {
			return fmt.Errorf("%w: avatar needs an image file or an emoji", ErrUsage)
		}
		if favicon.IsEmoji(arg) {
			return a.SetEmojiAvatar(ctx, arg)
		}
		return a.UploadAvatar(ctx, arg)

	case "reset-password":
		id := fs.Uint("id", 0, "account id")
		password := fs.String("password", "", "new password")
		generate := fs.Bool("generate", false, "generate a random password")
		if err := parse(); err != nil {
			return err
		}
		pw := *password
		if pw == "" && !*generate {
			var err error
			if pw, err = p.newPassword(); err != nil {
				return err
			}
		}
		return a.ResetPassword(ctx, *id, pw)

	default:
		if isManageCommand(name) {
			return a.manage(ctx, name, args, stderr)
		}
		// "mergealert /users" is shorthand for "mergealert open /users".
		if strings.HasPrefix(name, "/") {
			return a.Open(ctx, name)
		}
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
}

type prompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, r: bufio.NewReader(in)}
}

func (p *prompter) line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	s, err := p.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || s == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(s, "\r\n"), nil
}

func (p *prompter) lineIfEmpty(v, prompt string) (string, error) {
	if v != "" {
		return v, nil
	}
	return p.line(prompt)
}

// password reads without echo when stdin is a terminal.
func (p *prompter) password(prompt string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return p.line(prompt)
}

func (p *prompter) newPassword() (string, error) {
	pw, err := p.password("new password: ")
	if err != nil {
		return "", err
	}
	confirm, err := p.password("confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", errors.New("passwords do not match")
	}
	if len(pw) < 6 {
		return "", errors.New("password must be at least 6 characters")
	}
	return pw, nil
}
