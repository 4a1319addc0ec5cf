package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mergealert/models"
)

const manageUsage = `management commands:
  user create|update|delete          -id -email -phone -name -gitlab-username
  project create|update|delete       -id -name -url -gitlab-id -description -access-token
  project parse-url <url>
  project scan-group -url u [-access-token t]
  project batch-create <file.json|file.yaml>
  project sync-webhook|unsync-webhook -id n
  project webhook-status <id> [id...]
  project link|unlink -project n -webhook n
  webhook create|update|delete|test  -id -name -url -type -description -secret -keywords a,b -active
  account create|update|delete       -id -u -email -role -password -active -gitlab-token
  manager assign|remove              -type project|webhook|user -resource n -manager n
  gitlab config
  gitlab test-token|test-connection  -url u -access-token t
`

func isManageCommand(name string) bool {
	switch name {
	case "user", "project", "webhook", "account", "manager", "gitlab":
		return true
	}
	return false
}

// manage runs "<resource> <action> [flags]".
func (a *App) manage(ctx context.Context, resource string, args []string, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, manageUsage)
		return fmt.Errorf("%w: %s needs an action", ErrUsage, resource)
	}
	action, args := args[0], args[1:]
	fs := flag.NewFlagSet(resource+" "+action, flag.ContinueOnError)
	fs.SetOutput(stderr)
	parse := func() error {
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", ErrUsage, err)
		}
		return nil
	}
	unknown := func() error {
		fmt.Fprint(stderr, manageUsage)
		return fmt.Errorf("%w: unknown action %q for %s", ErrUsage, action, resource)
	}
	id := fs.Uint("id", 0, "resource id")

	switch resource {
	case "user":
		email := fs.String("email", "", "email address")
		phone := fs.String("phone", "", "phone number")
		name := fs.String("name", "", "display name")
		gitlab := fs.String("gitlab-username", "", "GitLab username")
		if err := parse(); err != nil {
			return err
		}
		in := models.UserInput{Email: *email, Phone: *phone, Name: *name, GitLabUsername: *gitlab}
		switch action {
		case "create":
			if in.Email == "" || in.Phone == "" {
				return fmt.Errorf("%w: user create needs -email and -phone", ErrUsage)
			}
			return a.CreateUser(ctx, in)
		case "update":
			return a.UpdateUser(ctx, *id, in)
		case "delete":
			return a.DeleteUser(ctx, *id)
		}
		return unknown()

	case "project":
		name := fs.String("name", "", "project name")
		projectURL := fs.String("url", "", "GitLab project or group URL")
		gitlabID := fs.Int("gitlab-id", 0, "GitLab project id")
		description := fs.String("description", "", "description")
		token := fs.String("access-token", "", "GitLab access token")
		projectID := fs.Uint("project", 0, "project id")
		webhookID := fs.Uint("webhook", 0, "webhook id")
		if err := parse(); err != nil {
			return err
		}
		in := models.ProjectInput{Name: *name, URL: *projectURL, GitLabProjectID: *gitlabID, Description: *description, AccessToken: *token}
		switch action {
		case "create":
			if in.URL == "" {
				return fmt.Errorf("%w: project create needs -url", ErrUsage)
			}
			return a.CreateProject(ctx, in)
		case "update":
			return a.UpdateProject(ctx, *id, in)
		case "delete":
			return a.DeleteProject(ctx, *id)
		case "parse-url":
			target := fs.Arg(0)
			if target == "" {
				target = *projectURL
			}
			if target == "" {
				return fmt.Errorf("%w: project parse-url needs a URL", ErrUsage)
			}
			return a.ParseProjectURL(ctx, target)
		case "scan-group":
			if *projectURL == "" {
				return fmt.Errorf("%w: project scan-group needs -url", ErrUsage)
			}
			return a.ScanGroup(ctx, models.ScanGroupRequest{URL: *projectURL, AccessToken: *token})
		case "batch-create":
			if fs.Arg(0) == "" {
				return fmt.Errorf("%w: project batch-create needs a file", ErrUsage)
			}
			return a.BatchCreateProjects(ctx, fs.Arg(0))
		case "sync-webhook", "unsync-webhook":
			return a.SyncProjectWebhook(ctx, *id, action == "unsync-webhook")
		case "webhook-status":
			ids, err := parseIDs(fs.Args())
			if err != nil {
				return err
			}
			if *id != 0 {
				ids = append([]uint{*id}, ids...)
			}
			return a.WebhookStatus(ctx, ids)
		case "link", "unlink":
			link := models.ProjectWebhookLink{ProjectID: *projectID, WebhookID: *webhookID}
			return a.LinkWebhook(ctx, link, action == "unlink")
		}
		return unknown()

	case "webhook":
		name := fs.String("name", "", "webhook name")
		hookURL := fs.String("url", "", "bot endpoint URL")
		kind := fs.String("type", "", "bot type, e.g. wechat, dingtalk, feishu")
		description := fs.String("description", "", "description")
		secret := fs.String("secret", "", "signing secret")
		keywords := fs.String("keywords", "", "comma separated security keywords")
		active := fs.Bool("active", true, "deliver notifications")
		if err := parse(); err != nil {
			return err
		}
		in := models.WebhookInput{Name: *name, URL: *hookURL, Type: *kind, Description: *description, SecurityKeywords: splitList(*keywords)}
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "secret":
				in.Secret = secret
			case "active":
				in.IsActive = active
			}
		})
		switch action {
		case "create":
			if in.Name == "" || in.URL == "" {
				return fmt.Errorf("%w: webhook create needs -name and -url", ErrUsage)
			}
			return a.CreateWebhook(ctx, in)
		case "update":
			return a.UpdateWebhook(ctx, *id, in)
		case "delete":
			return a.DeleteWebhook(ctx, *id)
		case "test":
			return a.TestWebhook(ctx, *id)
		}
		return unknown()

	case "account":
		username := fs.String("u", "", "username")
		email := fs.String("email", "", "email address")
		role := fs.String("role", "", "role: admin or user")
		password := fs.String("password", "", "initial password; generated when empty")
		active := fs.Bool("active", true, "account may sign in")
		token := fs.String("gitlab-token", "", "GitLab personal access token")
		if err := parse(); err != nil {
			return err
		}
		switch action {
		case "create":
			if *username == "" || *email == "" {
				return fmt.Errorf("%w: account create needs -u and -email", ErrUsage)
			}
			return a.CreateAccount(ctx, models.CreateAccountRequest{
				Username:       *username,
				Password:       *password,
				Email:          *email,
				Role:           *role,
				GitLabPATToken: *token,
			})
		case "update":
			req := models.UpdateAccountRequest{Email: *email, Role: *role}
			fs.Visit(func(f *flag.Flag) {
				switch f.Name {
				case "active":
					req.IsActive = active
				case "gitlab-token":
					req.GitLabPATToken = token
				}
			})
			return a.UpdateAccount(ctx, *id, req)
		case "delete":
			return a.DeleteAccount(ctx, *id)
		}
		return unknown()

	case "manager":
		kind := fs.String("type", "", "resource type: project, webhook or user")
		resourceID := fs.Uint("resource", 0, "resource id")
		managerID := fs.Uint("manager", 0, "manager account id")
		if err := parse(); err != nil {
			return err
		}
		asg := models.ManagerAssignment{ResourceID: *resourceID, ResourceType: models.ResourceType(*kind), ManagerID: *managerID}
		switch action {
		case "assign", "remove":
			return a.AssignManager(ctx, asg, action == "remove")
		}
		return unknown()

	case "gitlab":
		gitlabURL := fs.String("url", "", "GitLab URL")
		token := fs.String("access-token", "", "GitLab access token")
		if err := parse(); err != nil {
			return err
		}
		switch action {
		case "config":
			return a.GitLabConfig(ctx)
		case "test-token":
			return a.CheckGitLab(ctx, models.GitLabTokenCheck{GitLabURL: *gitlabURL, AccessToken: *token}, true)
		case "test-connection":
			return a.CheckGitLab(ctx, models.GitLabTokenCheck{URL: *gitlabURL, AccessToken: *token}, false)
		}
		return unknown()
	}
	return fmt.Errorf("%w: unknown command %q", ErrUsage, resource)
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		n, err := strconv.ParseUint(arg, 10, 0)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("%w: invalid id %q", ErrUsage, arg)
		}
		ids = append(ids, uint(n))
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
