package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/application/command"
	"github.com/travy/admin-hub/internal/application/page"
	"github.com/travy/admin-hub/internal/application/query"
	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/listing"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// SessionID is the id adminctl stores its single session under.
const SessionID = "adminctl"

// PasswordEnv supplies the login password without a flag.
const PasswordEnv = "ADMINCTL_PASSWORD"

var (
	ErrIDRequired     = errors.New("ID argument required")
	ErrDeleteDisabled = errors.New("influencer deletion is disabled")
)

// Gateway is everything adminctl asks of the backend for a signed-in user.
type Gateway interface {
	page.UserGateway
	page.InfluencerGateway
	query.AdminDirectory
	query.InfluencerAccount
}

// Env holds the dependencies of the command tree.
type Env struct {
	Sessions  *session.Owner
	Login     *command.LoginHandler
	Logout    *command.LogoutHandler
	Gateway   func(token string) Gateway
	Clipboard page.Clipboard
	Events    shared.EventPublisher
	Logger    *zap.Logger
	Now       func() time.Time

	In  io.Reader
	Out io.Writer

	// Feature switches resolved by the caller.
	CopyToClipboard   bool
	AllowDelete       bool
	HideTopPerformers bool
}

// App is the adminctl command tree.
type App struct {
	env       Env
	presenter *Presenter
	in        *bufio.Reader
}

// NewApp creates the command tree.
func NewApp(env Env) *App {
	if env.Now == nil {
		env.Now = time.Now
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if env.In == nil {
		env.In = strings.NewReader("")
	}
	return &App{
		env:       env,
		presenter: NewPresenter(env.Out, env.Now),
		in:        bufio.NewReader(env.In),
	}
}

// Run parses args and executes the selected command.
func (a *App) Run(ctx context.Context, args []string) error {
	return a.Command().Run(ctx, args)
}

// Command builds the root command.
func (a *App) Command() *cli.Command {
	return &cli.Command{
		Name:   "adminctl",
		Usage:  "Manage users and influencers from the terminal",
		Writer: a.env.Out,
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars(PasswordEnv)},
					&cli.StringFlag{Name: "role", Aliases: []string{"r"}, Usage: "admin or influencer", Value: string(session.RoleAdmin)},
				},
				Action: a.login,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session",
				Action: a.logout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the stored session",
				Action: a.whoami,
			},
			{
				Name:  "users",
				Usage: "Manage users",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List users",
						Flags:  append(listFlags(), &cli.StringFlag{Name: "status", Usage: "all, active, blocked or pending"}),
						Action: a.usersList,
					},
					a.userMutation("block", "Block a user", (*page.Users).Block),
					a.userMutation("unblock", "Unblock a user", (*page.Users).Unblock),
					a.userMutation("toggle", "Block an active user or unblock a blocked one", (*page.Users).Toggle),
				},
			},
			{
				Name:  "influencers",
				Usage: "Manage influencers",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List influencers",
						Flags:  append(listFlags(), &cli.StringFlag{Name: "performance", Usage: "all, top, medium or low"}),
						Action: a.influencersList,
					},
					{
						Name:      "delete",
						Usage:     "Delete an influencer",
						ArgsUsage: "ID",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
						},
						Action: a.influencerDelete,
					},
					{
						Name:      "copy-link",
						Usage:     "Copy an influencer's referral link",
						ArgsUsage: "ID",
						Action:    a.influencerCopyLink,
					},
				},
			},
			{
				Name:   "dashboard",
				Usage:  "Show the admin dashboard",
				Action: a.adminDashboard,
			},
			{
				Name:  "influencer",
				Usage: "Influencer portal",
				Commands: []*cli.Command{
					{
						Name:  "dashboard",
						Usage: "Show your referrals and earnings",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "page", Usage: "Referrals page", Value: 1},
						},
						Action: a.influencerDashboard,
					},
				},
			},
		},
	}
}

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Match name or email"},
		&cli.StringFlag{Name: "date-range", Usage: "all, today, week, month or quarter"},
		&cli.StringFlag{Name: "sort-by", Usage: "name, email or date"},
		&cli.StringFlag{Name: "order", Usage: "asc or desc"},
		&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) login(ctx context.Context, c *cli.Command) error {
	role, err := session.ParseRole(c.String("role"))
	if err != nil {
		return err
	}

	res, err := a.env.Login.Handle(ctx, command.LoginCommand{
		SessionID: SessionID,
		Email:     c.String("email"),
		Password:  c.String("password"),
		Role:      role,
	})
	if err != nil {
		return errors.New(shared.DisplayMessage(err, notice.MsgLoginFailed))
	}

	s, err := a.env.Sessions.Get(ctx, res.SessionID)
	if err != nil {
		return err
	}
	a.presenter.Notice(notice.Success("Signed in as "+res.Email, a.env.Now()))
	a.presenter.Session(s)
	return nil
}

func (a *App) logout(ctx context.Context, _ *cli.Command) error {
	if err := a.env.Logout.Handle(ctx, command.LogoutCommand{SessionID: SessionID}); err != nil {
		return err
	}
	a.presenter.Notice(notice.Success("Signed out", a.env.Now()))
	return nil
}

func (a *App) whoami(ctx context.Context, _ *cli.Command) error {
	s, err := a.env.Sessions.Get(ctx, SessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrExpired) {
			return shared.ErrNotSignedIn
		}
		return err
	}
	a.presenter.Session(s)
	return nil
}

// authorize loads the stored session and checks its role.
func (a *App) authorize(ctx context.Context, role session.Role) (*session.Session, Gateway, error) {
	s, err := a.env.Sessions.Authorize(ctx, SessionID, role)
	if err != nil {
		return nil, nil, err
	}
	return s, a.env.Gateway(s.Token), nil
}

func (a *App) pageOptions(s *session.Session) page.Options {
	return page.Options{
		Now:               a.env.Now,
		Logger:            a.env.Logger.With(logger.SessionID(s.ID)),
		Events:            a.env.Events,
		Actor:             s.Fingerprint(),
		HideTopPerformers: a.env.HideTopPerformers,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) users(ctx context.Context) (*page.Users, error) {
	s, gw, err := a.authorize(ctx, session.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return page.NewUsers(gw, a.pageOptions(s)), nil
}

func (a *App) usersList(ctx context.Context, c *cli.Command) error {
	p, err := a.users(ctx)
	if err != nil {
		return err
	}
	if err := prepare(ctx, p, c); err != nil {
		a.presenter.Users(p.View())
		return err
	}
	a.presenter.Users(p.View())
	return nil
}

func (a *App) userMutation(name, usage string, mutate func(*page.Users, context.Context, string) (*directory.User, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "ID",
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return ErrIDRequired
			}
			p, err := a.users(ctx)
			if err != nil {
				return err
			}
			if err := p.Load(ctx); err != nil {
				a.presenter.Banner(p.View().Banner)
				return err
			}

			u, err := mutate(p, ctx, id)
			if err != nil {
				if b, ok := p.Board().Banner(); ok {
					a.presenter.Banner(&b)
				}
				return err
			}
			a.presenter.Notice(notice.Success("User "+id+" is now "+string(u.Status()), a.env.Now()))
			a.presenter.User(u)
			return nil
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INFLUENCERS
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) influencers(ctx context.Context) (*page.Influencers, error) {
	s, gw, err := a.authorize(ctx, session.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return page.NewInfluencers(gw, a.pageOptions(s)), nil
}

func (a *App) influencersList(ctx context.Context, c *cli.Command) error {
	p, err := a.influencers(ctx)
	if err != nil {
		return err
	}
	if err := prepare(ctx, p, c); err != nil {
		a.presenter.Influencers(p.View())
		return err
	}
	a.presenter.Influencers(p.View())
	return nil
}

func (a *App) influencerDelete(ctx context.Context, c *cli.Command) error {
	if !a.env.AllowDelete {
		return ErrDeleteDisabled
	}
	id := c.Args().First()
	if id == "" {
		return ErrIDRequired
	}
	p, err := a.influencers(ctx)
	if err != nil {
		return err
	}
	if err := p.Load(ctx); err != nil {
		a.presenter.Banner(p.View().Banner)
		return err
	}

	confirmed := c.Bool("yes")
	if !confirmed {
		label := id
		if inf, ok := p.Find(id); ok {
			label = inf.Name() + " (" + id + ")"
		}
		confirmed = a.confirm(notice.MsgConfirmDelete + " " + label)
	}
	if !confirmed {
		fmt.Fprintln(a.env.Out, "Cancelled.")
		return nil
	}

	if err := p.Delete(ctx, id, true); err != nil {
		if b, ok := p.Board().Banner(); ok {
			a.presenter.Banner(&b)
		}
		return err
	}
	a.presenter.Notice(notice.Success("Influencer "+id+" deleted", a.env.Now()))
	return nil
}

func (a *App) influencerCopyLink(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return ErrIDRequired
	}
	p, err := a.influencers(ctx)
	if err != nil {
		return err
	}
	if err := p.Load(ctx); err != nil {
		a.presenter.Banner(p.View().Banner)
		return err
	}

	inf, ok := p.Find(id)
	if !ok {
		return shared.ErrRecordNotFound
	}
	if a.env.CopyToClipboard && a.env.Clipboard != nil {
		n, err := p.CopyLink(id, a.env.Clipboard)
		if err != nil {
			return err
		}
		a.presenter.Notice(n)
	}
	fmt.Fprintln(a.env.Out, inf.ReferralLink())
	return nil
}

// confirm asks a yes/no question on In. Anything but y or yes is a no.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.env.Out, "%s [y/N] ", question)
	answer, err := a.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARDS
// ══════════════════════════════════════════════════════════════════════════════

func (a *App) adminDashboard(ctx context.Context, _ *cli.Command) error {
	_, gw, err := a.authorize(ctx, session.RoleAdmin)
	if err != nil {
		return err
	}
	res, err := query.NewAdminDashboardHandler(gw, a.env.Now, a.env.Logger).Handle(ctx)
	if err != nil {
		a.presenter.Banner(&notice.Banner{Message: shared.DisplayMessage(err, notice.MsgLoadDashboardFailed), RaisedAt: a.env.Now()})
		return err
	}
	a.presenter.AdminDashboard(res)
	return nil
}

func (a *App) influencerDashboard(ctx context.Context, c *cli.Command) error {
	_, gw, err := a.authorize(ctx, session.RoleInfluencer)
	if err != nil {
		return err
	}
	res, err := query.NewInfluencerDashboardHandler(gw, a.env.Logger).Handle(ctx, query.InfluencerDashboardQuery{Page: int(c.Int("page"))})
	if err != nil {
		a.presenter.Banner(&notice.Banner{Message: shared.DisplayMessage(err, notice.MsgLoadDashboardFailed), RaisedAt: a.env.Now()})
		return err
	}
	a.presenter.InfluencerDashboard(res)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST FLAGS
// ══════════════════════════════════════════════════════════════════════════════

// patchFromFlags turns the list flags that were set into a query patch.
func patchFromFlags(c *cli.Command) listing.Patch {
	var p listing.Patch
	set := func(name string) *string {
		if !c.IsSet(name) {
			return nil
		}
		v := c.String(name)
		return &v
	}
	p.Search = set("search")
	p.DateRange = set("date-range")
	p.SortBy = set("sort-by")
	p.Order = set("order")
	if hasFlag(c, "status") {
		p.Status = set("status")
	}
	if hasFlag(c, "performance") {
		p.Performance = set("performance")
	}
	return p
}

func hasFlag(c *cli.Command, name string) bool {
	for _, f := range c.Flags {
		for _, n := range f.Names() {
			if n == name {
				return true
			}
		}
	}
	return false
}

type listPage interface {
	Load(ctx context.Context) error
	UpdateQuery(p listing.Patch) (listing.Query, error)
	SetPage(n int) error
}

// prepare loads the store, then applies the query flags and the page.
func prepare(ctx context.Context, l listPage, c *cli.Command) error {
	if err := l.Load(ctx); err != nil {
		return err
	}
	if _, err := l.UpdateQuery(patchFromFlags(c)); err != nil {
		return err
	}
	if n := int(c.Int("page")); n > 1 {
		return l.SetPage(n)
	}
	return nil
}
