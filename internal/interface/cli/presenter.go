// Package cli implements adminctl: the command tree and its terminal output.
package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/travy/admin-hub/internal/application/page"
	"github.com/travy/admin-hub/internal/application/query"
	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STYLES
// ══════════════════════════════════════════════════════════════════════════════

var (
	colorPrimary = lipgloss.Color("#101F38")
	colorAccent  = lipgloss.Color("#8BC34A")
	colorDanger  = lipgloss.Color("#e53935")
	colorWarning = lipgloss.Color("#FFC107")
	colorMuted   = lipgloss.Color("#8a94a6")
	colorBorder  = lipgloss.Color("#2a3850")
)

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	danger  lipgloss.Style
	warning lipgloss.Style
	border  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		header:  lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Padding(0, 1),
		cell:    lipgloss.NewStyle().Padding(0, 1),
		muted:   lipgloss.NewStyle().Foreground(colorMuted),
		success: lipgloss.NewStyle().Foreground(colorAccent),
		danger:  lipgloss.NewStyle().Bold(true).Foreground(colorDanger),
		warning: lipgloss.NewStyle().Foreground(colorWarning),
		border:  lipgloss.NewStyle().Foreground(colorBorder),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PRESENTER
// ══════════════════════════════════════════════════════════════════════════════

// Presenter renders page views to a terminal.
type Presenter struct {
	out    io.Writer
	now    func() time.Time
	styles styles
}

// NewPresenter creates a presenter writing to out.
func NewPresenter(out io.Writer, now func() time.Time) *Presenter {
	if now == nil {
		now = time.Now
	}
	return &Presenter{out: out, now: now, styles: defaultStyles()}
}

func (p *Presenter) println(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *Presenter) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.styles.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.styles.header
			}
			return p.styles.cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// Banner prints the page's error banner, if any.
func (p *Presenter) Banner(b *notice.Banner) {
	if b == nil {
		return
	}
	p.println(p.styles.danger.Render("✗ " + b.Message))
}

// Notice prints a transient notice.
func (p *Presenter) Notice(n notice.Notice) {
	if n.Level == notice.LevelSuccess {
		p.println(p.styles.success.Render("✓ " + n.Message))
		return
	}
	p.println(p.styles.warning.Render("! " + n.Message))
}

// Users prints the users page.
func (p *Presenter) Users(v page.View[*directory.User]) {
	p.Banner(v.Banner)
	p.println(p.styles.title.Render("Users"))

	rows := make([][]string, 0, len(v.Items))
	for _, u := range v.Items {
		rows = append(rows, p.userRow(u))
	}
	p.println(p.table([]string{"ID", "Name", "Email", "Status", "Created"}, rows))
	p.empty("users", len(v.Items), v.Loaded, v.Filtered)
	p.footer(v.Page, v.DisplayPages, v.TotalItems, v.StoreSize)
	p.counts("status", v.Counts[directory.DimensionStatus], "active", "blocked", "pending")
	p.counts("date", v.Counts[directory.DimensionDateRange], "today", "week", "month", "quarter")
}

// User prints one user after a mutation.
func (p *Presenter) User(u *directory.User) {
	if u == nil {
		return
	}
	p.println(p.table([]string{"ID", "Name", "Email", "Status", "Created"}, [][]string{p.userRow(u)}))
}

func (p *Presenter) userRow(u *directory.User) []string {
	return []string{u.ID(), directory.DisplayName(u), u.Email(), p.status(u.Status()), p.date(u)}
}

// Influencers prints the influencers page.
func (p *Presenter) Influencers(v page.View[*directory.Influencer]) {
	p.Banner(v.Banner)
	p.println(p.styles.title.Render("Influencers"))

	rows := make([][]string, 0, len(v.Items))
	for _, inf := range v.Items {
		rows = append(rows, []string{
			inf.ID(),
			directory.DisplayName(inf),
			inf.Email(),
			fmt.Sprint(inf.ReferralCount()),
			"$" + inf.TotalEarnings().StringFixed(2),
			string(inf.Performance()),
			p.date(inf),
		})
	}
	p.println(p.table([]string{"ID", "Name", "Email", "Referrals", "Earnings", "Tier", "Joined"}, rows))
	p.empty("influencers", len(v.Items), v.Loaded, v.Filtered)
	p.footer(v.Page, v.DisplayPages, v.TotalItems, v.StoreSize)
	p.counts("tier", v.Counts[directory.DimensionPerformance], "top", "medium", "low")
	p.counts("date", v.Counts[directory.DimensionDateRange], "today", "week", "month", "quarter")

	if len(v.TopPerformers) > 0 {
		names := make([]string, 0, len(v.TopPerformers))
		for i, inf := range v.TopPerformers {
			names = append(names, fmt.Sprintf("%d. %s (%d)", i+1, directory.DisplayName(inf), inf.ReferralCount()))
		}
		p.println(p.styles.muted.Render("Top performers: " + strings.Join(names, "  ")))
	}
}

// AdminDashboard prints the admin dashboard.
func (p *Presenter) AdminDashboard(r *query.AdminDashboardResult) {
	p.println(p.styles.title.Render("Dashboard"))
	p.println(p.table([]string{"Total users", "Total influencers"}, [][]string{
		{fmt.Sprint(r.TotalUsers), fmt.Sprint(r.TotalInfluencers)},
	}))

	rows := make([][]string, 0, len(r.TopInfluencers))
	for i, inf := range r.TopInfluencers {
		rows = append(rows, []string{
			fmt.Sprint(i + 1), directory.DisplayName(inf), fmt.Sprint(inf.ReferralCount()), "$" + inf.TotalEarnings().StringFixed(2),
		})
	}
	if len(rows) > 0 {
		p.println(p.styles.title.Render("Top influencers"))
		p.println(p.table([]string{"#", "Name", "Referrals", "Earnings"}, rows))
	}
}

// InfluencerDashboard prints an influencer's own dashboard.
func (p *Presenter) InfluencerDashboard(r *query.InfluencerDashboardResult) {
	p.println(p.styles.title.Render("Welcome, " + r.Profile.Name))
	link := r.Profile.ReferralLink
	if link == "" {
		link = "-"
	}
	p.println(p.table([]string{"Referral link", "Referrals", "Earnings"}, [][]string{
		{link, fmt.Sprint(r.Profile.ReferralCount), "$" + r.Profile.TotalEarnings.StringFixed(2)},
	}))

	rows := make([][]string, 0, len(r.Referrals))
	for _, u := range r.Referrals {
		rows = append(rows, []string{directory.DisplayName(u), u.Email(), p.date(u), "$" + u.Reward().StringFixed(2)})
	}
	p.println(p.table([]string{"Name", "Email", "Signed up", "Reward"}, rows))
	p.footer(r.Page, r.TotalPages, r.TotalReferrals, r.TotalReferrals)
}

// Session prints the signed-in session.
func (p *Presenter) Session(s *session.Session) {
	expires := "never"
	if s.HasExpiry() {
		expires = timeutil.FormatHuman(s.ExpiresAt) + " (" + s.ExpiresAt.Sub(p.now()).Round(time.Minute).String() + ")"
	}
	p.println(p.table([]string{"Email", "Role", "Token", "Expires"}, [][]string{
		{s.Email, s.Role().String(), s.Fingerprint(), expires},
	}))
}

// empty explains an empty page: nothing matches the filters, or nothing exists.
func (p *Presenter) empty(noun string, items int, loaded, filtered bool) {
	if items > 0 || !loaded {
		return
	}
	if filtered {
		p.println(p.styles.muted.Render("No " + noun + " match the current filters."))
		return
	}
	p.println(p.styles.muted.Render("No " + noun + " yet."))
}

func (p *Presenter) footer(pageNum, pages, total, size int) {
	line := fmt.Sprintf("Page %d of %d · %d matching of %d", pageNum, pages, total, size)
	p.println(p.styles.muted.Render(line))
}

func (p *Presenter) counts(label string, counts map[string]int, keys ...string) {
	if len(counts) == 0 {
		return
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
	}
	p.println(p.styles.muted.Render(label + ": " + strings.Join(parts, " · ")))
}

func (p *Presenter) status(s directory.UserStatus) string {
	switch s.Bucket() {
	case directory.StatusBlocked:
		return p.styles.danger.Render(string(directory.StatusBlocked))
	case directory.StatusPending:
		return p.styles.warning.Render(string(directory.StatusPending))
	case directory.StatusActive:
		return string(directory.StatusActive)
	default:
		return p.styles.muted.Render(string(s))
	}
}

func (p *Presenter) date(r directory.Record) string {
	t, ok := r.Timestamp()
	if !ok {
		return "-"
	}
	return timeutil.FormatHuman(t) + " (" + timeutil.FormatRelative(t, p.now()) + ")"
}
