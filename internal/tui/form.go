package tui

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/oafund/internal/config"
	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/tui/theme"
)

// requestFormValues backs the new-request form. huh fields bind to strings,
// so the amount is parsed on completion.
type requestFormValues struct {
	email         string
	title         string
	amount        string
	authorName    string
	authorORCID   string
	collaborators string
	collabORCIDs  string
	journal       string
	issn          string
	publisher     string
	articleStatus string
	pubType       string
	doi           string
	comment       string
}

var (
	articleStatuses  = []string{"Submitted", "Accepted", "Published", "In preparation"}
	publicationTypes = []string{"Journal article", "Book chapter", "Book", "Conference paper", "Other"}
)

func newRequestForm(v *requestFormValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Description("Where status updates are sent.").
				Value(&v.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Title").
				Value(&v.title).
				Validate(required("title")),
			huh.NewInput().
				Title("Amount").
				Placeholder("1500.00").
				Value(&v.amount).
				Validate(validateAmount),
		).Title("New funding request"),

		huh.NewGroup(
			huh.NewInput().Title("Author name").Value(&v.authorName).Validate(required("author name")),
			huh.NewInput().Title("Author ORCiD").Placeholder("0000-0000-0000-0000").Value(&v.authorORCID),
			huh.NewInput().Title("Collaborators").Description("Comma separated.").Value(&v.collaborators),
			huh.NewInput().Title("Collaborator ORCiDs").Value(&v.collabORCIDs),
		).Title("Authors"),

		huh.NewGroup(
			huh.NewInput().Title("Journal").Value(&v.journal),
			huh.NewInput().Title("Journal ISSN").Value(&v.issn),
			huh.NewInput().Title("Publisher").Value(&v.publisher),
			huh.NewSelect[string]().
				Title("Article status").
				Options(huh.NewOptions(articleStatuses...)...).
				Value(&v.articleStatus),
			huh.NewSelect[string]().
				Title("Publication type").
				Options(huh.NewOptions(publicationTypes...)...).
				Value(&v.pubType),
			huh.NewInput().Title("DOI").Value(&v.doi),
			huh.NewText().Title("Comment").Lines(3).Value(&v.comment),
		).Title("Publication"),
	).WithShowHelp(true)
}

// input converts the form values into a submission.
func (v requestFormValues) input() (fund.RequestInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(v.amount))
	if err != nil {
		return fund.RequestInput{}, fmt.Errorf("invalid amount %q", v.amount)
	}
	return fund.RequestInput{
		Email:                 strings.TrimSpace(v.email),
		Title:                 strings.TrimSpace(v.title),
		Amount:                amount,
		AuthorName:            strings.TrimSpace(v.authorName),
		AuthorORCID:           strings.TrimSpace(v.authorORCID),
		CollaboratorList:      strings.TrimSpace(v.collaborators),
		CollaboratorORCIDList: strings.TrimSpace(v.collabORCIDs),
		Journal:               strings.TrimSpace(v.journal),
		JournalISSN:           strings.TrimSpace(v.issn),
		Publisher:             strings.TrimSpace(v.publisher),
		ArticleStatus:         v.articleStatus,
		PublicationType:       v.pubType,
		DOI:                   strings.TrimSpace(v.doi),
		Comment:               strings.TrimSpace(v.comment),
	}, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateEmail(s string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(s)); err != nil {
		return errors.New("enter a valid email address")
	}
	return nil
}

func validateAmount(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a number like 1500.00")
	}
	if d.IsNegative() {
		return errors.New("amount cannot be negative")
	}
	return nil
}

// SetupValues backs the first-run setup form.
type SetupValues struct {
	FundName       string
	Addr           string
	DBPath         string
	SMTPHost       string
	SMTPFrom       string
	BackupSchedule string
	Theme          string
	StaffUser      string
	StaffPassword  string
}

// SetupValuesFrom seeds the form from an existing config.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		FundName:       cfg.General.FundName,
		Addr:           cfg.Server.Addr,
		DBPath:         cfg.DBPath(),
		SMTPHost:       cfg.SMTP.Host,
		SMTPFrom:       cfg.SMTP.From,
		BackupSchedule: cfg.Backup.Schedule,
		Theme:          cfg.Appearance.Theme,
	}
}

// NewSetupForm builds the setup wizard. The staff account group is optional;
// an empty user name skips it.
func NewSetupForm(v *SetupValues) *huh.Form {
	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to oafund").
				Description("Track open access funding requests and the fund's budget.\n\nA few questions, then you're set."),
		),
		huh.NewGroup(
			huh.NewInput().Title("Fund name").Value(&v.FundName).Validate(required("fund name")),
			huh.NewInput().Title("API listen address").Value(&v.Addr).Validate(required("address")),
			huh.NewInput().Title("Database file").Value(&v.DBPath).Validate(required("database file")),
		).Title("General"),
		huh.NewGroup(
			huh.NewInput().
				Title("SMTP host").
				Description("Leave empty to disable status mail.").
				Value(&v.SMTPHost),
			huh.NewInput().Title("From address").Value(&v.SMTPFrom),
			huh.NewInput().
				Title("Backup schedule").
				Description("Cron spec such as @daily. Empty disables scheduled backups.").
				Value(&v.BackupSchedule).
				Validate(validateSchedule),
		).Title("Mail and backups"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Color theme").Options(themeOpts...).Value(&v.Theme),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Staff user").
				Description("Creates a login for the API. Leave empty to skip.").
				Value(&v.StaffUser),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&v.StaffPassword),
		).Title("Staff account"),
	).WithShowHelp(false)
}

// Apply copies the form values into cfg.
func (v SetupValues) Apply(cfg *config.Config) {
	cfg.General.FundName = strings.TrimSpace(v.FundName)
	cfg.Server.Addr = strings.TrimSpace(v.Addr)
	cfg.Database.Path = strings.TrimSpace(v.DBPath)
	cfg.SMTP.Host = strings.TrimSpace(v.SMTPHost)
	cfg.SMTP.From = strings.TrimSpace(v.SMTPFrom)
	cfg.Backup.Schedule = strings.TrimSpace(v.BackupSchedule)
	cfg.Appearance.Theme = v.Theme
}

func validateSchedule(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return fmt.Errorf("invalid schedule: %w", err)
	}
	return nil
}
