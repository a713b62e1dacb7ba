package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/theirongolddev/oafund/internal/cli"
	"github.com/theirongolddev/oafund/internal/fund"
	"github.com/theirongolddev/oafund/internal/model"
)

var (
	flagReqStatus string
	flagReqEmail  string
	flagReqJSON   bool
	flagActor     string
	reqFields     requestFlags
)

// requestFlags holds the request field flags shared by submit and update.
type requestFlags struct {
	email, title, amount                 string
	author, orcid, collabs, collabORCIDs string
	journal, issn, publisher             string
	articleStatus, pubType, doi, comment string
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.email, "email", "", "Submitter email")
	fs.StringVar(&f.title, "title", "", "Publication title")
	fs.StringVar(&f.amount, "amount", "", "Requested amount")
	fs.StringVar(&f.author, "author", "", "Author name")
	fs.StringVar(&f.orcid, "orcid", "", "Author ORCiD")
	fs.StringVar(&f.collabs, "collaborators", "", "Collaborator list")
	fs.StringVar(&f.collabORCIDs, "collaborator-orcids", "", "Collaborator ORCiD list")
	fs.StringVar(&f.journal, "journal", "", "Journal title")
	fs.StringVar(&f.issn, "issn", "", "Journal ISSN")
	fs.StringVar(&f.publisher, "publisher", "", "Publisher")
	fs.StringVar(&f.articleStatus, "article-status", "", "Article status")
	fs.StringVar(&f.pubType, "type", "", "Publication type")
	fs.StringVar(&f.doi, "doi", "", "DOI")
	fs.StringVar(&f.comment, "comment", "", "Comment")
}

func (f *requestFlags) input() (fund.RequestInput, error) {
	amount, err := decimal.NewFromString(f.amount)
	if err != nil {
		return fund.RequestInput{}, fmt.Errorf("invalid --amount %q", f.amount)
	}
	return fund.RequestInput{
		Email:                 f.email,
		Title:                 f.title,
		Amount:                amount,
		AuthorName:            f.author,
		AuthorORCID:           f.orcid,
		CollaboratorList:      f.collabs,
		CollaboratorORCIDList: f.collabORCIDs,
		Journal:               f.journal,
		JournalISSN:           f.issn,
		Publisher:             f.publisher,
		ArticleStatus:         f.articleStatus,
		PublicationType:       f.pubType,
		DOI:                   f.doi,
		Comment:               f.comment,
	}, nil
}

// patch builds a RequestPatch from the flags that were actually set.
func (f *requestFlags) patch(fs *pflag.FlagSet) (fund.RequestPatch, error) {
	var p fund.RequestPatch
	str := func(name string, v string, dst **string) {
		if fs.Changed(name) {
			*dst = &v
		}
	}
	str("email", f.email, &p.Email)
	str("title", f.title, &p.Title)
	str("author", f.author, &p.AuthorName)
	str("orcid", f.orcid, &p.AuthorORCID)
	str("collaborators", f.collabs, &p.CollaboratorList)
	str("collaborator-orcids", f.collabORCIDs, &p.CollaboratorORCIDList)
	str("journal", f.journal, &p.Journal)
	str("issn", f.issn, &p.JournalISSN)
	str("publisher", f.publisher, &p.Publisher)
	str("article-status", f.articleStatus, &p.ArticleStatus)
	str("type", f.pubType, &p.PublicationType)
	str("doi", f.doi, &p.DOI)
	str("comment", f.comment, &p.Comment)
	if fs.Changed("amount") {
		d, err := decimal.NewFromString(f.amount)
		if err != nil {
			return p, fmt.Errorf("invalid --amount %q", f.amount)
		}
		p.Amount = &d
	}
	return p, nil
}

var requestCmd = &cobra.Command{
	Use:     "request",
	Aliases: []string{"requests", "req"},
	Short:   "List, submit and review funding requests",
	RunE:    runRequestList,
}

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requests, newest first",
	RunE:  runRequestList,
}

var requestShowCmd = &cobra.Command{
	Use:   "show <timestamp>",
	Short: "Show one request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestShow,
}

var requestSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new request",
	RunE:  runRequestSubmit,
}

var requestUpdateCmd = &cobra.Command{
	Use:   "update <timestamp>",
	Short: "Edit fields of a request",
	Long:  "Edit fields of a request. Only the flags given are changed. The amount is locked once a request leaves submitted.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestUpdate,
}

func transitionCommand(use, short string, to model.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <timestamp>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd.Context(), args[0], to)
		},
	}
}

func init() {
	for _, c := range []*cobra.Command{requestCmd, requestListCmd} {
		c.Flags().StringVarP(&flagReqStatus, "status", "s", "", "Filter by status")
		c.Flags().StringVar(&flagReqEmail, "email", "", "Filter by submitter email")
		c.Flags().BoolVar(&flagReqJSON, "json", false, "Print JSON")
	}
	requestShowCmd.Flags().BoolVar(&flagReqJSON, "json", false, "Print JSON")

	reqFields.register(requestSubmitCmd.Flags())
	for _, name := range []string{"email", "title", "amount", "author"} {
		_ = requestSubmitCmd.MarkFlagRequired(name)
	}
	reqFields.register(requestUpdateCmd.Flags())

	requestCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "Name recorded on status changes (default $USER)")

	requestCmd.AddCommand(
		requestListCmd,
		requestShowCmd,
		requestSubmitCmd,
		requestUpdateCmd,
		transitionCommand("approve", "Approve a submitted request and reserve its amount", model.StatusApproved),
		transitionCommand("deny", "Deny a submitted request", model.StatusDenied),
		transitionCommand("pay", "Mark an approved or planned request as paid", model.StatusPaid),
		transitionCommand("plan", "Plan payment for an approved request", model.StatusPaymentPlanned),
		transitionCommand("cancel", "Cancel an approved request and release its amount", model.StatusCancelled),
	)
	rootCmd.AddCommand(requestCmd)
}

func runRequestList(cmd *cobra.Command, _ []string) error {
	var filter fund.ListFilter
	if flagReqStatus != "" {
		s, ok := model.ParseStatus(flagReqStatus)
		if !ok {
			return fmt.Errorf("unknown status %q", flagReqStatus)
		}
		filter.Status = s
	}
	filter.Email = flagReqEmail

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	reqs, err := a.fund.List(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if flagReqJSON {
		return printJSON(reqs)
	}
	if len(reqs) == 0 {
		fmt.Println("\n  No requests found.")
		return nil
	}

	rows := make([][]string, 0, len(reqs))
	total := decimal.Zero
	for _, r := range reqs {
		rows = append(rows, []string{
			r.Timestamp,
			cli.Truncate(r.Title, 40),
			cli.Truncate(r.Email, 28),
			cli.FormatMoney(r.Amount),
			cli.RenderStatus(r.Status),
		})
		total = total.Add(r.Amount)
	}
	rows = append(rows, []string{"---"}, []string{"", fmt.Sprintf("%d requests", len(reqs)), "", cli.FormatMoney(total), ""})

	title := "REQUESTS"
	if filter.Status != "" {
		title += "  " + cli.FormatStatus(filter.Status)
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{"Timestamp", "Title", "Email", "Amount", "Status"},
		Rows:    rows,
		Right:   []int{3},
	}))
	return nil
}

func runRequestShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.fund.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if flagReqJSON {
		return printJSON(r)
	}
	printRequest(r)
	return nil
}

func printRequest(r model.FundingRequest) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(cli.Truncate(r.Title, 60)))
	fmt.Println()
	fmt.Print(cli.RenderFields([][2]string{
		{"Timestamp", r.Timestamp},
		{"Submitted", cli.FormatWhen(r.Timestamp)},
		{"Status", cli.RenderStatus(r.Status)},
		{"Amount", cli.FormatMoney(r.Amount)},
		{"Email", r.Email},
		{"Author", r.AuthorName},
		{"ORCiD", r.AuthorORCID},
		{"Collaborators", r.CollaboratorList},
		{"Collab. ORCiD", r.CollaboratorORCIDList},
		{"Journal", r.Journal},
		{"ISSN", r.JournalISSN},
		{"Publisher", r.Publisher},
		{"Article status", r.ArticleStatus},
		{"Type", r.PublicationType},
		{"DOI", r.DOI},
		{"Comment", r.Comment},
	}))
	if next := model.NextStatuses(r.Status); len(next) > 0 {
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = cli.FormatStatus(s)
		}
		fmt.Printf("\n  Next: %s\n", strings.Join(names, ", "))
	}
	fmt.Println()
}

func runRequestSubmit(cmd *cobra.Command, _ []string) error {
	in, err := reqFields.input()
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.fund.Submit(cmd.Context(), in)
	if err != nil {
		return err
	}
	fmt.Printf("  Submitted %q (%s)\n", r.Title, r.Timestamp)
	return nil
}

func runRequestUpdate(cmd *cobra.Command, args []string) error {
	p, err := reqFields.patch(cmd.Flags())
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	r, err := a.fund.Update(cmd.Context(), args[0], p)
	if err != nil {
		return err
	}
	fmt.Printf("  Updated %s\n", r.Timestamp)
	printRequest(r)
	return nil
}

func runTransition(ctx context.Context, ts string, to model.Status) error {
	actor := flagActor
	if actor == "" {
		actor = actorName()
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.fund.Transition(ctx, ts, to, actor)
	if err != nil {
		return err
	}
	fmt.Printf("  %s  %s\n", cli.RenderStatus(res.Request.Status), res.Request.Title)
	if res.Ledger != nil {
		fmt.Printf("  Available: %s (%s)\n",
			cli.FormatMoney(res.Ledger.RunningTotal),
			cli.FormatChange(res.Ledger.RunningTotalChange))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
