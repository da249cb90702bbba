package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"orgchart-explorer/pkg/genesys"
	"orgchart-explorer/pkg/orgchart"
	"orgchart-explorer/pkg/scheduler"
)

var version = "dev"

func main() {
	cmd := &cobra.Command{
		Use:           "orgchart-explorer",
		Short:         "Explore a Genesys Cloud reporting hierarchy from the terminal",
		Version:       version,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	registerFlags(cmd)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	l, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()
	ctx := ctxzap.ToContext(context.Background(), l)

	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := ValidateConfig(v); err != nil {
		return err
	}

	client, err := newClient(ctx, v)
	if err != nil {
		l.Error("orgchart-explorer: error creating client", zap.Error(err))
		return err
	}

	me, err := client.Me(ctx)
	if err != nil {
		l.Error("orgchart-explorer: error checking authorization", zap.Error(err))
		return err
	}
	if me == nil {
		return selfFetchFailed(os.Stderr, client, v.GetString(clientIDField))
	}

	target := me
	if term := v.GetString(searchField); term != "" {
		res, err := client.SearchUsers(ctx, term)
		if err != nil {
			return err
		}
		if res == nil || len(res.Results) == 0 {
			fmt.Fprintf(os.Stdout, "No users found for %q\n", term)
			return nil
		}
		target = res.Results[0]
	}

	explorer := orgchart.New(client)
	if err := explorer.Recenter(ctx, target); err != nil {
		return err
	}
	if err := explorer.ExpandToDepth(ctx, v.GetInt(depthField)); err != nil {
		return err
	}

	render(os.Stdout, me, explorer)

	if limited, retryAfter := client.Scheduler().RateLimitState(); limited {
		fmt.Fprintf(os.Stderr, "The account is rate limited; please be patient. Next retry window: %s.\n", retryAfter)
	}

	if path := v.GetString(exportField); path != "" {
		if err := exportRoster(explorer, path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Exported %d subordinates to %s\n", len(explorer.Subordinates()), path)
	}

	return nil
}

// selfFetchFailed explains an absent self user: only a non-429 failure means
// the token is bad. A session that merely exhausted its rate-limit retries
// gets the advisory banner, not the authorization call to action.
func selfFetchFailed(w io.Writer, client *genesys.Client, clientID string) error {
	if client.AuthFailed() {
		region := client.Region()
		fmt.Fprintf(w, "Not authorized in region %q. Visit %s to authorize, then retry with the new token.\n",
			region, genesys.AuthorizeURL(region, clientID, ""))
		return fmt.Errorf("orgchart-explorer: not authorized")
	}

	_, retryAfter := client.Scheduler().RateLimitState()
	fmt.Fprintf(w, "The account is rate limited; please be patient and retry in %s.\n", retryAfter)
	return fmt.Errorf("orgchart-explorer: rate limited")
}

func newClient(ctx context.Context, v *viper.Viper) (*genesys.Client, error) {
	var schedOpts []scheduler.Option
	if n := v.GetInt(maxConcurrencyField); n > 0 {
		schedOpts = append(schedOpts, scheduler.WithMaxConcurrency(n))
	}
	if rps := v.GetFloat64(rpsField); rps > 0 {
		schedOpts = append(schedOpts, scheduler.WithRequestsPerSecond(rps, 1))
	}

	return genesys.NewClient(ctx,
		v.GetString(regionField),
		v.GetString(accessTokenField),
		genesys.WithScheduler(scheduler.New(schedOpts...)),
	)
}

func render(w io.Writer, me *genesys.User, explorer *orgchart.Explorer) {
	fmt.Fprintf(w, "Welcome %s!\n\n", displayName(me))

	chain := explorer.SuperiorChain()
	if len(chain) > 0 {
		fmt.Fprintln(w, "Superiors:")
		for i, u := range chain {
			fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", i), userLine(u))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Org chart:")
	printNode(w, explorer.Root(), 0)
}

func printNode(w io.Writer, node *orgchart.Node, indent int) {
	if node == nil {
		return
	}
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", indent), userLine(node.User))
	for _, child := range node.Reports {
		printNode(w, child, indent+1)
	}
}

func userLine(u *genesys.User) string {
	line := displayName(u)
	if u.Title != "" {
		line += " - " + u.Title
	}
	if u.Department != "" {
		line += " (" + u.Department + ")"
	}
	return line
}

func displayName(u *genesys.User) string {
	if u == nil {
		return "Unknown User"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.ID != "" {
		return u.ID
	}
	return "Unknown User"
}

func exportRoster(explorer *orgchart.Explorer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("orgchart-explorer: error creating export file: %w", err)
	}
	defer f.Close()

	if err := explorer.ExportRosterCSV(f); err != nil {
		return err
	}
	return f.Close()
}
