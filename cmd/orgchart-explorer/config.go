package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"orgchart-explorer/pkg/genesys"
)

const (
	regionField         = "region"
	accessTokenField    = "access-token"
	clientIDField       = "client-id"
	searchField         = "search"
	depthField          = "depth"
	maxConcurrencyField = "max-concurrency"
	rpsField            = "requests-per-second"
	exportField         = "export"
)

func registerFlags(cmd *cobra.Command) {
	cmd.Flags().String(regionField, genesys.DefaultRegion, "Genesys Cloud region domain, e.g. mypurecloud.ie")
	cmd.Flags().String(accessTokenField, "", "OAuth bearer token for the API session")
	cmd.Flags().String(clientIDField, "", "OAuth client ID, used only to print the authorization URL")
	cmd.Flags().String(searchField, "", "Recenter the chart on the first user matching this name instead of yourself")
	cmd.Flags().Int(depthField, 2, "How many levels of direct reports to expand")
	cmd.Flags().Int(maxConcurrencyField, 0, "Override the scheduler's concurrent request limit")
	cmd.Flags().Float64(rpsField, 0, "Optional client-side request pacing, requests per second")
	cmd.Flags().String(exportField, "", "Write the discovered subordinates to this CSV file")
}

// loadConfig binds flags and ORGCHART_* environment variables, with a .env
// file honored when present.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("orgchart")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	return v, nil
}

func ValidateConfig(v *viper.Viper) error {
	region := v.GetString(regionField)
	if v.GetString(accessTokenField) == "" {
		return fmt.Errorf(
			"an access token is required; authorize at %s and pass the captured token via --access-token or ORGCHART_ACCESS_TOKEN",
			genesys.AuthorizeURL(region, v.GetString(clientIDField), ""),
		)
	}
	if region != "" && !genesys.KnownRegion(region) {
		return fmt.Errorf("unknown region %q; known regions: %s", region, strings.Join(genesys.Regions, ", "))
	}
	if v.GetInt(depthField) < 0 {
		return fmt.Errorf("depth must not be negative")
	}
	if v.GetInt(maxConcurrencyField) < 0 {
		return fmt.Errorf("max-concurrency must not be negative")
	}
	return nil
}
