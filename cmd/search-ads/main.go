// Copyright 2025 Radja Thaher
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command search-ads is a dynamic gRPC client for the Google Ads API. It
// loads a serialized descriptor bundle at runtime and resolves services,
// methods, and message types by name, so any API method can be called from
// JSON without generated stubs.
//
// Usage:
//
//	search-ads gaql search --customer-id 123-456-7890 --query "SELECT campaign.id FROM campaign"
//	search-ads mutate --customer-id 1234567890 --ops @operations.json
//	search-ads raw --service google-ads-service --method search-stream --body '{...}'
//	search-ads list
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/radjathaher/search-ads-cli/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Gaql     GaqlCmd     `cmd:"" help:"GAQL search."`
	Mutate   MutateCmd   `cmd:"" help:"Mutate resources via GoogleAdsService.Mutate."`
	Raw      RawCmd      `cmd:"" help:"Raw gRPC call using a JSON body."`
	List     ListCmd     `cmd:"" help:"List services and methods."`
	Describe DescribeCmd `cmd:"" help:"Describe a service method."`
	Tree     TreeCmd     `cmd:"" help:"Show the full command tree."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Pretty      bool `help:"Pretty-print JSON output."`
	JSONL       bool `name:"jsonl" help:"Emit JSON lines for streaming responses."`
	RawPayloads bool `name:"raw" help:"Return raw response payloads."`

	DeveloperToken  string `help:"Developer token (env: GOOGLE_ADS_DEVELOPER_TOKEN)." placeholder:"TOKEN"`
	AccessToken     string `help:"Access token (env: GOOGLE_ADS_ACCESS_TOKEN)." placeholder:"TOKEN"`
	ClientID        string `help:"OAuth client id (env: GOOGLE_ADS_CLIENT_ID)." placeholder:"ID"`
	ClientSecret    string `help:"OAuth client secret (env: GOOGLE_ADS_CLIENT_SECRET)." placeholder:"SECRET"`
	RefreshToken    string `help:"OAuth refresh token (env: GOOGLE_ADS_REFRESH_TOKEN)." placeholder:"TOKEN"`
	LoginCustomerID string `help:"Manager account id (env: GOOGLE_ADS_LOGIN_CUSTOMER_ID)." placeholder:"ID"`
	Endpoint        string `help:"API endpoint (env: GOOGLE_ADS_ENDPOINT)." placeholder:"URL"`
	Timeout         int    `help:"Request timeout in seconds."`
	Descriptor      string `help:"Path to the descriptor bundle (env: GOOGLE_ADS_DESCRIPTOR)." type:"path"`
	Config          string `short:"c" help:"Path to config file (env: GOOGLE_ADS_CONFIG)." type:"path"`
	Debug           bool   `help:"Enable debug logging."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Fprintf(a.stdout, "search-ads %s\n", version)
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("search-ads"),
		kong.Description("Google Ads API CLI (gRPC, dynamic)."),
		kong.UsageOnError(),
	)

	logger.Setup(cli.Debug)

	// An interrupt aborts the in-flight call through context cancellation;
	// aggregated streaming output gathered before the interrupt is
	// discarded rather than partially flushed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{ctx: ctx, cli: &cli, stdout: os.Stdout}
	defer a.close()

	if err := kctx.Run(a); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
