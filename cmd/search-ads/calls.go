package main

import (
	"encoding/json"

	"github.com/radjathaher/search-ads-cli/pkg/config"
	"github.com/radjathaher/search-ads-cli/pkg/gaql"
	"github.com/radjathaher/search-ads-cli/pkg/invoke"
)

// GaqlCmd groups the GAQL commands.
type GaqlCmd struct {
	Search GaqlSearchCmd `cmd:"" help:"Search with GAQL."`
}

// GaqlSearchCmd runs one GAQL query in streaming or paginated mode.
type GaqlSearchCmd struct {
	CustomerID string `help:"Customer id (env: GOOGLE_ADS_CUSTOMER_ID)." placeholder:"ID"`
	Query      string `required:"" help:"GAQL query." placeholder:"GAQL"`

	UseSearch               bool   `help:"Use Search (unary) instead of SearchStream."`
	PageSize                int64  `help:"Page size for Search."`
	PageToken               string `help:"Page token for Search." placeholder:"TOKEN"`
	FollowPages             bool   `help:"Keep requesting pages until the result set is exhausted (Search only)."`
	ValidateOnly            bool   `help:"Validate only."`
	SummaryRowSetting       string `help:"Summary row setting enum." placeholder:"SETTING"`
	ReturnTotalResultsCount bool   `help:"Return total results count."`
}

// pagedOutput is the unary mode's result shape: the rows plus the
// continuation token when paging stopped before the end.
type pagedOutput struct {
	Results       []json.RawMessage `json:"results"`
	NextPageToken string            `json:"nextPageToken,omitempty"`
}

func (c *GaqlSearchCmd) Run(a *app) error {
	cid, err := a.customerID(c.CustomerID)
	if err != nil {
		return err
	}
	s, err := a.searcher()
	if err != nil {
		return err
	}
	args := gaql.Args{
		CustomerID:              cid,
		Query:                   c.Query,
		UseSearch:               c.UseSearch,
		PageSize:                c.PageSize,
		PageToken:               c.PageToken,
		FollowPages:             c.FollowPages,
		ValidateOnly:            c.ValidateOnly,
		SummaryRowSetting:       c.SummaryRowSetting,
		ReturnTotalResultsCount: c.ReturnTotalResultsCount,
		Raw:                     a.cli.RawPayloads,
	}

	if a.cli.JSONL && !c.UseSearch {
		return s.StreamRows(a.ctx, args, func(row json.RawMessage) error {
			return writeLine(a.stdout, row)
		})
	}

	res, err := s.Search(a.ctx, args)
	if err != nil {
		return err
	}

	if a.cli.JSONL {
		for _, row := range res.Rows {
			if err := writeLine(a.stdout, row); err != nil {
				return err
			}
		}
		return nil
	}

	if c.UseSearch {
		if a.cli.RawPayloads {
			if len(res.Rows) == 1 {
				return writeRaw(a.stdout, res.Rows[0], a.cli.Pretty)
			}
			return writeRaw(a.stdout, rowArray(res.Rows), a.cli.Pretty)
		}
		out := pagedOutput{Results: res.Rows, NextPageToken: res.NextPageToken}
		if out.Results == nil {
			out.Results = []json.RawMessage{}
		}
		return writeValue(a.stdout, out, a.cli.Pretty)
	}
	return writeRaw(a.stdout, rowArray(res.Rows), a.cli.Pretty)
}

// MutateCmd sends mutate operations through GoogleAdsService.Mutate.
type MutateCmd struct {
	CustomerID          string `help:"Customer id (env: GOOGLE_ADS_CUSTOMER_ID)." placeholder:"ID"`
	Ops                 string `help:"MutateOperations array (JSON or @file)." placeholder:"JSON" xor:"payload"`
	Body                string `help:"Full request body JSON (or @file)." placeholder:"JSON" xor:"payload"`
	PartialFailure      bool   `help:"Enable partial failure."`
	ValidateOnly        bool   `help:"Validate only."`
	ResponseContentType string `help:"Response content type enum." placeholder:"TYPE"`
}

func (c *MutateCmd) Run(a *app) error {
	cid, err := a.customerID(c.CustomerID)
	if err != nil {
		return err
	}
	f, err := a.facade()
	if err != nil {
		return err
	}
	args := invoke.MutateArgs{
		CustomerID:          cid,
		PartialFailure:      c.PartialFailure,
		ValidateOnly:        c.ValidateOnly,
		ResponseContentType: c.ResponseContentType,
	}
	if c.Ops != "" {
		if args.Ops, err = config.ReadJSONInput(c.Ops); err != nil {
			return err
		}
	}
	if c.Body != "" {
		if args.Body, err = config.ReadJSONInput(c.Body); err != nil {
			return err
		}
	}
	resp, err := f.Mutate(a.ctx, args)
	if err != nil {
		return err
	}
	return writeRaw(a.stdout, resp, a.cli.Pretty)
}

// RawCmd invokes an arbitrary service/method with an explicit JSON body.
type RawCmd struct {
	Service string `required:"" help:"Service name (e.g. google-ads-service)." placeholder:"SERVICE"`
	Method  string `required:"" help:"Method name (e.g. search-stream)." placeholder:"METHOD"`
	Body    string `required:"" help:"Request body JSON (or @file)." placeholder:"JSON"`
}

func (c *RawCmd) Run(a *app) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	md, err := reg.Method(c.Service, c.Method)
	if err != nil {
		return err
	}
	body, err := config.ReadJSONInput(c.Body)
	if err != nil {
		return err
	}
	f, err := a.facade()
	if err != nil {
		return err
	}

	if md.IsStreamingServer() && !md.IsStreamingClient() && a.cli.JSONL {
		return f.CallStream(a.ctx, c.Service, c.Method, body, func(msg json.RawMessage) error {
			return writeLine(a.stdout, msg)
		})
	}

	res, err := f.Call(a.ctx, c.Service, c.Method, body)
	if err != nil {
		return err
	}
	if res.Streaming {
		return writeRaw(a.stdout, rowArray(res.Messages), a.cli.Pretty)
	}
	return writeRaw(a.stdout, res.Messages[0], a.cli.Pretty)
}
