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

// Package gaql runs GAQL searches through GoogleAdsService in either of two
// retrieval modes: a single server-streaming call whose chunks are
// concatenated, or the unary paginated method with explicit page tokens.
// The query text itself is opaque; it passes through as a string field.
package gaql

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/radjathaher/search-ads-cli/pkg/auth"
	"github.com/radjathaher/search-ads-cli/pkg/client"
	"github.com/radjathaher/search-ads-cli/pkg/descriptor"
	"github.com/radjathaher/search-ads-cli/pkg/dynjson"
)

const (
	serviceName  = "google-ads-service"
	searchMethod = "search"
	streamMethod = "search-stream"
)

// Args is one logical search: a customer id plus query text, and the knobs
// selecting the retrieval mode and request options.
type Args struct {
	CustomerID string
	Query      string

	// UseSearch selects the unary paginated method instead of SearchStream.
	UseSearch bool
	PageSize  int64
	PageToken string
	// FollowPages repeats the unary call with the returned token until the
	// server reports no more pages. Without it, NextPageToken is surfaced
	// to the caller instead of silently truncating.
	FollowPages bool

	ValidateOnly            bool
	SummaryRowSetting       string
	ReturnTotalResultsCount bool

	// Raw returns whole response payloads instead of flattened result rows.
	Raw bool
}

// Result is the normalized output of either mode: an ordered row sequence
// (server order, within and across pages/chunks) and, in unary mode, the
// continuation token when paging was not followed to the end.
type Result struct {
	Rows          []json.RawMessage
	NextPageToken string
}

// Searcher composes the registry, codec, credential manager, and dispatcher
// for the two search modes.
type Searcher struct {
	reg  *descriptor.Registry
	cli  *client.Client
	auth *auth.Manager
}

func New(reg *descriptor.Registry, cli *client.Client, mgr *auth.Manager) *Searcher {
	return &Searcher{reg: reg, cli: cli, auth: mgr}
}

// Search runs the query in the mode selected by args.
func (s *Searcher) Search(ctx context.Context, args Args) (*Result, error) {
	if args.UseSearch {
		return s.searchPaged(ctx, args)
	}
	return s.searchStream(ctx, args)
}

func (s *Searcher) searchStream(ctx context.Context, args Args) (*Result, error) {
	method, err := s.reg.Method(serviceName, streamMethod)
	if err != nil {
		return nil, err
	}
	req, err := dynjson.DecodeValue(method.Input(), buildRequest(args, args.PageToken))
	if err != nil {
		return nil, err
	}
	msgs, err := s.cli.Invoke(ctx, method, req, s.auth.CallHeaders(args.CustomerID))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, msg := range msgs {
		if err := appendRows(res, msg, args.Raw); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (s *Searcher) searchPaged(ctx context.Context, args Args) (*Result, error) {
	method, err := s.reg.Method(serviceName, searchMethod)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	token := args.PageToken
	for {
		req, err := dynjson.DecodeValue(method.Input(), buildRequest(args, token))
		if err != nil {
			return nil, err
		}
		msgs, err := s.cli.Invoke(ctx, method, req, s.auth.CallHeaders(args.CustomerID))
		if err != nil {
			return nil, err
		}
		msg := msgs[0]
		if err := appendRows(res, msg, args.Raw); err != nil {
			return nil, err
		}
		token = nextPageToken(msg)
		if token == "" || !args.FollowPages {
			res.NextPageToken = token
			return res, nil
		}
	}
}

// StreamRows runs the streaming mode but emits each row (or raw chunk) as it
// arrives instead of aggregating, for line-oriented output. Rows emitted
// before a mid-stream failure have already been flushed by the caller; the
// error still fails the invocation.
func (s *Searcher) StreamRows(ctx context.Context, args Args, emit func(json.RawMessage) error) error {
	method, err := s.reg.Method(serviceName, streamMethod)
	if err != nil {
		return err
	}
	req, err := dynjson.DecodeValue(method.Input(), buildRequest(args, args.PageToken))
	if err != nil {
		return err
	}
	stream, err := s.cli.OpenStream(ctx, method, req, s.auth.CallHeaders(args.CustomerID))
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		chunk := &Result{}
		if err := appendRows(chunk, msg, args.Raw); err != nil {
			return err
		}
		for _, row := range chunk.Rows {
			if err := emit(row); err != nil {
				return err
			}
		}
	}
}

// buildRequest shapes the request body by canonical JSON field names; the
// codec validates it against the method's input descriptor like any other
// payload.
func buildRequest(args Args, pageToken string) map[string]any {
	body := map[string]any{
		"customerId": args.CustomerID,
		"query":      args.Query,
	}
	if args.UseSearch {
		if args.PageSize > 0 {
			body["pageSize"] = json.Number(strconv.FormatInt(args.PageSize, 10))
		}
		if pageToken != "" {
			body["pageToken"] = pageToken
		}
		if args.ReturnTotalResultsCount {
			body["returnTotalResultsCount"] = true
		}
	}
	if args.ValidateOnly {
		body["validateOnly"] = true
	}
	if args.SummaryRowSetting != "" {
		body["summaryRowSetting"] = args.SummaryRowSetting
	}
	return body
}

func appendRows(res *Result, msg *dynamicpb.Message, raw bool) error {
	if raw {
		b, err := dynjson.Encode(msg)
		if err != nil {
			return err
		}
		res.Rows = append(res.Rows, b)
		return nil
	}
	fd := msg.Descriptor().Fields().ByName("results")
	if fd == nil || !fd.IsList() {
		return nil
	}
	lst := msg.Get(fd).List()
	for i := 0; i < lst.Len(); i++ {
		b, err := dynjson.Encode(lst.Get(i).Message())
		if err != nil {
			return err
		}
		res.Rows = append(res.Rows, b)
	}
	return nil
}

func nextPageToken(msg *dynamicpb.Message) string {
	fd := msg.Descriptor().Fields().ByName("next_page_token")
	if fd == nil || fd.Kind() != protoreflect.StringKind || !msg.Has(fd) {
		return ""
	}
	return msg.Get(fd).String()
}
