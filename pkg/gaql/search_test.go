package gaql_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/radjathaher/search-ads-cli/pkg/dynjson"
	"github.com/radjathaher/search-ads-cli/pkg/gaql"
	"github.com/radjathaher/search-ads-cli/pkg/testutils"
)

func newFixture(t *testing.T) (*testutils.FakeAdsServer, *gaql.Searcher, func(name, body string) *dynamicpb.Message) {
	t.Helper()
	reg := testutils.AdsRegistry(t)
	srv := testutils.NewFakeAdsServer(t, reg)
	mgr := testutils.StaticManager(t)
	cl := srv.Client(t, mgr)
	s := gaql.New(reg, cl, mgr)

	mk := func(name, body string) *dynamicpb.Message {
		md, err := reg.MessageType("google.ads.googleads.v21.services." + name)
		require.NoError(t, err)
		msg, err := dynjson.Decode(md, []byte(body))
		require.NoError(t, err)
		return msg
	}
	return srv, s, mk
}

func rowIDs(t *testing.T, rows []json.RawMessage) []string {
	t.Helper()
	var ids []string
	for _, row := range rows {
		var parsed struct {
			Campaign struct {
				ID string `json:"id"`
			} `json:"campaign"`
		}
		require.NoError(t, json.Unmarshal(row, &parsed))
		ids = append(ids, parsed.Campaign.ID)
	}
	return ids
}

func TestStreamModeConcatenatesChunks(t *testing.T) {
	srv, s, mk := newFixture(t)

	srv.Handle(t, "google-ads-service", "search-stream", func(req *dynamicpb.Message, send func(*dynamicpb.Message) error) error {
		body, err := dynjson.Encode(req)
		if err != nil {
			return err
		}
		assert.JSONEq(t, `{"customerId":"123","query":"SELECT campaign.id FROM campaign"}`, string(body))

		if err := send(mk("SearchGoogleAdsStreamResponse", `{"results":[{"campaign":{"id":"1"}},{"campaign":{"id":"2"}}]}`)); err != nil {
			return err
		}
		return send(mk("SearchGoogleAdsStreamResponse", `{"results":[{"campaign":{"id":"3"}}]}`))
	})

	res, err := s.Search(context.Background(), gaql.Args{
		CustomerID: "123",
		Query:      "SELECT campaign.id FROM campaign",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, rowIDs(t, res.Rows))
	assert.Empty(t, res.NextPageToken)
}

func TestStreamModeRawKeepsWholePayloads(t *testing.T) {
	srv, s, mk := newFixture(t)

	srv.Handle(t, "google-ads-service", "search-stream", func(_ *dynamicpb.Message, send func(*dynamicpb.Message) error) error {
		return send(mk("SearchGoogleAdsStreamResponse", `{"results":[{"campaign":{"id":"1"}}],"requestId":"abc"}`))
	})

	res, err := s.Search(context.Background(), gaql.Args{
		CustomerID: "123",
		Query:      "SELECT campaign.id FROM campaign",
		Raw:        true,
	})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.JSONEq(t, `{"results":[{"campaign":{"id":"1"}}],"requestId":"abc"}`, string(res.Rows[0]))
}

func TestUnaryModeSurfacesNextPageToken(t *testing.T) {
	srv, s, mk := newFixture(t)

	srv.Handle(t, "google-ads-service", "search", func(req *dynamicpb.Message, send func(*dynamicpb.Message) error) error {
		body, err := dynjson.Encode(req)
		if err != nil {
			return err
		}
		assert.JSONEq(t, `{"customerId":"123","query":"q","pageSize":50}`, string(body))
		return send(mk("SearchGoogleAdsResponse", `{"results":[{"campaign":{"id":"1"}}],"nextPageToken":"page-2"}`))
	})

	res, err := s.Search(context.Background(), gaql.Args{
		CustomerID: "123",
		Query:      "q",
		UseSearch:  true,
		PageSize:   50,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, rowIDs(t, res.Rows))
	assert.Equal(t, "page-2", res.NextPageToken)
}

func TestUnaryModeFollowPages(t *testing.T) {
	srv, s, mk := newFixture(t)

	var (
		mu     sync.Mutex
		tokens []string
	)
	srv.Handle(t, "google-ads-service", "search", func(req *dynamicpb.Message, send func(*dynamicpb.Message) error) error {
		tokenField := req.Descriptor().Fields().ByName("page_token")
		token := req.Get(tokenField).String()
		mu.Lock()
		tokens = append(tokens, token)
		mu.Unlock()
		if token == "" {
			return send(mk("SearchGoogleAdsResponse", `{"results":[{"campaign":{"id":"1"}}],"nextPageToken":"page-2"}`))
		}
		return send(mk("SearchGoogleAdsResponse", `{"results":[{"campaign":{"id":"2"}}]}`))
	})

	res, err := s.Search(context.Background(), gaql.Args{
		CustomerID:  "123",
		Query:       "q",
		UseSearch:   true,
		FollowPages: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, rowIDs(t, res.Rows))
	assert.Empty(t, res.NextPageToken)
	// The second request carried the token from the first response.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "page-2"}, tokens)
}

func TestRequestOptions(t *testing.T) {
	srv, s, mk := newFixture(t)

	srv.Handle(t, "google-ads-service", "search-stream", func(req *dynamicpb.Message, send func(*dynamicpb.Message) error) error {
		body, err := dynjson.Encode(req)
		if err != nil {
			return err
		}
		assert.JSONEq(t, `{
			"customerId": "123",
			"query": "q",
			"validateOnly": true,
			"summaryRowSetting": "SUMMARY_ROW_WITH_RESULTS"
		}`, string(body))
		return send(mk("SearchGoogleAdsStreamResponse", `{}`))
	})

	_, err := s.Search(context.Background(), gaql.Args{
		CustomerID:        "123",
		Query:             "q",
		ValidateOnly:      true,
		SummaryRowSetting: "SUMMARY_ROW_WITH_RESULTS",
	})
	require.NoError(t, err)
}

func TestInvalidSummaryRowSettingFailsBeforeWire(t *testing.T) {
	srv, s, _ := newFixture(t)

	var calls int
	srv.Handle(t, "google-ads-service", "search-stream", func(_ *dynamicpb.Message, _ func(*dynamicpb.Message) error) error {
		calls++
		return nil
	})

	_, err := s.Search(context.Background(), gaql.Args{
		CustomerID:        "123",
		Query:             "q",
		SummaryRowSetting: "not-a-setting",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynjson.ErrInvalidEnum))
	assert.Zero(t, calls)
}

func TestServerErrorPropagates(t *testing.T) {
	srv, s, _ := newFixture(t)

	srv.Handle(t, "google-ads-service", "search-stream", func(_ *dynamicpb.Message, _ func(*dynamicpb.Message) error) error {
		return status.Error(codes.InvalidArgument, "bad GAQL")
	})

	_, err := s.Search(context.Background(), gaql.Args{CustomerID: "123", Query: "broken"})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStreamRowsEmitsIncrementally(t *testing.T) {
	srv, s, mk := newFixture(t)

	srv.Handle(t, "google-ads-service", "search-stream", func(_ *dynamicpb.Message, send func(*dynamicpb.Message) error) error {
		if err := send(mk("SearchGoogleAdsStreamResponse", `{"results":[{"campaign":{"id":"1"}},{"campaign":{"id":"2"}}]}`)); err != nil {
			return err
		}
		return send(mk("SearchGoogleAdsStreamResponse", `{"results":[{"campaign":{"id":"3"}}]}`))
	})

	var rows []json.RawMessage
	err := s.StreamRows(context.Background(), gaql.Args{CustomerID: "123", Query: "q"}, func(row json.RawMessage) error {
		rows = append(rows, row)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, rowIDs(t, rows))
}
