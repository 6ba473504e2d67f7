package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/radjathaher/search-ads-cli/pkg/config"
	"github.com/radjathaher/search-ads-cli/pkg/testutils"
)

// testApp builds an app whose descriptor flag points at a bundle written
// from the synthetic fixture, so discovery commands run without credentials.
func testApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvDescriptor, "")

	data, err := proto.Marshal(testutils.AdsDescriptorSet())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bundle.desc")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var out bytes.Buffer
	a := &app{
		ctx:    context.Background(),
		cli:    &CLI{Descriptor: path},
		stdout: &out,
	}
	return a, &out
}

func TestListCmdText(t *testing.T) {
	a, out := testApp(t)
	cmd := &ListCmd{}
	require.NoError(t, cmd.Run(a))

	assert.Equal(t, `google-ads-service
  mutate
  search
  search-stream
  upload-metrics
`, out.String())
}

func TestListCmdJSON(t *testing.T) {
	a, out := testApp(t)
	cmd := &ListCmd{JSON: true}
	require.NoError(t, cmd.Run(a))

	var services []struct {
		Name    string `json:"name"`
		Methods []struct {
			Name string `json:"name"`
		} `json:"methods"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &services))
	require.Len(t, services, 1)
	assert.Equal(t, "google-ads-service", services[0].Name)
	assert.Len(t, services[0].Methods, 4)
}

func TestDescribeCmd(t *testing.T) {
	a, out := testApp(t)
	cmd := &DescribeCmd{Service: "google-ads-service", Method: "search"}
	require.NoError(t, cmd.Run(a))

	text := out.String()
	assert.Contains(t, text, "google.ads.googleads.v21.services.GoogleAdsService Search")
	assert.Contains(t, text, "query (scalar:string)")
	assert.Contains(t, text, "summaryRowSetting (enum:google.ads.googleads.v21.services.SummaryRowSetting)")
}

func TestDescribeCmdUnknownMethod(t *testing.T) {
	a, _ := testApp(t)
	cmd := &DescribeCmd{Service: "google-ads-service", Method: "frobnicate"}
	err := cmd.Run(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown method")
}

func TestTreeCmd(t *testing.T) {
	a, out := testApp(t)
	cmd := &TreeCmd{}
	require.NoError(t, cmd.Run(a))

	text := out.String()
	assert.Contains(t, text, "api_version: v21")
	assert.Contains(t, text, "google-ads-service")
	assert.Contains(t, text, "  search-stream")
}

func TestTreeCmdJSON(t *testing.T) {
	a, out := testApp(t)
	cmd := &TreeCmd{JSON: true}
	require.NoError(t, cmd.Run(a))

	var tree struct {
		Version    uint32 `json:"version"`
		APIVersion string `json:"api_version"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &tree))
	assert.Equal(t, uint32(1), tree.Version)
	assert.Equal(t, "v21", tree.APIVersion)
}

func TestCustomerIDResolution(t *testing.T) {
	a, _ := testApp(t)
	t.Setenv(config.EnvCustomerID, "")

	got, err := a.customerID("123-456-7890")
	require.NoError(t, err)
	assert.Equal(t, "1234567890", got)

	_, err = a.customerID("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--customer-id or GOOGLE_ADS_CUSTOMER_ID required")
}
