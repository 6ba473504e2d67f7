package descriptor_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/radjathaher/search-ads-cli/pkg/descriptor"
	"github.com/radjathaher/search-ads-cli/pkg/testutils"
)

func TestLoadFromFile(t *testing.T) {
	set := testutils.AdsDescriptorSet()
	data, err := proto.Marshal(set)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bundle.desc")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	reg, err := descriptor.Load(path)
	require.NoError(t, err)
	assert.Len(t, reg.Services(), 1)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := descriptor.Load(filepath.Join(t.TempDir(), "nope.desc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read descriptor bundle")
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.desc")
	require.NoError(t, os.WriteFile(path, []byte("not a descriptor set at all"), 0o644))
	_, err := descriptor.Load(path)
	require.Error(t, err)
}

func TestNewRejectsEmptySet(t *testing.T) {
	_, err := descriptor.New(&descriptorpb.FileDescriptorSet{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestNewRejectsBundleWithoutAdsServices(t *testing.T) {
	set := &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{{
			Name:    proto.String("other.proto"),
			Package: proto.String("example.other"),
			Syntax:  proto.String("proto3"),
		}},
	}
	_, err := descriptor.New(set)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Google Ads services")
}

func TestServiceNameNormalization(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	for _, name := range []string{
		"google-ads-service",
		"GoogleAdsService",
		"googleadsservice",
		"GOOGLE_ADS_SERVICE",
		"google.ads.googleads.v21.services.GoogleAdsService",
	} {
		sd, err := reg.Service(name)
		require.NoError(t, err, "spelling %q", name)
		assert.Equal(t, "GoogleAdsService", string(sd.Name()))
	}
}

func TestServiceNotFound(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	_, err := reg.Service("campaign-service")
	require.Error(t, err)
	var nf *descriptor.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "service", nf.Kind)
	assert.Contains(t, err.Error(), "campaign-service")
}

func TestMethodNormalization(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	for _, name := range []string{"search-stream", "SearchStream", "searchstream", "search_stream"} {
		md, err := reg.Method("google-ads-service", name)
		require.NoError(t, err, "spelling %q", name)
		assert.Equal(t, "SearchStream", string(md.Name()))
		assert.True(t, md.IsStreamingServer())
	}
}

func TestMethodNotFound(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	_, err := reg.Method("google-ads-service", "frobnicate")
	var nf *descriptor.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "method", nf.Kind)
}

func TestMessageType(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	md, err := reg.MessageType("google.ads.googleads.v21.services.SearchGoogleAdsRequest")
	require.NoError(t, err)
	assert.NotNil(t, md.Fields().ByName("query"))

	_, err = reg.MessageType("google.ads.googleads.v21.services.NoSuchMessage")
	var nf *descriptor.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "type", nf.Kind)
}

func TestServiceForType(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	sd, ok := reg.ServiceForType("google.ads.googleads.v21.services.SearchGoogleAdsStreamResponse")
	require.True(t, ok)
	assert.Equal(t, "GoogleAdsService", string(sd.Name()))

	_, ok = reg.ServiceForType("google.ads.googleads.v21.common.KitchenSink")
	assert.False(t, ok)
}

func TestTree(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	tree := reg.Tree()

	assert.Equal(t, uint32(1), tree.Version)
	assert.Equal(t, "v21", tree.APIVersion)
	require.Len(t, tree.Services, 1)

	svc := tree.Services[0]
	assert.Equal(t, "google-ads-service", svc.Name)
	assert.Equal(t, "google.ads.googleads.v21.services.GoogleAdsService", svc.FullName)

	var names []string
	for _, m := range svc.Methods {
		names = append(names, m.Name)
	}
	// Kebab-case and sorted.
	assert.Equal(t, []string{"mutate", "search", "search-stream", "upload-metrics"}, names)

	byName := map[string]descriptor.MethodDef{}
	for _, m := range svc.Methods {
		byName[m.Name] = m
	}
	assert.True(t, byName["search-stream"].ServerStreaming)
	assert.False(t, byName["search-stream"].ClientStreaming)
	assert.True(t, byName["upload-metrics"].ClientStreaming)
	assert.Equal(t, "google.ads.googleads.v21.services.SearchGoogleAdsRequest", byName["search"].InputType)
	assert.Equal(t, "google.ads.googleads.v21.services.GoogleAdsService/Search", byName["search"].FullName)
}

func TestDescribe(t *testing.T) {
	reg := testutils.AdsRegistry(t)
	desc, err := reg.Describe("google-ads-service", "search")
	require.NoError(t, err)

	assert.Equal(t, "google.ads.googleads.v21.services.GoogleAdsService", desc.Service)
	assert.Equal(t, "Search", desc.Method)
	assert.Equal(t, "google.ads.googleads.v21.services.SearchGoogleAdsRequest", desc.InputType)

	byName := map[string]descriptor.FieldDef{}
	for _, f := range desc.Fields {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "query")
	assert.Equal(t, "scalar:string", byName["query"].Kind)
	require.Contains(t, byName, "summary_row_setting")
	assert.Equal(t, "enum:google.ads.googleads.v21.services.SummaryRowSetting", byName["summary_row_setting"].Kind)
	assert.Equal(t, "summaryRowSetting", byName["summary_row_setting"].JSONName)
}

func TestToKebab(t *testing.T) {
	tests := []struct{ in, want string }{
		{"GoogleAdsService", "google-ads-service"},
		{"SearchStream", "search-stream"},
		{"Search", "search"},
		{"snake_case_name", "snake-case-name"},
		{"already-kebab", "already-kebab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, descriptor.ToKebab(tt.in), "input %q", tt.in)
	}
}
