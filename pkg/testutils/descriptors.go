// Package testutils provides shared test fixtures: a synthetic Google Ads
// descriptor set and an in-process fake API server, so no test depends on a
// real schema bundle or network.
package testutils

import (
	"testing"

	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/radjathaher/search-ads-cli/pkg/descriptor"
)

const (
	servicesPkg  = "google.ads.googleads.v21.services"
	commonPkg    = "google.ads.googleads.v21.common"
	servicesPath = "google/ads/googleads/v21/services/google_ads_service.proto"
	commonPath   = "google/ads/googleads/v21/common/types.proto"
	fieldMaskDep = "google/protobuf/field_mask.proto"
)

// AdsRegistry builds a Registry over the synthetic descriptor set.
func AdsRegistry(t *testing.T) *descriptor.Registry {
	t.Helper()
	reg, err := descriptor.New(AdsDescriptorSet())
	if err != nil {
		t.Fatalf("build test registry: %v", err)
	}
	return reg
}

// AdsDescriptorSet returns a miniature Google Ads schema: GoogleAdsService
// with Search (unary), SearchStream (server streaming), and Mutate, plus a
// common package exercising every field shape the codec handles.
func AdsDescriptorSet() *descriptorpb.FileDescriptorSet {
	return &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{
			protodesc.ToFileDescriptorProto(fieldmaskpb.File_google_protobuf_field_mask_proto),
			commonFile(),
			servicesFile(),
		},
	}
}

func commonFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:       strPtr(commonPath),
		Package:    strPtr(commonPkg),
		Syntax:     strPtr("proto3"),
		Dependency: []string{fieldMaskDep},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enum("Color", "COLOR_UNSPECIFIED", "RED", "BLUE"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: strPtr("Child"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			kitchenSink(),
		},
	}
}

// kitchenSink covers scalars, 64-bit ints, bytes, enums, nested and
// repeated messages, both map shapes, a real oneof, and a field mask.
func kitchenSink() *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: strPtr("KitchenSink"),
		Field: []*descriptorpb.FieldDescriptorProto{
			scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
			scalarField("ref", 2, descriptorpb.FieldDescriptorProto_TYPE_UINT64),
			scalarField("score", 3, descriptorpb.FieldDescriptorProto_TYPE_FLOAT),
			scalarField("ratio", 4, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
			scalarField("active", 5, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
			scalarField("name", 6, descriptorpb.FieldDescriptorProto_TYPE_STRING),
			scalarField("payload", 7, descriptorpb.FieldDescriptorProto_TYPE_BYTES),
			enumField("color", 8, "."+commonPkg+".Color"),
			repeated(scalarField("tags", 9, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
			repeated(scalarField("ids", 10, descriptorpb.FieldDescriptorProto_TYPE_INT64)),
			repeated(messageField("counts", 11, "."+commonPkg+".KitchenSink.CountsEntry")),
			repeated(messageField("children", 12, "."+commonPkg+".KitchenSink.ChildrenEntry")),
			inOneof(scalarField("campaign_id", 13, descriptorpb.FieldDescriptorProto_TYPE_INT64), 0),
			inOneof(scalarField("campaign_name", 14, descriptorpb.FieldDescriptorProto_TYPE_STRING), 0),
			messageField("mask", 15, ".google.protobuf.FieldMask"),
			messageField("child", 16, "."+commonPkg+".Child"),
			scalarField("small", 17, descriptorpb.FieldDescriptorProto_TYPE_INT32),
			scalarField("usmall", 18, descriptorpb.FieldDescriptorProto_TYPE_UINT32),
		},
		NestedType: []*descriptorpb.DescriptorProto{
			mapEntry("CountsEntry",
				scalarField("key", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				scalarField("value", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64)),
			mapEntry("ChildrenEntry",
				scalarField("key", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32),
				messageField("value", 2, "."+commonPkg+".Child")),
		},
		OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: strPtr("target")}},
	}
}

func servicesFile() *descriptorpb.FileDescriptorProto {
	rowType := "." + servicesPkg + ".GoogleAdsRow"
	return &descriptorpb.FileDescriptorProto{
		Name:       strPtr(servicesPath),
		Package:    strPtr(servicesPkg),
		Syntax:     strPtr("proto3"),
		Dependency: []string{fieldMaskDep},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enum("CampaignStatus", "UNSPECIFIED", "UNKNOWN", "ENABLED", "PAUSED", "REMOVED"),
			enum("SummaryRowSetting", "SUMMARY_ROW_SETTING_UNSPECIFIED", "UNKNOWN_SUMMARY_ROW", "NO_SUMMARY_ROW", "SUMMARY_ROW_WITH_RESULTS"),
			enum("ResponseContentType", "RESPONSE_CONTENT_TYPE_UNSPECIFIED", "RESOURCE_NAME_ONLY", "MUTABLE_RESOURCE"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: strPtr("Campaign"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					scalarField("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					enumField("status", 3, "."+servicesPkg+".CampaignStatus"),
					repeated(scalarField("labels", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING)),
				},
			},
			{
				Name: strPtr("AdGroup"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("id", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					scalarField("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
				},
			},
			{
				Name: strPtr("Metrics"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("impressions", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					scalarField("clicks", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					scalarField("ctr", 3, descriptorpb.FieldDescriptorProto_TYPE_DOUBLE),
				},
			},
			{
				Name: strPtr("GoogleAdsRow"),
				Field: []*descriptorpb.FieldDescriptorProto{
					messageField("campaign", 1, "."+servicesPkg+".Campaign"),
					messageField("ad_group", 2, "."+servicesPkg+".AdGroup"),
					messageField("metrics", 3, "."+servicesPkg+".Metrics"),
				},
			},
			{
				Name: strPtr("SearchGoogleAdsRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("customer_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("query", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("page_token", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("page_size", 4, descriptorpb.FieldDescriptorProto_TYPE_INT32),
					scalarField("validate_only", 5, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					scalarField("return_total_results_count", 7, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					enumField("summary_row_setting", 8, "."+servicesPkg+".SummaryRowSetting"),
				},
			},
			{
				Name: strPtr("SearchGoogleAdsResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeated(messageField("results", 1, rowType)),
					scalarField("next_page_token", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("total_results_count", 3, descriptorpb.FieldDescriptorProto_TYPE_INT64),
					messageField("summary_row", 5, rowType),
				},
			},
			{
				Name: strPtr("SearchGoogleAdsStreamRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("customer_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					scalarField("query", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					enumField("summary_row_setting", 3, "."+servicesPkg+".SummaryRowSetting"),
					scalarField("validate_only", 4, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
				},
			},
			{
				Name: strPtr("SearchGoogleAdsStreamResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeated(messageField("results", 1, rowType)),
					messageField("field_mask", 2, ".google.protobuf.FieldMask"),
					scalarField("request_id", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					messageField("summary_row", 4, rowType),
				},
			},
			{
				Name: strPtr("CampaignOperation"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(messageField("create", 1, "."+servicesPkg+".Campaign"), 0),
					inOneof(messageField("update", 2, "."+servicesPkg+".Campaign"), 0),
					inOneof(scalarField("remove", 3, descriptorpb.FieldDescriptorProto_TYPE_STRING), 0),
					messageField("update_mask", 4, ".google.protobuf.FieldMask"),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: strPtr("operation")}},
			},
			{
				Name: strPtr("AdGroupOperation"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(messageField("create", 1, "."+servicesPkg+".AdGroup"), 0),
					inOneof(scalarField("remove", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING), 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: strPtr("operation")}},
			},
			{
				Name: strPtr("MutateOperation"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(messageField("campaign_operation", 1, "."+servicesPkg+".CampaignOperation"), 0),
					inOneof(messageField("ad_group_operation", 2, "."+servicesPkg+".AdGroupOperation"), 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: strPtr("operation")}},
			},
			{
				Name: strPtr("MutateOperationResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					inOneof(scalarField("campaign_result", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING), 0),
					inOneof(scalarField("ad_group_result", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING), 0),
				},
				OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: strPtr("response")}},
			},
			{
				Name: strPtr("MutateGoogleAdsRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					scalarField("customer_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING),
					repeated(messageField("mutate_operations", 2, "."+servicesPkg+".MutateOperation")),
					scalarField("partial_failure", 3, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					scalarField("validate_only", 4, descriptorpb.FieldDescriptorProto_TYPE_BOOL),
					enumField("response_content_type", 5, "."+servicesPkg+".ResponseContentType"),
				},
			},
			{
				Name: strPtr("MutateGoogleAdsResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					repeated(messageField("mutate_operation_responses", 1, "."+servicesPkg+".MutateOperationResponse")),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: strPtr("GoogleAdsService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       strPtr("Search"),
						InputType:  strPtr("." + servicesPkg + ".SearchGoogleAdsRequest"),
						OutputType: strPtr("." + servicesPkg + ".SearchGoogleAdsResponse"),
					},
					{
						Name:            strPtr("SearchStream"),
						InputType:       strPtr("." + servicesPkg + ".SearchGoogleAdsStreamRequest"),
						OutputType:      strPtr("." + servicesPkg + ".SearchGoogleAdsStreamResponse"),
						ServerStreaming: boolPtr(true),
					},
					{
						Name:       strPtr("Mutate"),
						InputType:  strPtr("." + servicesPkg + ".MutateGoogleAdsRequest"),
						OutputType: strPtr("." + servicesPkg + ".MutateGoogleAdsResponse"),
					},
					{
						Name:            strPtr("UploadMetrics"),
						InputType:       strPtr("." + servicesPkg + ".Metrics"),
						OutputType:      strPtr("." + servicesPkg + ".Metrics"),
						ClientStreaming: boolPtr(true),
					},
				},
			},
		},
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func scalarField(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	return &descriptorpb.FieldDescriptorProto{
		Name:   strPtr(name),
		Number: &num,
		Type:   &typ,
		Label:  &label,
	}
}

func messageField(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	fd := scalarField(name, num, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE)
	fd.TypeName = strPtr(typeName)
	return fd
}

func enumField(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	fd := scalarField(name, num, descriptorpb.FieldDescriptorProto_TYPE_ENUM)
	fd.TypeName = strPtr(typeName)
	return fd
}

func repeated(fd *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	fd.Label = &label
	return fd
}

func inOneof(fd *descriptorpb.FieldDescriptorProto, idx int32) *descriptorpb.FieldDescriptorProto {
	fd.OneofIndex = &idx
	return fd
}

func mapEntry(name string, key, value *descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	mapOpt := true
	return &descriptorpb.DescriptorProto{
		Name:    strPtr(name),
		Field:   []*descriptorpb.FieldDescriptorProto{key, value},
		Options: &descriptorpb.MessageOptions{MapEntry: &mapOpt},
	}
}

func enum(name string, values ...string) *descriptorpb.EnumDescriptorProto {
	ed := &descriptorpb.EnumDescriptorProto{Name: strPtr(name)}
	for i, v := range values {
		num := int32(i)
		ed.Value = append(ed.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   strPtr(v),
			Number: &num,
		})
	}
	return ed
}
