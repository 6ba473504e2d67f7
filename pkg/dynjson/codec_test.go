package dynjson_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/radjathaher/search-ads-cli/pkg/dynjson"
	"github.com/radjathaher/search-ads-cli/pkg/testutils"
)

func sinkDesc(t *testing.T) protoreflect.MessageDescriptor {
	t.Helper()
	reg := testutils.AdsRegistry(t)
	md, err := reg.MessageType("google.ads.googleads.v21.common.KitchenSink")
	require.NoError(t, err)
	return md
}

func mutateOpDesc(t *testing.T) protoreflect.MessageDescriptor {
	t.Helper()
	reg := testutils.AdsRegistry(t)
	md, err := reg.MessageType("google.ads.googleads.v21.services.MutateOperation")
	require.NoError(t, err)
	return md
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	md := sinkDesc(t)
	input := `{
		"id": "9223372036854775807",
		"ref": "18446744073709551615",
		"score": 1.5,
		"ratio": 2.25,
		"active": true,
		"name": "hello",
		"payload": "aGVsbG8=",
		"color": "RED",
		"tags": ["a", "b"],
		"ids": ["1", 2, "3"],
		"counts": {"b": "7", "a": 9},
		"children": {"10": {"name": "kid"}, "2": {"name": "other"}},
		"campaignId": "42",
		"mask": "name,status",
		"child": {"name": "c"},
		"small": 5,
		"usmall": 6
	}`
	msg, err := dynjson.Decode(md, []byte(input))
	require.NoError(t, err)

	out, err := dynjson.Encode(msg)
	require.NoError(t, err)

	// 64-bit integers come back as strings, map keys sort by declared
	// kind, and the field mask round-trips as a comma-joined string.
	want := `{
		"id": "9223372036854775807",
		"ref": "18446744073709551615",
		"score": 1.5,
		"ratio": 2.25,
		"active": true,
		"name": "hello",
		"payload": "aGVsbG8=",
		"color": "RED",
		"tags": ["a", "b"],
		"ids": ["1", "2", "3"],
		"counts": {"a": "9", "b": "7"},
		"children": {"2": {"name": "other"}, "10": {"name": "kid"}},
		"campaignId": "42",
		"mask": "name,status",
		"child": {"name": "c"},
		"small": 5,
		"usmall": 6
	}`
	assert.JSONEq(t, want, string(out))

	// Decoding the encoded form reproduces the same message.
	again, err := dynjson.Decode(md, out)
	require.NoError(t, err)
	out2, err := dynjson.Encode(again)
	require.NoError(t, err)
	assert.JSONEq(t, string(out), string(out2))
}

func TestInt64PrecisionRoundTrip(t *testing.T) {
	md := sinkDesc(t)
	msg, err := dynjson.Decode(md, []byte(`{"id": "9223372036854775807"}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	// The exact digits survive as a string; a float round-trip would have
	// corrupted the low digits.
	assert.Equal(t, `{"id":"9223372036854775807"}`, string(out))
}

func TestNumericFormsAccepted(t *testing.T) {
	md := sinkDesc(t)
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"int as number", `{"id": 41}`, `{"id":"41"}`},
		{"int as string", `{"id": "41"}`, `{"id":"41"}`},
		{"negative int64", `{"id": "-9223372036854775808"}`, `{"id":"-9223372036854775808"}`},
		{"int32 stays numeric", `{"small": 12}`, `{"small":12}`},
		{"uint32 stays numeric", `{"usmall": 12}`, `{"usmall":12}`},
		{"double as string", `{"ratio": "2.5"}`, `{"ratio":2.5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := dynjson.Decode(md, []byte(tt.input))
			require.NoError(t, err)
			out, err := dynjson.Encode(msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	md := sinkDesc(t)
	_, err := dynjson.Decode(md, []byte(`{"nmae": "typo"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynjson.ErrUnknownField))
	assert.Contains(t, err.Error(), "nmae")
}

func TestUnknownFieldNestedPath(t *testing.T) {
	md := sinkDesc(t)
	_, err := dynjson.Decode(md, []byte(`{"child": {"bogus": 1}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynjson.ErrUnknownField))
	assert.Contains(t, err.Error(), `"child"`)
	assert.Contains(t, err.Error(), "bogus")
}

func TestAmbiguousOneof(t *testing.T) {
	md := sinkDesc(t)
	_, err := dynjson.Decode(md, []byte(`{"campaignId": "1", "campaignName": "x"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynjson.ErrAmbiguousOneof))
	assert.Contains(t, err.Error(), "target")
}

func TestAmbiguousOneofNested(t *testing.T) {
	md := mutateOpDesc(t)
	input := `{"campaignOperation": {"create": {"name": "a"}, "remove": "customers/1/campaigns/2"}}`
	_, err := dynjson.Decode(md, []byte(input))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynjson.ErrAmbiguousOneof))
	assert.Contains(t, err.Error(), "campaignOperation")
}

func TestOneofSingleMemberAllowed(t *testing.T) {
	md := mutateOpDesc(t)
	input := `{"campaignOperation": {"update": {"id": "3", "name": "a"}, "updateMask": "name"}}`
	msg, err := dynjson.Decode(md, []byte(input))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"campaignOperation":{"update":{"id":"3","name":"a"},"updateMask":"name"}}`, string(out))
}

func TestEnumFidelity(t *testing.T) {
	md := sinkDesc(t)

	msg, err := dynjson.Decode(md, []byte(`{"color": "BLUE"}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"color":"BLUE"}`, string(out))

	// Numbers in the declared set encode back to the symbolic name.
	msg, err = dynjson.Decode(md, []byte(`{"color": 1}`))
	require.NoError(t, err)
	out, err = dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"color":"RED"}`, string(out))

	// Unknown numbers pass through numerically (open enum).
	msg, err = dynjson.Decode(md, []byte(`{"color": 99}`))
	require.NoError(t, err)
	out, err = dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"color":99}`, string(out))
}

func TestEnumNameCaseSensitive(t *testing.T) {
	md := sinkDesc(t)
	_, err := dynjson.Decode(md, []byte(`{"color": "blue"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynjson.ErrInvalidEnum))
	assert.Contains(t, err.Error(), "blue")
}

func TestTypeMismatches(t *testing.T) {
	md := sinkDesc(t)
	tests := []struct {
		name  string
		input string
		kind  error
		path  string
	}{
		{"bool from string", `{"active": "true"}`, dynjson.ErrTypeMismatch, "active"},
		{"int from bool", `{"id": true}`, dynjson.ErrTypeMismatch, "id"},
		{"int from float", `{"id": "12.5"}`, dynjson.ErrTypeMismatch, "id"},
		{"string from number", `{"name": 42}`, dynjson.ErrTypeMismatch, "name"},
		{"uint from negative", `{"ref": "-1"}`, dynjson.ErrTypeMismatch, "ref"},
		{"int32 overflow", `{"small": 2147483648}`, dynjson.ErrTypeMismatch, "small"},
		{"bytes from bad base64", `{"payload": "!!!"}`, dynjson.ErrTypeMismatch, "payload"},
		{"repeated from scalar", `{"tags": "x"}`, dynjson.ErrNotASequence, "tags"},
		{"message from number", `{"child": 3}`, dynjson.ErrNotAnObject, "child"},
		{"map from array", `{"counts": [1]}`, dynjson.ErrNotAnObject, "counts"},
		{"map key wrong kind", `{"children": {"abc": {"name": "x"}}}`, dynjson.ErrTypeMismatch, "children.abc"},
		{"nested path", `{"child": {"name": 1}}`, dynjson.ErrTypeMismatch, "child.name"},
		{"element path", `{"ids": ["1", false]}`, dynjson.ErrTypeMismatch, "ids[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dynjson.Decode(md, []byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Contains(t, err.Error(), tt.path)
		})
	}
}

func TestTopLevelMustBeObject(t *testing.T) {
	md := sinkDesc(t)
	for _, input := range []string{`[1,2]`, `"str"`, `42`, `true`} {
		_, err := dynjson.Decode(md, []byte(input))
		require.Error(t, err, "input %s", input)
		assert.True(t, errors.Is(err, dynjson.ErrNotAnObject))
	}
}

func TestInvalidJSONInput(t *testing.T) {
	md := sinkDesc(t)
	_, err := dynjson.Decode(md, []byte(`{"name": }`))
	require.Error(t, err)

	_, err = dynjson.Decode(md, []byte(`{"name": "a"} trailing`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing")
}

func TestNullLeavesFieldUnset(t *testing.T) {
	md := sinkDesc(t)
	msg, err := dynjson.Decode(md, []byte(`{"name": null, "id": "7"}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"7"}`, string(out))
}

func TestDefaultsOmittedOnEncode(t *testing.T) {
	md := sinkDesc(t)
	// Proto3 scalars without presence: explicit defaults decode fine but
	// are indistinguishable from absent, so encode omits them.
	msg, err := dynjson.Decode(md, []byte(`{"active": false, "small": 0, "name": ""}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestProtoNameFallback(t *testing.T) {
	md := sinkDesc(t)
	msg, err := dynjson.Decode(md, []byte(`{"campaign_id": "5"}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	// Output always uses the canonical JSON name.
	assert.Equal(t, `{"campaignId":"5"}`, string(out))
}

func TestFieldMaskDecodesToPaths(t *testing.T) {
	md := sinkDesc(t)
	msg, err := dynjson.Decode(md, []byte(`{"mask": "name, status ,id"}`))
	require.NoError(t, err)

	maskField := md.Fields().ByName("mask")
	mask := msg.Get(maskField).Message()
	paths := mask.Get(mask.Descriptor().Fields().ByName("paths")).List()
	var got []string
	for i := 0; i < paths.Len(); i++ {
		got = append(got, paths.Get(i).String())
	}
	assert.Equal(t, []string{"name", "status", "id"}, got)
}

func TestFloatSpecialValues(t *testing.T) {
	md := sinkDesc(t)
	msg, err := dynjson.Decode(md, []byte(`{"ratio": "NaN"}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"ratio":"NaN"}`, string(out))

	msg, err = dynjson.Decode(md, []byte(`{"ratio": "-Infinity"}`))
	require.NoError(t, err)
	out, err = dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"ratio":"-Infinity"}`, string(out))
}

func TestRepeatedOrderPreserved(t *testing.T) {
	md := sinkDesc(t)
	msg, err := dynjson.Decode(md, []byte(`{"tags": ["z", "a", "m", "a"]}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, `{"tags":["z","a","m","a"]}`, string(out))
}

func TestEncodeFieldDeclarationOrder(t *testing.T) {
	md := sinkDesc(t)
	msg, err := dynjson.Decode(md, []byte(`{"name": "n", "id": "1", "active": true}`))
	require.NoError(t, err)
	out, err := dynjson.Encode(msg)
	require.NoError(t, err)
	// Keys come out in field-declaration order regardless of input order.
	idIdx := strings.Index(string(out), `"id"`)
	activeIdx := strings.Index(string(out), `"active"`)
	nameIdx := strings.Index(string(out), `"name"`)
	assert.Less(t, idIdx, activeIdx)
	assert.Less(t, activeIdx, nameIdx)
}
