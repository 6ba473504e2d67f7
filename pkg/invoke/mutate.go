package invoke

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/radjathaher/search-ads-cli/pkg/dynjson"
)

const (
	mutateService = "google-ads-service"
	mutateMethod  = "mutate"
)

// MutateArgs shapes a GoogleAdsService.Mutate request. Exactly one of Ops
// (the mutateOperations array) or Body (the whole request object) must be
// provided; Body wins when both are absent-checked by the caller.
type MutateArgs struct {
	CustomerID string

	// Ops is the parsed JSON array for the mutateOperations field.
	Ops any
	// Body is a parsed full request object, used verbatim.
	Body any

	PartialFailure      bool
	ValidateOnly        bool
	ResponseContentType string
}

// Mutate builds the request (unless a full body was supplied), validates it
// against the Mutate input type, and performs the unary call. Mutate
// operations are not idempotent, so nothing here retries.
func (f *Facade) Mutate(ctx context.Context, args MutateArgs) (json.RawMessage, error) {
	md, err := f.reg.Method(mutateService, mutateMethod)
	if err != nil {
		return nil, err
	}

	body := args.Body
	if body == nil {
		body, err = buildMutateBody(args)
		if err != nil {
			return nil, err
		}
	}
	req, err := dynjson.DecodeValue(md.Input(), body)
	if err != nil {
		return nil, err
	}
	msgs, err := f.cli.Invoke(ctx, md, req, f.auth.CallHeaders(args.CustomerID))
	if err != nil {
		return nil, err
	}
	return dynjson.Encode(msgs[0])
}

func buildMutateBody(args MutateArgs) (map[string]any, error) {
	if args.Ops == nil {
		return nil, fmt.Errorf("--ops required unless --body provided")
	}
	body := map[string]any{
		"customerId":       args.CustomerID,
		"mutateOperations": args.Ops,
	}
	if args.PartialFailure {
		body["partialFailure"] = true
	}
	if args.ValidateOnly {
		body["validateOnly"] = true
	}
	if args.ResponseContentType != "" {
		body["responseContentType"] = args.ResponseContentType
	}
	return body, nil
}
