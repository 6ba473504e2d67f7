// Package invoke is the uniform entry point for arbitrary
// service/method/payload triples: it resolves the method, decodes the body
// against its input type, dispatches, and encodes the responses. The mutate
// call style is a thin shaping layer over the same path.
package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/radjathaher/search-ads-cli/pkg/auth"
	"github.com/radjathaher/search-ads-cli/pkg/client"
	"github.com/radjathaher/search-ads-cli/pkg/descriptor"
	"github.com/radjathaher/search-ads-cli/pkg/dynjson"
)

// Facade composes the registry, codec, credential manager, and dispatcher.
type Facade struct {
	reg  *descriptor.Registry
	cli  *client.Client
	auth *auth.Manager
}

func New(reg *descriptor.Registry, cli *client.Client, mgr *auth.Manager) *Facade {
	return &Facade{reg: reg, cli: cli, auth: mgr}
}

// Result carries the encoded response payloads of one call: exactly one for
// unary methods, one per chunk in arrival order for streaming methods.
type Result struct {
	Streaming bool
	Messages  []json.RawMessage
}

// Call invokes service/method with the given parsed JSON body. Resolution
// and decoding failures happen before any network traffic.
func (f *Facade) Call(ctx context.Context, service, method string, body any) (*Result, error) {
	md, err := f.reg.Method(service, method)
	if err != nil {
		return nil, err
	}
	if md.IsStreamingClient() {
		return nil, fmt.Errorf("client streaming is not supported")
	}
	req, err := dynjson.DecodeValue(md.Input(), body)
	if err != nil {
		return nil, err
	}
	msgs, err := f.cli.Invoke(ctx, md, req, f.auth.CallHeaders(""))
	if err != nil {
		return nil, err
	}
	res := &Result{Streaming: md.IsStreamingServer()}
	for _, msg := range msgs {
		b, err := dynjson.Encode(msg)
		if err != nil {
			return nil, err
		}
		res.Messages = append(res.Messages, b)
	}
	return res, nil
}

// CallStream invokes a server-streaming method and emits each encoded
// response as it arrives, for line-oriented output.
func (f *Facade) CallStream(ctx context.Context, service, method string, body any, emit func(json.RawMessage) error) error {
	md, err := f.reg.Method(service, method)
	if err != nil {
		return err
	}
	req, err := dynjson.DecodeValue(md.Input(), body)
	if err != nil {
		return err
	}
	stream, err := f.cli.OpenStream(ctx, md, req, f.auth.CallHeaders(""))
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
		b, err := dynjson.Encode(msg)
		if err != nil {
			return err
		}
		if err := emit(b); err != nil {
			return err
		}
	}
}
