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

// Package client dispatches dynamic gRPC calls described by method
// descriptors instead of generated stubs. It owns header injection and the
// unary vs server-streaming call shapes; it never retries.
package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/radjathaher/search-ads-cli/pkg/auth"
)

const defaultEndpoint = "googleads.googleapis.com:443"

// Client is a connection to the API plus the credential manager that signs
// every outgoing call.
type Client struct {
	conn    *grpc.ClientConn
	auth    *auth.Manager
	timeout time.Duration
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout  time.Duration
	dialOpts []grpc.DialOption
}

// WithTimeout sets a per-call deadline. Zero means no deadline beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDialOptions replaces the default TLS dial options entirely. Used by
// tests to dial an in-process server over bufconn with insecure credentials.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = opts }
}

// Dial opens a channel to the endpoint. The endpoint accepts the forms
// "host", "host:port", and "https://host"; it defaults to the production
// Google Ads endpoint on :443.
func Dial(endpoint string, mgr *auth.Manager, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	dialOpts := o.dialOpts
	if len(dialOpts) == 0 {
		dialOpts = []grpc.DialOption{
			grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})),
		}
	}
	conn, err := grpc.NewClient(NormalizeEndpoint(endpoint), dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return &Client{conn: conn, auth: mgr, timeout: o.timeout}, nil
}

// Close releases the underlying channel.
func (c *Client) Close() error { return c.conn.Close() }

// Invoke performs one call and returns every response message in arrival
// order: exactly one for unary methods, the full drained sequence for
// server-streaming methods. Client and bidirectional streaming are not
// supported by this client.
func (c *Client) Invoke(ctx context.Context, method protoreflect.MethodDescriptor, req *dynamicpb.Message, hdrs metadata.MD) ([]*dynamicpb.Message, error) {
	if method.IsStreamingClient() {
		return nil, fmt.Errorf("client streaming is not supported")
	}
	ctx, cancel, err := c.prepare(ctx, hdrs)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if method.IsStreamingServer() {
		stream, err := c.open(ctx, method, req)
		if err != nil {
			return nil, err
		}
		var out []*dynamicpb.Message
		for {
			msg := dynamicpb.NewMessage(method.Output())
			if err := stream.RecvMsg(msg); err != nil {
				if err == io.EOF {
					return out, nil
				}
				return nil, err
			}
			out = append(out, msg)
		}
	}

	resp := dynamicpb.NewMessage(method.Output())
	if err := c.conn.Invoke(ctx, methodPath(method), req, resp); err != nil {
		return nil, err
	}
	return []*dynamicpb.Message{resp}, nil
}

// Stream is an in-flight server-streaming call whose responses are consumed
// incrementally. Close aborts the call; responses already received but not
// read are discarded.
type Stream struct {
	cs     grpc.ClientStream
	output protoreflect.MessageDescriptor
	cancel context.CancelFunc
}

// Recv returns the next response message, or io.EOF when the server has
// finished the stream.
func (s *Stream) Recv() (*dynamicpb.Message, error) {
	msg := dynamicpb.NewMessage(s.output)
	if err := s.cs.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Stream) Close() { s.cancel() }

// OpenStream starts a server-streaming call and hands the receive side to
// the caller, for output modes that emit rows as they arrive.
func (c *Client) OpenStream(ctx context.Context, method protoreflect.MethodDescriptor, req *dynamicpb.Message, hdrs metadata.MD) (*Stream, error) {
	if !method.IsStreamingServer() || method.IsStreamingClient() {
		return nil, fmt.Errorf("method %s is not server streaming", method.Name())
	}
	ctx, cancel, err := c.prepare(ctx, hdrs)
	if err != nil {
		cancel()
		return nil, err
	}
	cs, err := c.open(ctx, method, req)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Stream{cs: cs, output: method.Output(), cancel: cancel}, nil
}

func (c *Client) open(ctx context.Context, method protoreflect.MethodDescriptor, req *dynamicpb.Message) (grpc.ClientStream, error) {
	desc := &grpc.StreamDesc{
		StreamName:    string(method.Name()),
		ServerStreams: true,
	}
	cs, err := c.conn.NewStream(ctx, desc, methodPath(method))
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return cs, nil
}

// prepare attaches the bearer token and fixed headers and applies the
// per-call deadline. The token fetch may refresh the cached credential; any
// failure there is reported before the wire is touched.
func (c *Client) prepare(ctx context.Context, hdrs metadata.MD) (context.Context, context.CancelFunc, error) {
	token, err := c.auth.Token()
	if err != nil {
		return ctx, func() {}, err
	}
	md := hdrs.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set("authorization", "Bearer "+strings.TrimSpace(token))
	if existing, ok := metadata.FromOutgoingContext(ctx); ok {
		md = metadata.Join(existing, md)
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	if c.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, nil
}

func methodPath(method protoreflect.MethodDescriptor) string {
	service := method.Parent().(protoreflect.ServiceDescriptor)
	return fmt.Sprintf("/%s/%s", service.FullName(), method.Name())
}

// NormalizeEndpoint strips an optional scheme and applies the :443 default,
// producing a gRPC dial target.
func NormalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return defaultEndpoint
	}
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.Contains(endpoint, ":") {
		endpoint += ":443"
	}
	return endpoint
}
