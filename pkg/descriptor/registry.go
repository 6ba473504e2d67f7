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

// Package descriptor loads the serialized Google Ads schema bundle and
// resolves services, methods, and message types by name at runtime, in place
// of compiled client stubs.
package descriptor

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	googleAdsPrefix = "google.ads.googleads."
	servicesSegment = ".services."
)

// NotFoundError reports a name that resolved to nothing in the bundle.
type NotFoundError struct {
	Kind string // "service", "method", or "type"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

// Registry is the in-memory index over a loaded schema bundle. It is
// immutable after construction and safe for concurrent use.
type Registry struct {
	files          *protoregistry.Files
	services       []protoreflect.ServiceDescriptor
	byNorm         map[string]protoreflect.ServiceDescriptor
	serviceForType map[protoreflect.FullName]protoreflect.ServiceDescriptor
}

// Load reads a serialized FileDescriptorSet from disk and builds a Registry.
// A missing or corrupt bundle is a startup error, not a per-call error.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor bundle: %w", err)
	}
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse descriptor bundle %s: %w", path, err)
	}
	return New(&set)
}

// New builds a Registry from an already-parsed descriptor set.
func New(set *descriptorpb.FileDescriptorSet) (*Registry, error) {
	if len(set.GetFile()) == 0 {
		return nil, fmt.Errorf("descriptor bundle is empty")
	}
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("build descriptor registry: %w", err)
	}

	r := &Registry{
		files:          files,
		byNorm:         make(map[string]protoreflect.ServiceDescriptor),
		serviceForType: make(map[protoreflect.FullName]protoreflect.ServiceDescriptor),
	}
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		svcs := fd.Services()
		for i := 0; i < svcs.Len(); i++ {
			sd := svcs.Get(i)
			if !isAdsService(sd) {
				continue
			}
			r.services = append(r.services, sd)
			r.byNorm[normalize(string(sd.Name()))] = sd
			r.byNorm[normalize(string(sd.FullName()))] = sd
			methods := sd.Methods()
			for j := 0; j < methods.Len(); j++ {
				md := methods.Get(j)
				r.serviceForType[md.Input().FullName()] = sd
				r.serviceForType[md.Output().FullName()] = sd
			}
		}
		return true
	})
	if len(r.services) == 0 {
		return nil, fmt.Errorf("descriptor bundle contains no Google Ads services")
	}
	sort.Slice(r.services, func(i, j int) bool {
		return r.services[i].FullName() < r.services[j].FullName()
	})
	return r, nil
}

// Service resolves a service by name. Matching is case-insensitive and
// normalizes between kebab-case and the bundle's native casing, so
// "google-ads-service", "GoogleAdsService", and the fully-qualified name all
// resolve to the same descriptor.
func (r *Registry) Service(name string) (protoreflect.ServiceDescriptor, error) {
	if sd, ok := r.byNorm[normalize(name)]; ok {
		return sd, nil
	}
	return nil, &NotFoundError{Kind: "service", Name: name}
}

// Method resolves a method on a service, with the same normalization rules
// as Service (so "search-stream" matches "SearchStream").
func (r *Registry) Method(service, method string) (protoreflect.MethodDescriptor, error) {
	sd, err := r.Service(service)
	if err != nil {
		return nil, err
	}
	want := normalize(method)
	methods := sd.Methods()
	for i := 0; i < methods.Len(); i++ {
		md := methods.Get(i)
		if normalize(string(md.Name())) == want {
			return md, nil
		}
	}
	return nil, &NotFoundError{Kind: "method", Name: service + " " + method}
}

// MessageType resolves a message type by fully-qualified name.
func (r *Registry) MessageType(fullName string) (protoreflect.MessageDescriptor, error) {
	d, err := r.files.FindDescriptorByName(protoreflect.FullName(fullName))
	if err != nil {
		return nil, &NotFoundError{Kind: "type", Name: fullName}
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, &NotFoundError{Kind: "type", Name: fullName}
	}
	return md, nil
}

// ServiceForType returns the service whose methods use the given message
// type as input or output. Used by discovery output only.
func (r *Registry) ServiceForType(fullName string) (protoreflect.ServiceDescriptor, bool) {
	sd, ok := r.serviceForType[protoreflect.FullName(fullName)]
	return sd, ok
}

// Services returns all Google Ads services in the bundle, sorted by full name.
func (r *Registry) Services() []protoreflect.ServiceDescriptor {
	return r.services
}

func isAdsService(sd protoreflect.ServiceDescriptor) bool {
	full := string(sd.FullName())
	return strings.HasPrefix(full, googleAdsPrefix) && strings.Contains(full, servicesSegment)
}

// normalize strips every non-alphanumeric rune and lowercases the rest, so
// kebab-case, snake_case, CamelCase, and dotted names all compare equal.
func normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

// ToKebab converts a CamelCase or snake_case identifier to kebab-case, the
// external spelling used on the command surface.
func ToKebab(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r + ('a' - 'A'))
		case r == '_':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
