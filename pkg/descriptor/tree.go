package descriptor

import (
	"fmt"
	"sort"
	"strings"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Tree is the machine-readable discovery view of the bundle: every service
// and method with its external kebab-case spelling.
type Tree struct {
	Version    uint32       `json:"version"`
	APIVersion string       `json:"api_version"`
	Services   []ServiceDef `json:"services"`
}

// ServiceDef is one service entry in the discovery tree.
type ServiceDef struct {
	Name     string      `json:"name"`
	FullName string      `json:"full_name"`
	Methods  []MethodDef `json:"methods"`
}

// MethodDef is one method entry in the discovery tree.
type MethodDef struct {
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	InputType       string `json:"input_type"`
	OutputType      string `json:"output_type"`
	ClientStreaming bool   `json:"client_streaming"`
	ServerStreaming bool   `json:"server_streaming"`
}

// MethodDescription is the detailed view of a single method produced by
// Describe: its types plus the input message's field inventory.
type MethodDescription struct {
	Service    string     `json:"service"`
	Method     string     `json:"method"`
	InputType  string     `json:"input_type"`
	OutputType string     `json:"output_type"`
	Fields     []FieldDef `json:"fields"`
}

// FieldDef describes one input field for discovery output.
type FieldDef struct {
	Name        string `json:"name"`
	JSONName    string `json:"json_name"`
	Cardinality string `json:"cardinality"`
	Kind        string `json:"kind"`
	TypeName    string `json:"type_name,omitempty"`
}

// Tree builds the discovery tree, sorted by kebab-case name at both levels.
func (r *Registry) Tree() *Tree {
	t := &Tree{Version: 1, APIVersion: r.apiVersion()}
	for _, sd := range r.services {
		def := ServiceDef{
			Name:     ToKebab(string(sd.Name())),
			FullName: string(sd.FullName()),
		}
		methods := sd.Methods()
		for i := 0; i < methods.Len(); i++ {
			md := methods.Get(i)
			def.Methods = append(def.Methods, MethodDef{
				Name:            ToKebab(string(md.Name())),
				FullName:        fmt.Sprintf("%s/%s", sd.FullName(), md.Name()),
				InputType:       string(md.Input().FullName()),
				OutputType:      string(md.Output().FullName()),
				ClientStreaming: md.IsStreamingClient(),
				ServerStreaming: md.IsStreamingServer(),
			})
		}
		sort.Slice(def.Methods, func(i, j int) bool { return def.Methods[i].Name < def.Methods[j].Name })
		t.Services = append(t.Services, def)
	}
	sort.Slice(t.Services, func(i, j int) bool { return t.Services[i].Name < t.Services[j].Name })
	return t
}

// Describe resolves a method and reports its input message's fields.
func (r *Registry) Describe(service, method string) (*MethodDescription, error) {
	md, err := r.Method(service, method)
	if err != nil {
		return nil, err
	}
	sd := md.Parent().(protoreflect.ServiceDescriptor)
	desc := &MethodDescription{
		Service:    string(sd.FullName()),
		Method:     string(md.Name()),
		InputType:  string(md.Input().FullName()),
		OutputType: string(md.Output().FullName()),
	}
	fields := md.Input().Fields()
	for i := 0; i < fields.Len(); i++ {
		desc.Fields = append(desc.Fields, fieldDef(fields.Get(i)))
	}
	return desc, nil
}

func (r *Registry) apiVersion() string {
	for _, sd := range r.services {
		for _, part := range strings.Split(string(sd.FullName()), ".") {
			if len(part) > 1 && part[0] == 'v' && allDigits(part[1:]) {
				return part
			}
		}
	}
	return "unknown"
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func fieldDef(fd protoreflect.FieldDescriptor) FieldDef {
	def := FieldDef{
		Name:        string(fd.Name()),
		JSONName:    fd.JSONName(),
		Cardinality: cardinality(fd),
	}
	switch {
	case fd.Kind() == protoreflect.MessageKind || fd.Kind() == protoreflect.GroupKind:
		def.Kind = "message:" + string(fd.Message().FullName())
		def.TypeName = string(fd.Message().FullName())
	case fd.Kind() == protoreflect.EnumKind:
		def.Kind = "enum:" + string(fd.Enum().FullName())
		def.TypeName = string(fd.Enum().FullName())
	default:
		def.Kind = "scalar:" + fd.Kind().String()
		def.TypeName = fd.Kind().String()
	}
	return def
}

func cardinality(fd protoreflect.FieldDescriptor) string {
	switch fd.Cardinality() {
	case protoreflect.Repeated:
		return "repeated"
	case protoreflect.Required:
		return "required"
	default:
		return "optional"
	}
}
