package main

import "fmt"

// ListCmd lists every service and method in the loaded bundle.
type ListCmd struct {
	JSON bool `help:"Emit machine-readable JSON."`
}

func (c *ListCmd) Run(a *app) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	tree := reg.Tree()
	if c.JSON {
		return writeValue(a.stdout, tree.Services, true)
	}
	for _, svc := range tree.Services {
		fmt.Fprintln(a.stdout, svc.Name)
		for _, m := range svc.Methods {
			fmt.Fprintf(a.stdout, "  %s\n", m.Name)
		}
	}
	return nil
}

// DescribeCmd shows a method's input fields.
type DescribeCmd struct {
	Service string `arg:"" help:"Service name (e.g. google-ads-service)."`
	Method  string `arg:"" help:"Method name (e.g. search-stream)."`
	JSON    bool   `help:"Emit machine-readable JSON."`
}

func (c *DescribeCmd) Run(a *app) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	desc, err := reg.Describe(c.Service, c.Method)
	if err != nil {
		return err
	}
	if c.JSON {
		return writeValue(a.stdout, desc, true)
	}
	fmt.Fprintf(a.stdout, "%s %s\n", desc.Service, desc.Method)
	fmt.Fprintln(a.stdout, "fields:")
	for _, f := range desc.Fields {
		fmt.Fprintf(a.stdout, "  %s (%s)\n", f.JSONName, f.Kind)
	}
	return nil
}

// TreeCmd shows the full command tree including the detected API version.
type TreeCmd struct {
	JSON bool `help:"Emit machine-readable JSON."`
}

func (c *TreeCmd) Run(a *app) error {
	reg, err := a.registry()
	if err != nil {
		return err
	}
	tree := reg.Tree()
	if c.JSON {
		return writeValue(a.stdout, tree, true)
	}
	fmt.Fprintf(a.stdout, "api_version: %s\n", tree.APIVersion)
	for _, svc := range tree.Services {
		fmt.Fprintln(a.stdout, svc.Name)
		for _, m := range svc.Methods {
			fmt.Fprintf(a.stdout, "  %s\n", m.Name)
		}
	}
	return nil
}
