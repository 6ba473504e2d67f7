package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/radjathaher/search-ads-cli/pkg/auth"
	"github.com/radjathaher/search-ads-cli/pkg/client"
	"github.com/radjathaher/search-ads-cli/pkg/config"
	"github.com/radjathaher/search-ads-cli/pkg/descriptor"
	"github.com/radjathaher/search-ads-cli/pkg/gaql"
	"github.com/radjathaher/search-ads-cli/pkg/invoke"
)

// app carries the lazily-built runtime pieces into the kong Run methods.
// Discovery commands only ever touch the registry; credentials and the
// channel are resolved on first use so list/describe/tree work without any
// credential configured.
type app struct {
	ctx    context.Context
	cli    *CLI
	stdout io.Writer

	settingsOnce bool
	settings     config.Settings

	reg *descriptor.Registry
	cl  *client.Client
	mgr *auth.Manager
}

func (a *app) loadSettings() (config.Settings, error) {
	if a.settingsOnce {
		return a.settings, nil
	}
	flags := config.Settings{
		DeveloperToken:  a.cli.DeveloperToken,
		AccessToken:     a.cli.AccessToken,
		ClientID:        a.cli.ClientID,
		ClientSecret:    a.cli.ClientSecret,
		RefreshToken:    a.cli.RefreshToken,
		LoginCustomerID: a.cli.LoginCustomerID,
		Endpoint:        a.cli.Endpoint,
		DescriptorPath:  a.cli.Descriptor,
	}
	s, err := config.Load(flags, a.cli.Config)
	if err != nil {
		return config.Settings{}, err
	}
	s.LoginCustomerID = auth.NormalizeCustomerID(s.LoginCustomerID)
	a.settings, a.settingsOnce = s, true
	return s, nil
}

func (a *app) registry() (*descriptor.Registry, error) {
	if a.reg != nil {
		return a.reg, nil
	}
	s, err := a.loadSettings()
	if err != nil {
		return nil, err
	}
	reg, err := descriptor.Load(s.DescriptorPath)
	if err != nil {
		return nil, err
	}
	a.reg = reg
	return reg, nil
}

func (a *app) connect() (*client.Client, *auth.Manager, error) {
	if a.cl != nil {
		return a.cl, a.mgr, nil
	}
	s, err := a.loadSettings()
	if err != nil {
		return nil, nil, err
	}
	mgr, err := auth.NewManager(a.ctx, auth.Config{
		DeveloperToken:  s.DeveloperToken,
		AccessToken:     s.AccessToken,
		ClientID:        s.ClientID,
		ClientSecret:    s.ClientSecret,
		RefreshToken:    s.RefreshToken,
		LoginCustomerID: s.LoginCustomerID,
	})
	if err != nil {
		return nil, nil, err
	}
	var opts []client.Option
	if a.cli.Timeout > 0 {
		opts = append(opts, client.WithTimeout(time.Duration(a.cli.Timeout)*time.Second))
	}
	cl, err := client.Dial(s.Endpoint, mgr, opts...)
	if err != nil {
		return nil, nil, err
	}
	a.cl, a.mgr = cl, mgr
	return cl, mgr, nil
}

func (a *app) facade() (*invoke.Facade, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	cl, mgr, err := a.connect()
	if err != nil {
		return nil, err
	}
	return invoke.New(reg, cl, mgr), nil
}

func (a *app) searcher() (*gaql.Searcher, error) {
	reg, err := a.registry()
	if err != nil {
		return nil, err
	}
	cl, mgr, err := a.connect()
	if err != nil {
		return nil, err
	}
	return gaql.New(reg, cl, mgr), nil
}

// customerID resolves the per-call customer id from the flag or the merged
// settings, normalized to digits.
func (a *app) customerID(flag string) (string, error) {
	if flag != "" {
		return auth.NormalizeCustomerID(flag), nil
	}
	s, err := a.loadSettings()
	if err != nil {
		return "", err
	}
	if s.CustomerID == "" {
		return "", fmt.Errorf("--customer-id or %s required", config.EnvCustomerID)
	}
	return auth.NormalizeCustomerID(s.CustomerID), nil
}

func (a *app) close() {
	if a.cl != nil {
		_ = a.cl.Close()
	}
}
