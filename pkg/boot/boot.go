// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package boot walks the readiness gates of the switch image, strictly in
// order, until the image is fully booted. Every gate is mandatory and the
// first failure aborts the whole sequence.
package boot

import (
	"fmt"
	"path/filepath"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/openswitch/ops-init/pkg/hwdesc"
	"github.com/openswitch/ops-init/pkg/readiness"
)

const (
	// FlagHardwareReady is the database column set once the hardware
	// layer finished initializing.
	FlagHardwareReady = "cur_hw"
	// FlagConfigApplied is the database column set once the initial
	// configuration was applied.
	FlagConfigApplied = "cur_cfg"
)

// FlagReader reads boot flags from the configuration database.
type FlagReader interface {
	FlagSet(flag string) (bool, error)
}

// PortBinder runs the interface provisioning sequence.
type PortBinder interface {
	Bind(queue *hwdesc.Queue) (hwdesc.Mapping, error)
}

// Boot sequences the boot gates of the image.
type Boot struct {
	Deps
	Config
}

// Deps lists dependencies of the boot sequence.
type Deps struct {
	Log      logging.Logger
	Binder   PortBinder
	DB       FlagReader
	Services ServiceManager
	Poller   *readiness.Poller
}

// Config holds the observable paths and names of a fully booted image.
type Config struct {
	NamespaceRunDir string
	SwitchNamespace string
	HwdescDir       string
	DBSocket        string
	SwitchdPidFile  string
	Hostname        string
	SwitchdService  string
	RestService     string
}

// Run executes the gates in order. The returned error names the gate that
// failed; nil means the image is fully booted.
func (b *Boot) Run() error {
	swnsPath := filepath.Join(b.NamespaceRunDir, b.SwitchNamespace)

	preProvision := []readiness.Check{
		{
			Name:    "switch namespace",
			Probe:   readiness.FileExists(swnsPath),
			Message: fmt.Sprintf("namespace file %s never appeared", swnsPath),
		},
		{
			Name:    "hardware description",
			Probe:   readiness.FileExists(b.HwdescDir),
			Message: fmt.Sprintf("hardware description %s never appeared", b.HwdescDir),
		},
	}
	for _, check := range preProvision {
		if err := b.Poller.Await(check); err != nil {
			return err
		}
	}

	if err := b.provision(); err != nil {
		return err
	}

	postProvision := []readiness.Check{
		{
			Name:    "configuration database socket",
			Probe:   readiness.FileExists(b.DBSocket),
			Message: fmt.Sprintf("database socket %s never appeared", b.DBSocket),
		},
		{
			Name:    "hardware initialization flag",
			Probe:   b.flagProbe(FlagHardwareReady),
			Message: FlagHardwareReady + " never reached 1",
		},
		{
			Name:    "initial configuration flag",
			Probe:   b.flagProbe(FlagConfigApplied),
			Message: FlagConfigApplied + " never reached 1",
		},
		{
			Name:    "switch daemon pid file",
			Probe:   readiness.FileExists(b.SwitchdPidFile),
			Message: fmt.Sprintf("pid file %s never appeared", b.SwitchdPidFile),
		},
		{
			Name:    "switch daemon",
			Probe:   b.serviceProbe(b.SwitchdService),
			Message: b.SwitchdService + " never became active",
		},
		{
			Name:    "hostname",
			Probe:   readiness.HostnameIs(b.Hostname),
			Message: "hostname never became " + b.Hostname,
		},
	}
	for _, check := range postProvision {
		if err := b.Poller.Await(check); err != nil {
			return err
		}
	}

	return b.ensureRestService()
}

// provision loads the hardware description and runs the port binder once.
// The binder is a single execution, not a polled condition.
func (b *Boot) provision() error {
	queue, err := hwdesc.Load(b.HwdescDir)
	if err != nil {
		return err
	}
	_, err = b.Binder.Bind(queue)
	return err
}

// ensureRestService waits for the REST daemon, starting it explicitly when
// the first probe finds it inactive.
func (b *Boot) ensureRestService() error {
	active, err := b.Services.IsActive(b.RestService)
	if err != nil {
		return errors.Wrapf(err, "checking service %s", b.RestService)
	}
	if active {
		return nil
	}

	b.Log.Infof("Service %s is not active, starting it", b.RestService)
	if err := b.Services.Start(b.RestService); err != nil {
		return errors.Wrapf(err, "starting service %s", b.RestService)
	}

	err = b.Poller.Await(readiness.Check{
		Name:  "service " + b.RestService,
		Probe: b.serviceProbe(b.RestService),
	})
	if err != nil {
		if _, ok := errors.Cause(err).(*readiness.TimeoutError); ok {
			return &ServiceStartError{Service: b.RestService}
		}
		return err
	}
	return nil
}

func (b *Boot) flagProbe(flag string) readiness.Predicate {
	return func() (bool, error) {
		return b.DB.FlagSet(flag)
	}
}

func (b *Boot) serviceProbe(name string) readiness.Predicate {
	return func() (bool, error) {
		return b.Services.IsActive(name)
	}
}
