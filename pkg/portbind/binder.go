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

// Package portbind binds the host-visible network devices of the switch
// image to hardware port names and migrates them into the image's network
// namespaces, registering them with the emulated dataplane where the image
// runs one.
package portbind

import (
	"fmt"
	"io/ioutil"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/openswitch/ops-init/pkg/hwdesc"
	"github.com/openswitch/ops-init/pkg/readiness"
)

const (
	// DefaultNamespaceRunDir is where the kernel exposes named network
	// namespaces.
	DefaultNamespaceRunDir = "/var/run/netns"

	// DefaultMarkerPath is the handshake file external boot participants
	// wait on.
	DefaultMarkerPath = "/tmp/ops-virt-ports-ready"

	// MappingFile is the name of the persisted port mapping document,
	// written next to the provisioning binary itself.
	MappingFile = "port_mapping.json"
)

// ErrExhaustedPorts signals more bindable devices than hardware ports.
var ErrExhaustedPorts = errors.New("hardware description has no ports left")

// ProvisionError wraps a failed link operation. Provisioning is not
// resumable: partial namespace state recovers only by a container restart,
// so the run aborts on the first failure.
type ProvisionError struct {
	Op     string
	Device string
	Err    error
}

func (e *ProvisionError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("provisioning device %s: %s: %v", e.Device, e.Op, e.Err)
	}
	return fmt.Sprintf("provisioning: %s: %v", e.Op, e.Err)
}

// LinkNotUpError signals a migrated device that never reached the UP state.
type LinkNotUpError struct {
	Device string
}

func (e *LinkNotUpError) Error() string {
	return fmt.Sprintf("link %s did not come up", e.Device)
}

// PortRegistrar adds a bound device to the programmable dataplane.
type PortRegistrar interface {
	Register(device, portName string) error
}

// Binder allocates hardware port names to devices and performs the
// migrations. One Bind call per boot.
type Binder struct {
	Deps
	Config
}

// Deps lists dependencies of the Binder.
type Deps struct {
	Log       logging.Logger
	Links     LinkOps
	Registrar PortRegistrar
	// Waiter paces the link-state polls with the same budget as the
	// boot readiness gates.
	Waiter *readiness.Poller
}

// Config holds the namespaces and output paths of one provisioning run.
type Config struct {
	SwitchNamespace string
	EmulNamespace   string
	NamespaceRunDir string
	MappingPath     string
	MarkerPath      string
}

// Bind runs the provisioning sequence once: classify the visible devices,
// allocate hardware port names in discovery order, rename and migrate each
// device, register dual-namespace devices with the dataplane, persist the
// mapping, materialize leftover ports and create the readiness marker.
//
// The returned mapping reflects the bindings recorded up to the point of
// failure and is persisted only on full success of the allocation pass.
func (b *Binder) Bind(queue *hwdesc.Queue) (hwdesc.Mapping, error) {
	topo, err := b.discover()
	if err != nil {
		return nil, err
	}
	b.Log.Infof("Provisioning in %v mode: %d device(s) visible, %d already in %s",
		topo.Mode, len(topo.Unbound), len(topo.Bound), topo.Active)

	mapping := hwdesc.Mapping{}
	for _, dev := range topo.Unbound {
		if excludedDevices[dev] {
			b.Log.Debugf("Skipping excluded device %s", dev)
			continue
		}

		port, ok := queue.Pop()
		if !ok {
			return mapping, errors.Wrapf(ErrExhaustedPorts, "no port name left for device %s", dev)
		}
		mapping[dev] = port

		if err := b.bindDevice(dev, port, topo.Mode); err != nil {
			return mapping, err
		}
	}

	if err := hwdesc.SaveMapping(b.MappingPath, mapping); err != nil {
		return mapping, err
	}

	if err := b.materializeRemaining(queue, topo); err != nil {
		return mapping, err
	}

	if err := b.createMarker(); err != nil {
		return mapping, err
	}
	return mapping, nil
}

// bindDevice renames one device to its hardware port name and migrates it
// into the active namespace for the mode.
func (b *Binder) bindDevice(dev, port string, mode Mode) error {
	if err := b.Links.Rename(dev, port); err != nil {
		return &ProvisionError{Op: "rename to " + port, Device: dev, Err: err}
	}

	if err := b.Links.MoveToNamespace(port, b.SwitchNamespace); err != nil {
		return &ProvisionError{Op: "move to " + b.SwitchNamespace, Device: port, Err: err}
	}

	if mode == DualNamespace {
		if err := b.Links.MoveBetweenNamespaces(port, b.SwitchNamespace, b.EmulNamespace); err != nil {
			return &ProvisionError{Op: "move to " + b.EmulNamespace, Device: port, Err: err}
		}
		if err := b.Links.SetUp(b.EmulNamespace, port); err != nil {
			return &ProvisionError{Op: "set up in " + b.EmulNamespace, Device: port, Err: err}
		}
		if err := b.awaitLinkUp(port); err != nil {
			return err
		}
		if err := b.Registrar.Register(port, port); err != nil {
			return err
		}
	}

	b.Log.Infof("Device %s bound to hardware port %s", dev, port)
	return nil
}

// awaitLinkUp polls the link state of a freshly migrated device.
func (b *Binder) awaitLinkUp(port string) error {
	err := b.Waiter.Await(readiness.Check{
		Name: fmt.Sprintf("link %s in %s", port, b.EmulNamespace),
		Probe: func() (bool, error) {
			return b.Links.IsUp(b.EmulNamespace, port)
		},
	})
	if err != nil {
		if _, ok := errors.Cause(err).(*readiness.TimeoutError); ok {
			return &LinkNotUpError{Device: port}
		}
		return err
	}
	return nil
}

// materializeRemaining handles hardware ports no host device bound to.
// Single-namespace images get a fresh TAP per leftover port, dual-namespace
// images pre-create those devices inside the emulation namespace themselves.
func (b *Binder) materializeRemaining(queue *hwdesc.Queue, topo *Topology) error {
	present := make(map[string]bool, len(topo.Bound))
	for _, name := range topo.Bound {
		present[name] = true
	}

	for _, port := range queue.Remaining() {
		if present[port] {
			b.Log.Infof("Port %s already present in %s", port, topo.Active)
			continue
		}
		if topo.Mode == DualNamespace {
			b.Log.Infof("Port %s is expected to be created by the image", port)
			continue
		}

		if err := b.Links.CreateTap(port); err != nil {
			return &ProvisionError{Op: "create tap", Device: port, Err: err}
		}
		if err := b.Links.MoveToNamespace(port, b.SwitchNamespace); err != nil {
			return &ProvisionError{Op: "move to " + b.SwitchNamespace, Device: port, Err: err}
		}
		b.Log.Infof("Port %s created in %s", port, b.SwitchNamespace)
	}
	return nil
}

// createMarker writes the empty handshake file other boot participants
// poll for.
func (b *Binder) createMarker() error {
	if err := ioutil.WriteFile(b.MarkerPath, nil, 0644); err != nil {
		return errors.Wrapf(err, "creating readiness marker %s", b.MarkerPath)
	}
	b.Log.Infof("Interfaces ready, marker %s created", b.MarkerPath)
	return nil
}
