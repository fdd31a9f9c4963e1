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

package portbind

import (
	"os"
	"path/filepath"
)

// Mode tells how many namespaces the image spreads its ports across.
type Mode int

const (
	// SingleNamespace images hold all ports in the switch namespace.
	SingleNamespace Mode = iota
	// DualNamespace images keep the dataplane in a separate emulation
	// namespace reached through a two-hop migration.
	DualNamespace
)

func (m Mode) String() string {
	if m == DualNamespace {
		return "dual-namespace"
	}
	return "single-namespace"
}

// excludedDevices never bind to a hardware port and never consume a
// descriptor entry: the loopback, the out-of-band management port, the
// primary container NIC and the bonding driver's aggregate entry.
var excludedDevices = map[string]bool{
	"lo":              true,
	"oobm":            true,
	"eth0":            true,
	"bonding_masters": true,
}

// Topology is the one-shot classification of the devices visible on boot.
type Topology struct {
	Mode Mode
	// Active is the namespace bound devices live in for the mode.
	Active string
	// Unbound lists host-root devices in discovery order.
	Unbound []string
	// Bound lists devices already inside the active namespace.
	Bound []string
}

// discover decides the namespace mode and classifies visible devices.
// This is a single classification, not a readiness gate: any inspection
// failure is fatal and not retried.
func (b *Binder) discover() (*Topology, error) {
	topo := &Topology{Mode: SingleNamespace, Active: b.SwitchNamespace}
	if _, err := os.Stat(filepath.Join(b.NamespaceRunDir, b.EmulNamespace)); err == nil {
		topo.Mode = DualNamespace
		topo.Active = b.EmulNamespace
	}

	unbound, err := b.Links.HostLinks()
	if err != nil {
		return nil, &ProvisionError{Op: "listing host devices", Err: err}
	}
	topo.Unbound = unbound

	bound, err := b.Links.NamespaceLinks(topo.Active)
	if err != nil {
		return nil, &ProvisionError{Op: "listing devices in " + topo.Active, Err: err}
	}
	topo.Bound = bound

	for _, dev := range topo.Unbound {
		if excludedDevices[dev] {
			continue
		}
		if driver, err := b.Links.DriverName(dev); err == nil {
			b.Log.Debugf("Device %s is driven by %s", dev, driver)
		}
	}

	return topo, nil
}
