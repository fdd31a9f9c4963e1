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
	"net"

	"github.com/pkg/errors"
	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// LinkOps abstracts the link and namespace operations of the binder, so the
// allocation logic is testable without privileges.
type LinkOps interface {
	// HostLinks lists device names visible at host root, in enumeration
	// order as reported by the kernel.
	HostLinks() ([]string, error)
	// NamespaceLinks lists device names inside the named namespace.
	NamespaceLinks(namespace string) ([]string, error)
	// Rename renames a host-root device.
	Rename(device, newName string) error
	// MoveToNamespace moves a host-root device into the named namespace.
	MoveToNamespace(device, namespace string) error
	// MoveBetweenNamespaces moves a device from one namespace to another.
	MoveBetweenNamespaces(device, from, to string) error
	// SetUp brings a device inside the named namespace administratively up.
	SetUp(namespace, device string) error
	// IsUp reports whether a device inside the named namespace has the
	// UP flag set.
	IsUp(namespace, device string) (bool, error)
	// CreateTap creates a persistent TAP device at host root.
	CreateTap(name string) error
	// DriverName returns the kernel driver behind a host-root device.
	DriverName(device string) (string, error)
}

// NetlinkOps implements LinkOps directly on the netlink API.
type NetlinkOps struct {
	ethTool *ethtool.Ethtool
}

// NewNetlinkOps opens the netlink-backed implementation of LinkOps.
func NewNetlinkOps() (*NetlinkOps, error) {
	et, err := ethtool.NewEthtool()
	if err != nil {
		return nil, errors.Wrap(err, "opening ethtool socket")
	}
	return &NetlinkOps{ethTool: et}, nil
}

// Close releases the ethtool socket.
func (o *NetlinkOps) Close() {
	o.ethTool.Close()
}

// withNamespace runs fn with a netlink handle scoped to the named namespace.
func (o *NetlinkOps) withNamespace(namespace string, fn func(*netlink.Handle) error) error {
	ns, err := netns.GetFromName(namespace)
	if err != nil {
		return errors.Wrapf(err, "opening namespace %s", namespace)
	}
	defer ns.Close()

	handle, err := netlink.NewHandleAt(ns)
	if err != nil {
		return errors.Wrapf(err, "netlink handle in namespace %s", namespace)
	}
	defer handle.Delete()

	return fn(handle)
}

// HostLinks lists device names visible at host root.
func (o *NetlinkOps) HostLinks() ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Attrs().Name)
	}
	return names, nil
}

// NamespaceLinks lists device names inside the named namespace.
func (o *NetlinkOps) NamespaceLinks(namespace string) (names []string, err error) {
	err = o.withNamespace(namespace, func(h *netlink.Handle) error {
		links, err := h.LinkList()
		if err != nil {
			return err
		}
		for _, l := range links {
			names = append(names, l.Attrs().Name)
		}
		return nil
	})
	return names, err
}

// Rename renames a host-root device.
func (o *NetlinkOps) Rename(device, newName string) error {
	link, err := netlink.LinkByName(device)
	if err != nil {
		return err
	}
	return netlink.LinkSetName(link, newName)
}

// MoveToNamespace moves a host-root device into the named namespace.
func (o *NetlinkOps) MoveToNamespace(device, namespace string) error {
	link, err := netlink.LinkByName(device)
	if err != nil {
		return err
	}
	ns, err := netns.GetFromName(namespace)
	if err != nil {
		return errors.Wrapf(err, "opening namespace %s", namespace)
	}
	defer ns.Close()
	return netlink.LinkSetNsFd(link, int(ns))
}

// MoveBetweenNamespaces moves a device out of one namespace into another.
func (o *NetlinkOps) MoveBetweenNamespaces(device, from, to string) error {
	toNs, err := netns.GetFromName(to)
	if err != nil {
		return errors.Wrapf(err, "opening namespace %s", to)
	}
	defer toNs.Close()

	return o.withNamespace(from, func(h *netlink.Handle) error {
		link, err := h.LinkByName(device)
		if err != nil {
			return err
		}
		return h.LinkSetNsFd(link, int(toNs))
	})
}

// SetUp brings a device inside the named namespace administratively up.
func (o *NetlinkOps) SetUp(namespace, device string) error {
	return o.withNamespace(namespace, func(h *netlink.Handle) error {
		link, err := h.LinkByName(device)
		if err != nil {
			return err
		}
		return h.LinkSetUp(link)
	})
}

// IsUp reports whether a device inside the named namespace has the UP flag.
func (o *NetlinkOps) IsUp(namespace, device string) (up bool, err error) {
	err = o.withNamespace(namespace, func(h *netlink.Handle) error {
		link, err := h.LinkByName(device)
		if err != nil {
			return err
		}
		up = link.Attrs().Flags&net.FlagUp != 0
		return nil
	})
	return up, err
}

// CreateTap creates a persistent TAP device at host root.
func (o *NetlinkOps) CreateTap(name string) error {
	tap := &netlink.Tuntap{
		LinkAttrs: netlink.LinkAttrs{Name: name},
		Mode:      netlink.TUNTAP_MODE_TAP,
	}
	return netlink.LinkAdd(tap)
}

// DriverName returns the kernel driver behind a host-root device.
func (o *NetlinkOps) DriverName(device string) (string, error) {
	return o.ethTool.DriverName(device)
}
