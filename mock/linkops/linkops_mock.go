/*
 * // Copyright (c) 2019 Cisco and/or its affiliates.
 * //
 * // Licensed under the Apache License, Version 2.0 (the "License");
 * // you may not use this file except in compliance with the License.
 * // You may obtain a copy of the License at:
 * //
 * //     http://www.apache.org/licenses/LICENSE-2.0
 * //
 * // Unless required by applicable law or agreed to in writing, software
 * // distributed under the License is distributed on an "AS IS" BASIS,
 * // WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * // See the License for the specific language governing permissions and
 * // limitations under the License.
 */

package linkops

import "fmt"

// MockLinkOps simulates link operations on an in-memory device table.
type MockLinkOps struct {
	host       []string
	namespaces map[string][]string
	drivers    map[string]string
	upProbes   map[string]int

	// Calls records mutating operations in execution order.
	Calls []string
	// Fail maps an operation key to the error it should return. Keys have
	// the same shape as the recorded calls, queries use "host-links",
	// "namespace-links <ns>" and "isup <ns> <dev>".
	Fail map[string]error
	// UpAfter sets how many IsUp probes a device stays down for.
	UpAfter map[string]int
}

// NewMockLinkOps is a constructor for MockLinkOps.
func NewMockLinkOps() *MockLinkOps {
	return &MockLinkOps{
		namespaces: map[string][]string{},
		drivers:    map[string]string{},
		upProbes:   map[string]int{},
		Fail:       map[string]error{},
		UpAfter:    map[string]int{},
	}
}

// SetHostDevices sets the devices visible at host root.
func (m *MockLinkOps) SetHostDevices(devices ...string) {
	m.host = append([]string{}, devices...)
}

// SetNamespaceDevices sets the devices visible inside a namespace.
func (m *MockLinkOps) SetNamespaceDevices(namespace string, devices ...string) {
	m.namespaces[namespace] = append([]string{}, devices...)
}

// SetDriver sets the driver name reported for a device.
func (m *MockLinkOps) SetDriver(device, driver string) {
	m.drivers[device] = driver
}

func (m *MockLinkOps) record(call string) error {
	m.Calls = append(m.Calls, call)
	return m.Fail[call]
}

// HostLinks returns the mock host device table.
func (m *MockLinkOps) HostLinks() ([]string, error) {
	if err := m.Fail["host-links"]; err != nil {
		return nil, err
	}
	return append([]string{}, m.host...), nil
}

// NamespaceLinks returns the mock device table of a namespace.
func (m *MockLinkOps) NamespaceLinks(namespace string) ([]string, error) {
	if err := m.Fail["namespace-links "+namespace]; err != nil {
		return nil, err
	}
	return append([]string{}, m.namespaces[namespace]...), nil
}

// Rename renames a device in the mock host table.
func (m *MockLinkOps) Rename(device, newName string) error {
	if err := m.record(fmt.Sprintf("rename %s %s", device, newName)); err != nil {
		return err
	}
	for i, d := range m.host {
		if d == device {
			m.host[i] = newName
		}
	}
	return nil
}

// MoveToNamespace moves a device from the mock host table into a namespace.
func (m *MockLinkOps) MoveToNamespace(device, namespace string) error {
	if err := m.record(fmt.Sprintf("move %s %s", device, namespace)); err != nil {
		return err
	}
	for i, d := range m.host {
		if d == device {
			m.host = append(m.host[:i], m.host[i+1:]...)
			break
		}
	}
	m.namespaces[namespace] = append(m.namespaces[namespace], device)
	return nil
}

// MoveBetweenNamespaces moves a device between two mock namespaces.
func (m *MockLinkOps) MoveBetweenNamespaces(device, from, to string) error {
	if err := m.record(fmt.Sprintf("hop %s %s %s", device, from, to)); err != nil {
		return err
	}
	devs := m.namespaces[from]
	for i, d := range devs {
		if d == device {
			m.namespaces[from] = append(devs[:i], devs[i+1:]...)
			break
		}
	}
	m.namespaces[to] = append(m.namespaces[to], device)
	return nil
}

// SetUp records the admin-up request, the mock link state is driven by
// UpAfter instead.
func (m *MockLinkOps) SetUp(namespace, device string) error {
	return m.record(fmt.Sprintf("setup %s %s", namespace, device))
}

// IsUp reports true once the device was probed more than UpAfter times.
func (m *MockLinkOps) IsUp(namespace, device string) (bool, error) {
	if err := m.Fail[fmt.Sprintf("isup %s %s", namespace, device)]; err != nil {
		return false, err
	}
	m.upProbes[device]++
	return m.upProbes[device] > m.UpAfter[device], nil
}

// CreateTap adds a fresh device to the mock host table.
func (m *MockLinkOps) CreateTap(name string) error {
	if err := m.record("tap " + name); err != nil {
		return err
	}
	m.host = append(m.host, name)
	return nil
}

// DriverName returns the driver set via SetDriver.
func (m *MockLinkOps) DriverName(device string) (string, error) {
	driver, ok := m.drivers[device]
	if !ok {
		return "", fmt.Errorf("no driver for device %s", device)
	}
	return driver, nil
}
