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

package registrar

// MockRegistrar records dataplane registrations instead of driving the
// runtime CLI.
type MockRegistrar struct {
	// Registered lists the registered devices in order.
	Registered []string
	// Fail maps a device name to the error its registration should fail
	// with.
	Fail map[string]error
}

// NewMockRegistrar is a constructor for MockRegistrar.
func NewMockRegistrar() *MockRegistrar {
	return &MockRegistrar{
		Fail: map[string]error{},
	}
}

// Register records the device unless a failure is configured for it.
func (m *MockRegistrar) Register(device, portName string) error {
	if err := m.Fail[device]; err != nil {
		return err
	}
	m.Registered = append(m.Registered, device)
	return nil
}
