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

package services

// MockServiceManager simulates the process manager of the image.
type MockServiceManager struct {
	active    map[string]bool
	onStart   map[string]int
	countdown map[string]int

	// Started lists the start requests in order.
	Started []string
	// QueryErr fails every IsActive call when set.
	QueryErr error
	// StartErr fails every Start call when set.
	StartErr error
}

// NewMockServiceManager is a constructor for MockServiceManager.
func NewMockServiceManager() *MockServiceManager {
	return &MockServiceManager{
		active:    map[string]bool{},
		onStart:   map[string]int{},
		countdown: map[string]int{},
	}
}

// SetActive marks a service as active from the start.
func (m *MockServiceManager) SetActive(name string) {
	m.active[name] = true
}

// ActivateAfterStart makes a service report active once it was started and
// then probed the given number of times.
func (m *MockServiceManager) ActivateAfterStart(name string, probes int) {
	m.onStart[name] = probes
}

// IsActive reports the mock state of a service.
func (m *MockServiceManager) IsActive(name string) (bool, error) {
	if m.QueryErr != nil {
		return false, m.QueryErr
	}
	if m.active[name] {
		return true, nil
	}
	if left, pending := m.countdown[name]; pending {
		if left <= 0 {
			m.active[name] = true
			return true, nil
		}
		m.countdown[name] = left - 1
	}
	return false, nil
}

// Start records the start request and arms the activation countdown
// configured via ActivateAfterStart.
func (m *MockServiceManager) Start(name string) error {
	m.Started = append(m.Started, name)
	if m.StartErr != nil {
		return m.StartErr
	}
	if probes, ok := m.onStart[name]; ok {
		m.countdown[name] = probes
	}
	return nil
}
