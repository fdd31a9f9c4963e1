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

package ovsdb

// MockFlags serves configuration database flags from memory.
type MockFlags struct {
	flags     map[string]bool
	countdown map[string]int

	// Err fails every query when set.
	Err error
	// Reads counts the queries per flag.
	Reads map[string]int
}

// NewMockFlags is a constructor for MockFlags.
func NewMockFlags() *MockFlags {
	return &MockFlags{
		flags:     map[string]bool{},
		countdown: map[string]int{},
		Reads:     map[string]int{},
	}
}

// Set marks a flag as set.
func (m *MockFlags) Set(flag string) {
	m.flags[flag] = true
}

// SetAfter makes a flag read as set only after the given number of reads.
func (m *MockFlags) SetAfter(flag string, reads int) {
	m.countdown[flag] = reads
}

// FlagSet reports the mock state of a flag.
func (m *MockFlags) FlagSet(flag string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.Reads[flag]++
	if m.flags[flag] {
		return true, nil
	}
	if left, pending := m.countdown[flag]; pending {
		if left <= 0 {
			m.flags[flag] = true
			return true, nil
		}
		m.countdown[flag] = left - 1
	}
	return false, nil
}
