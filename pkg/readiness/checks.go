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

package readiness

import "os"

// FileExists reports readiness once the given path exists. Works for plain
// files, sockets and directories alike.
func FileExists(path string) Predicate {
	return func() (bool, error) {
		_, err := os.Stat(path)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
}

// HostnameIs reports readiness once the kernel hostname matches the
// expected value.
func HostnameIs(expected string) Predicate {
	return func() (bool, error) {
		name, err := os.Hostname()
		if err != nil {
			return false, err
		}
		return name == expected, nil
	}
}
