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

package boot

import (
	"fmt"

	"github.com/nerdtakula/supervisor"
)

// DefaultSupervisorPort is the management port of the supervisor process.
const DefaultSupervisorPort = 9001

// stateRunning is the supervisord state name of a healthy process.
const stateRunning = "RUNNING"

// ServiceManager starts and inspects the supervised services of the image.
type ServiceManager interface {
	// IsActive reports whether the named service is running.
	IsActive(name string) (bool, error)
	// Start asks the manager to start the named service, without waiting
	// for the start to finish.
	Start(name string) error
}

// ServiceStartError signals a service that stayed inactive even after an
// explicit start request.
type ServiceStartError struct {
	Service string
}

func (e *ServiceStartError) Error() string {
	return fmt.Sprintf("service %s did not become active after being started", e.Service)
}

// SupervisorManager implements ServiceManager over the supervisord XML-RPC
// API, the process manager of the image.
type SupervisorManager struct {
	client supervisor.Client
}

// NewSupervisorManager connects to the supervisord control port on localhost.
func NewSupervisorManager(port int) *SupervisorManager {
	return &SupervisorManager{
		client: supervisor.New("localhost", port, "", ""),
	}
}

// IsActive reports whether the process is in the RUNNING state.
func (m *SupervisorManager) IsActive(name string) (bool, error) {
	info, err := m.client.GetProcessInfo(name)
	if err != nil {
		return false, err
	}
	return info.StateName == stateRunning, nil
}

// Start asks supervisord to start the process.
func (m *SupervisorManager) Start(name string) error {
	_, err := m.client.StartProcess(name, false)
	return err
}
