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

// Package dataplane registers bound devices as ports of the emulated
// programmable dataplane through its runtime CLI tool.
package dataplane

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultCLI is the runtime CLI tool shipped in the image.
	DefaultCLI = "/usr/bin/bm_tools/runtime_CLI.py"

	// DefaultThriftPort is the control port the dataplane listens on
	// inside the emulation namespace.
	DefaultThriftPort = 10001
)

// banner is what the runtime CLI prints once it connected to the dataplane
// and processed the command. Anything else means the port was not added.
var banner = regexp.MustCompile(`Control utility for runtime P4 table manipulation\s*\nRuntimeCmd:`)

// RegistrationError signals a device the dataplane did not accept.
type RegistrationError struct {
	Device string
	Port   string
	Reply  string
}

func (e *RegistrationError) Error() string {
	if e.Reply == "" {
		return fmt.Sprintf("cannot derive dataplane id for device %s from port name %q", e.Device, e.Port)
	}
	return fmt.Sprintf("dataplane did not accept device %s as port %s: %q", e.Device, e.Port, e.Reply)
}

// Runner executes one external command, feeding it the given stdin and
// returning its combined output.
type Runner interface {
	Run(name string, args []string, stdin string) (output string, err error)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

func (execRunner) Run(name string, args []string, stdin string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Registrar drives the runtime CLI inside the emulation namespace.
type Registrar struct {
	Namespace  string
	CLI        string
	ThriftPort int

	// Runner is replaceable in tests.
	Runner Runner
}

// NewRegistrar returns a registrar executing the given runtime CLI tool
// inside the given network namespace.
func NewRegistrar(namespace, cli string, thriftPort int) *Registrar {
	return &Registrar{
		Namespace:  namespace,
		CLI:        cli,
		ThriftPort: thriftPort,
		Runner:     execRunner{},
	}
}

// Register adds the device to the dataplane under the id derived from its
// hardware port name. Dataplane ids are zero-based while hardware ports
// count from one. A failed registration is never retried, port_add is not
// idempotent and a repeat would double-register the port.
func (r *Registrar) Register(device, portName string) error {
	id, err := strconv.Atoi(portName)
	if err != nil {
		return &RegistrationError{Device: device, Port: portName}
	}
	id--

	args := []string{
		"netns", "exec", r.Namespace,
		r.CLI, "--thrift-port", strconv.Itoa(r.ThriftPort),
	}
	stdin := fmt.Sprintf("port_add %s %d\n", device, id)

	out, err := r.Runner.Run("ip", args, stdin)
	if err != nil {
		return errors.Wrapf(err, "running dataplane CLI for %s (output: %s)", device, out)
	}
	if !banner.MatchString(out) {
		return &RegistrationError{Device: device, Port: portName, Reply: out}
	}
	return nil
}
