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

// Package hwdesc reads the hardware description shipped inside the switch
// image and the port mapping document derived from it at boot time.
package hwdesc

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
)

const (
	// DefaultDir is where the image installs its hardware description.
	DefaultDir = "/etc/openswitch/hwdesc"

	// portsFile enumerates the front-panel ports of the emulated device.
	portsFile = "ports.yaml"
)

// PortName is the canonical hardware name of a front-panel port. The
// descriptor may spell it as a bare YAML number, so it unmarshals from
// both the quoted and the numeric form.
type PortName string

// UnmarshalJSON implements json.Unmarshaler.
func (n *PortName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = PortName(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("port name is neither a string nor a number: %s", string(b))
	}
	*n = PortName(num.String())
	return nil
}

// Port is one front-panel port entry of the hardware description.
type Port struct {
	Name PortName `json:"name"`
}

// Descriptor is the parsed hardware description of the emulated device.
type Descriptor struct {
	Ports []Port `json:"ports"`
}

// ParseError signals a hardware description that could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

// Queue hands out hardware port names in descriptor order.
type Queue struct {
	names []string
}

// NewQueue builds a queue directly from port names, in the given order.
func NewQueue(names ...string) *Queue {
	return &Queue{names: append([]string{}, names...)}
}

// Load reads the port listing from the given hardware description directory
// and returns the port names as an allocation queue, in file order.
func Load(dir string) (*Queue, error) {
	path := filepath.Join(dir, portsFile)

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading hardware description %s", path)
	}

	desc := &Descriptor{}
	if err := yaml.Unmarshal(data, desc); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	q := &Queue{}
	for i, p := range desc.Ports {
		if p.Name == "" {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("port entry %d has no name", i)}
		}
		q.names = append(q.names, string(p.Name))
	}
	return q, nil
}

// Pop removes and returns the next port name. ok is false once the queue
// is exhausted.
func (q *Queue) Pop() (name string, ok bool) {
	if len(q.names) == 0 {
		return "", false
	}
	name = q.names[0]
	q.names = q.names[1:]
	return name, true
}

// Remaining returns the port names not yet handed out, in order.
func (q *Queue) Remaining() []string {
	return q.names
}

// Len returns the number of port names not yet handed out.
func (q *Queue) Len() int {
	return len(q.names)
}
