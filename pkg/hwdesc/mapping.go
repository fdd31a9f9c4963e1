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

package hwdesc

import (
	"encoding/json"
	"io/ioutil"

	"github.com/pkg/errors"
)

// Mapping records which host device ended up bound to which hardware port
// name during one provisioning run.
type Mapping map[string]string

// SaveMapping serializes the mapping into a JSON document at the given path.
// Later boot participants read it to translate device labels to port names.
func SaveMapping(path string, m Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "serializing port mapping")
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing port mapping %s", path)
	}
	return nil
}

// LoadMapping reads back a mapping document written by SaveMapping.
func LoadMapping(path string) (Mapping, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading port mapping %s", path)
	}
	m := Mapping{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return m, nil
}
