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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/onsi/gomega"
)

func writePortsFile(t *testing.T, content string) (dir string, cleanup func()) {
	dir, err := ioutil.TempDir("", "hwdesc-test")
	if err != nil {
		t.Fatal(err)
	}
	err = ioutil.WriteFile(filepath.Join(dir, portsFile), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return dir, func() { os.RemoveAll(dir) }
}

func TestLoad(t *testing.T) {
	gomega.RegisterTestingT(t)

	dir, cleanup := writePortsFile(t, `
ports:
  - name: 49
  - name: 50
  - name: "51"
`)
	defer cleanup()

	q, err := Load(dir)
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(q.Len()).To(gomega.Equal(3))

	// numeric and quoted names normalize to the same string form
	gomega.Expect(q.Remaining()).To(gomega.Equal([]string{"49", "50", "51"}))
}

func TestLoadMissingFile(t *testing.T) {
	gomega.RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "hwdesc-test")
	gomega.Expect(err).To(gomega.BeNil())
	defer os.RemoveAll(dir)

	_, err = Load(dir)
	gomega.Expect(err).NotTo(gomega.BeNil())

	_, isParse := err.(*ParseError)
	gomega.Expect(isParse).To(gomega.BeFalse())
}

func TestLoadMalformed(t *testing.T) {
	gomega.RegisterTestingT(t)

	dir, cleanup := writePortsFile(t, "ports: [not : valid : yaml")
	defer cleanup()

	_, err := Load(dir)
	gomega.Expect(err).NotTo(gomega.BeNil())
	gomega.Expect(err).To(gomega.BeAssignableToTypeOf(&ParseError{}))
}

func TestLoadEntryWithoutName(t *testing.T) {
	gomega.RegisterTestingT(t)

	dir, cleanup := writePortsFile(t, `
ports:
  - name: 1
  - connector: SFP
`)
	defer cleanup()

	_, err := Load(dir)
	gomega.Expect(err).NotTo(gomega.BeNil())
	gomega.Expect(err).To(gomega.BeAssignableToTypeOf(&ParseError{}))
}

func TestQueueOrder(t *testing.T) {
	gomega.RegisterTestingT(t)

	dir, cleanup := writePortsFile(t, `
ports:
  - name: 1
  - name: 2
  - name: 3
`)
	defer cleanup()

	q, err := Load(dir)
	gomega.Expect(err).To(gomega.BeNil())

	name, ok := q.Pop()
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(name).To(gomega.Equal("1"))

	name, ok = q.Pop()
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(name).To(gomega.Equal("2"))

	gomega.Expect(q.Remaining()).To(gomega.Equal([]string{"3"}))

	name, ok = q.Pop()
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(name).To(gomega.Equal("3"))

	_, ok = q.Pop()
	gomega.Expect(ok).To(gomega.BeFalse())
	gomega.Expect(q.Len()).To(gomega.Equal(0))
}

func TestMappingRoundTrip(t *testing.T) {
	gomega.RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "hwdesc-test")
	gomega.Expect(err).To(gomega.BeNil())
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "port_mapping.json")
	m := Mapping{"1": "49", "2": "50"}

	err = SaveMapping(path, m)
	gomega.Expect(err).To(gomega.BeNil())

	loaded, err := LoadMapping(path)
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(loaded).To(gomega.Equal(m))
}
