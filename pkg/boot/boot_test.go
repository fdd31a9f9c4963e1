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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/onsi/gomega"

	"github.com/openswitch/ops-init/mock/ovsdb"
	"github.com/openswitch/ops-init/mock/services"
	"github.com/openswitch/ops-init/pkg/hwdesc"
	"github.com/openswitch/ops-init/pkg/readiness"
)

type fakeBinder struct {
	called bool
	queue  *hwdesc.Queue
	err    error
}

func (f *fakeBinder) Bind(q *hwdesc.Queue) (hwdesc.Mapping, error) {
	f.called = true
	f.queue = q
	return hwdesc.Mapping{}, f.err
}

type bootFixture struct {
	boot     *Boot
	binder   *fakeBinder
	flags    *ovsdb.MockFlags
	services *services.MockServiceManager
	dir      string
}

// newBootFixture lays out a fully booted image: all gate files present,
// both flags set, both services active. Tests perturb it from there.
func newBootFixture(t *testing.T) (*bootFixture, func()) {
	dir, err := ioutil.TempDir("", "boot-test")
	if err != nil {
		t.Fatal(err)
	}

	hwdescDir := filepath.Join(dir, "hwdesc")
	if err := os.Mkdir(hwdescDir, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "swns"):             "",
		filepath.Join(hwdescDir, "ports.yaml"): "ports:\n  - name: 49\n  - name: 50\n",
		filepath.Join(dir, "db.sock"):          "",
		filepath.Join(dir, "switchd.pid"):      "42\n",
	}
	for path, content := range files {
		if err := ioutil.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		t.Fatal(err)
	}

	poller := readiness.NewPoller(3, logrus.DefaultLogger())
	poller.Interval = time.Millisecond

	f := &bootFixture{
		binder:   &fakeBinder{},
		flags:    ovsdb.NewMockFlags(),
		services: services.NewMockServiceManager(),
		dir:      dir,
	}
	f.flags.Set(FlagHardwareReady)
	f.flags.Set(FlagConfigApplied)
	f.services.SetActive("switchd")
	f.services.SetActive("restd")

	f.boot = &Boot{
		Deps: Deps{
			Log:      logrus.DefaultLogger(),
			Binder:   f.binder,
			DB:       f.flags,
			Services: f.services,
			Poller:   poller,
		},
		Config: Config{
			NamespaceRunDir: dir,
			SwitchNamespace: "swns",
			HwdescDir:       hwdescDir,
			DBSocket:        filepath.Join(dir, "db.sock"),
			SwitchdPidFile:  filepath.Join(dir, "switchd.pid"),
			Hostname:        hostname,
			SwitchdService:  "switchd",
			RestService:     "restd",
		},
	}
	return f, func() { os.RemoveAll(dir) }
}

func TestRunAllGates(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	err := f.boot.Run()
	gomega.Expect(err).To(gomega.BeNil())

	gomega.Expect(f.binder.called).To(gomega.BeTrue())
	gomega.Expect(f.binder.queue.Remaining()).To(gomega.Equal([]string{"49", "50"}))

	// restd was already active, no start was issued
	gomega.Expect(f.services.Started).To(gomega.BeEmpty())
}

func TestRunNamespaceGateTimesOut(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	err := os.Remove(filepath.Join(f.dir, "swns"))
	gomega.Expect(err).To(gomega.BeNil())

	runErr := f.boot.Run()
	timeout, ok := runErr.(*readiness.TimeoutError)
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(timeout.Check).To(gomega.Equal("switch namespace"))

	// aborted before provisioning
	gomega.Expect(f.binder.called).To(gomega.BeFalse())
}

func TestRunDescriptorLoadFailure(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	err := os.Remove(filepath.Join(f.boot.HwdescDir, "ports.yaml"))
	gomega.Expect(err).To(gomega.BeNil())

	runErr := f.boot.Run()
	gomega.Expect(runErr).NotTo(gomega.BeNil())
	gomega.Expect(f.binder.called).To(gomega.BeFalse())
}

func TestRunBinderFailureAborts(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.binder.err = fmt.Errorf("no port name left for device eth7")

	runErr := f.boot.Run()
	gomega.Expect(runErr).To(gomega.Equal(f.binder.err))

	// the database gates never ran
	gomega.Expect(f.flags.Reads[FlagHardwareReady]).To(gomega.Equal(0))
}

func TestRunWaitsForFlags(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.flags = ovsdb.NewMockFlags()
	f.boot.DB = f.flags
	f.flags.SetAfter(FlagHardwareReady, 2)
	f.flags.Set(FlagConfigApplied)

	err := f.boot.Run()
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(f.flags.Reads[FlagHardwareReady]).To(gomega.Equal(3))
	gomega.Expect(f.flags.Reads[FlagConfigApplied]).To(gomega.Equal(1))
}

func TestRunFlagNeverSet(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.flags = ovsdb.NewMockFlags()
	f.boot.DB = f.flags
	f.flags.Set(FlagConfigApplied)

	runErr := f.boot.Run()
	timeout, ok := runErr.(*readiness.TimeoutError)
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(timeout.Check).To(gomega.Equal("hardware initialization flag"))
	gomega.Expect(timeout.Error()).To(gomega.ContainSubstring(FlagHardwareReady))
}

func TestRunFlagProbeError(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.flags.Err = fmt.Errorf("connection refused")

	runErr := f.boot.Run()
	gomega.Expect(runErr).NotTo(gomega.BeNil())
	gomega.Expect(runErr.Error()).To(gomega.ContainSubstring("connection refused"))
}

func TestRunSwitchDaemonNeverActive(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.services = services.NewMockServiceManager()
	f.boot.Services = f.services
	f.services.SetActive("restd")

	runErr := f.boot.Run()
	timeout, ok := runErr.(*readiness.TimeoutError)
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(timeout.Check).To(gomega.Equal("switch daemon"))

	gomega.Expect(f.services.Started).To(gomega.BeEmpty())
}

func TestRunHostnameGate(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.boot.Hostname = "some-other-host"

	runErr := f.boot.Run()
	timeout, ok := runErr.(*readiness.TimeoutError)
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(timeout.Check).To(gomega.Equal("hostname"))
}

func TestRunStartsInactiveRestService(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.services = services.NewMockServiceManager()
	f.boot.Services = f.services
	f.services.SetActive("switchd")
	f.services.ActivateAfterStart("restd", 1)

	err := f.boot.Run()
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(f.services.Started).To(gomega.Equal([]string{"restd"}))
}

func TestRunRestServiceStartTimeout(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.services = services.NewMockServiceManager()
	f.boot.Services = f.services
	f.services.SetActive("switchd")

	runErr := f.boot.Run()
	startErr, ok := runErr.(*ServiceStartError)
	gomega.Expect(ok).To(gomega.BeTrue())
	gomega.Expect(startErr.Service).To(gomega.Equal("restd"))

	gomega.Expect(f.services.Started).To(gomega.Equal([]string{"restd"}))
}

func TestRunRestServiceStartCommandFails(t *testing.T) {
	gomega.RegisterTestingT(t)

	f, cleanup := newBootFixture(t)
	defer cleanup()

	f.services = services.NewMockServiceManager()
	f.boot.Services = f.services
	f.services.SetActive("switchd")
	f.services.StartErr = fmt.Errorf("supervisord refused")

	runErr := f.boot.Run()
	gomega.Expect(runErr).NotTo(gomega.BeNil())
	gomega.Expect(runErr.Error()).To(gomega.ContainSubstring("starting service restd"))
}
