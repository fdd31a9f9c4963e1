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

package main

import (
	"os"
	"path/filepath"

	"github.com/namsral/flag"

	"github.com/ligato/cn-infra/logging"
	"github.com/ligato/cn-infra/logging/logrus"

	"github.com/openswitch/ops-init/pkg/boot"
	"github.com/openswitch/ops-init/pkg/dataplane"
	"github.com/openswitch/ops-init/pkg/hwdesc"
	"github.com/openswitch/ops-init/pkg/ovsdb"
	"github.com/openswitch/ops-init/pkg/portbind"
	"github.com/openswitch/ops-init/pkg/readiness"
)

const (
	defaultSwitchNamespace = "swns"
	defaultEmulNamespace   = "emulns"
	defaultSwitchdPidFile  = "/var/run/openvswitch/ops-switchd.pid"
	defaultHostname        = "switch"
	defaultSwitchdService  = "switchd"
	defaultRestService     = "restd"
	defaultTimeoutSeconds  = 120
)

var (
	debug          = flag.Bool("d", false, "enable verbose diagnostics")
	hwdescDir      = flag.String("hwdesc-dir", hwdesc.DefaultDir, "directory with the hardware description of the image")
	netnsDir       = flag.String("netns-dir", portbind.DefaultNamespaceRunDir, "directory where named network namespaces appear")
	swns           = flag.String("swns", defaultSwitchNamespace, "name of the switch network namespace")
	emulns         = flag.String("emulns", defaultEmulNamespace, "name of the dataplane emulation namespace, if the image uses one")
	dbSocket       = flag.String("db-sock", ovsdb.DefaultSocket, "Unix socket of the configuration database")
	switchdPidFile = flag.String("switchd-pid", defaultSwitchdPidFile, "pid file of the switch daemon")
	markerPath     = flag.String("marker", portbind.DefaultMarkerPath, "readiness marker file created once all interfaces are bound")
	mappingPath    = flag.String("mapping", "", "where to persist the port mapping (default: next to this binary)")
	hostname       = flag.String("hostname", defaultHostname, "hostname the image must report when fully configured")
	switchdService = flag.String("switchd-service", defaultSwitchdService, "name of the switch daemon service")
	restService    = flag.String("rest-service", defaultRestService, "name of the REST daemon service")
	timeout        = flag.Int("timeout", defaultTimeoutSeconds, "budget in seconds for each readiness wait")
	supervisorPort = flag.Int("supervisor-port", boot.DefaultSupervisorPort, "management port of the supervisor process")
	dataplaneCLI   = flag.String("dataplane-cli", dataplane.DefaultCLI, "runtime CLI tool of the programmable dataplane")
	thriftPort     = flag.Int("thrift-port", dataplane.DefaultThriftPort, "control port of the programmable dataplane")
)

var logger logging.Logger // global logger

// init initializes the global logger
func init() {
	logger = logrus.DefaultLogger()
	logger.SetLevel(logging.InfoLevel)
}

// resolveMappingPath places the port mapping document next to the running
// binary unless an explicit path was given.
func resolveMappingPath() (string, error) {
	if *mappingPath != "" {
		return *mappingPath, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), portbind.MappingFile), nil
}

func main() {
	flag.Parse()
	if *debug {
		logger.SetLevel(logging.DebugLevel)
	}

	mapping, err := resolveMappingPath()
	if err != nil {
		logger.Errorf("Cannot resolve port mapping location: %v", err)
		os.Exit(1)
	}

	links, err := portbind.NewNetlinkOps()
	if err != nil {
		logger.Errorf("Cannot open link operations: %v", err)
		os.Exit(1)
	}
	defer links.Close()

	db := ovsdb.NewClient(*dbSocket)
	defer db.Close()

	// one probe each 100 ms
	poller := readiness.NewPoller(*timeout*10, logger)

	binder := &portbind.Binder{
		Deps: portbind.Deps{
			Log:       logger,
			Links:     links,
			Registrar: dataplane.NewRegistrar(*emulns, *dataplaneCLI, *thriftPort),
			Waiter:    poller,
		},
		Config: portbind.Config{
			SwitchNamespace: *swns,
			EmulNamespace:   *emulns,
			NamespaceRunDir: *netnsDir,
			MappingPath:     mapping,
			MarkerPath:      *markerPath,
		},
	}

	sequence := &boot.Boot{
		Deps: boot.Deps{
			Log:      logger,
			Binder:   binder,
			DB:       db,
			Services: boot.NewSupervisorManager(*supervisorPort),
			Poller:   poller,
		},
		Config: boot.Config{
			NamespaceRunDir: *netnsDir,
			SwitchNamespace: *swns,
			HwdescDir:       *hwdescDir,
			DBSocket:        *dbSocket,
			SwitchdPidFile:  *switchdPidFile,
			Hostname:        *hostname,
			SwitchdService:  *switchdService,
			RestService:     *restService,
		},
	}

	if err := sequence.Run(); err != nil {
		logger.Errorf("Boot sequence failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Switch image fully booted")
}
