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

// Ops-init is the boot-time init process of the simulated switch image.
// It binds the virtual network interfaces of the container to the hardware
// port names of the emulated device and then waits until the image is fully
// booted, in this order:
//   - wait for the switch network namespace to appear,
//   - wait for the hardware description directory,
//   - bind each host-visible interface to the next hardware port name,
//     migrate it into the switch namespace (and, on images with a separate
//     dataplane emulation namespace, onward into that namespace, bring it
//     up and register it with the dataplane), persist the resulting
//     mapping and create the interface-readiness marker file,
//   - wait for the configuration database socket,
//   - wait for the cur_hw and cur_cfg flags in the System table,
//   - wait for the switch daemon pid file and for the daemon to report
//     running to the process supervisor,
//   - wait for the hostname to reach its configured value,
//   - make sure the REST daemon is active, starting it when it is not.
//
// The process exits 0 once every gate passed, and 1 with the failing gate
// on stderr otherwise. It performs no cleanup on failure: interface
// migration is not resumable, recovery is a restart of the whole container
// by its supervisor.
package main
