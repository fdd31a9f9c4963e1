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

// Package readiness provides the bounded-retry loop the boot sequence uses
// to wait on its readiness conditions.
package readiness

import (
	"fmt"
	"time"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

const (
	// DefaultInterval is the pause between two probes of a condition.
	DefaultInterval = 100 * time.Millisecond

	// DefaultBudget bounds how many times a condition is probed before the
	// wait is declared failed. 1200 probes at the default interval gives
	// two minutes.
	DefaultBudget = 1200
)

// Predicate reports whether the awaited condition currently holds.
// A non-nil error aborts the wait immediately, it is not retried.
type Predicate func() (bool, error)

// Check is a named condition together with the message reported when the
// wait for it times out.
type Check struct {
	Name    string
	Probe   Predicate
	Message string
}

// TimeoutError signals a check that never became true within the probe budget.
type TimeoutError struct {
	Check   string
	Message string
	Probes  int
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s not ready after %d probes (%v)", e.Check, e.Probes, e.Elapsed)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Poller retries readiness probes on a fixed cadence.
type Poller struct {
	Interval time.Duration
	Budget   int
	Log      logging.Logger
}

// NewPoller returns a Poller with the default cadence and the given probe
// budget. A non-positive budget selects the default.
func NewPoller(budget int, log logging.Logger) *Poller {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Poller{
		Interval: DefaultInterval,
		Budget:   budget,
		Log:      log,
	}
}

// Await probes the check until it holds or the probe budget runs out.
// The budget counts evaluations, so a condition that becomes true right
// before the k-th probe is observed on that probe.
func (p *Poller) Await(c Check) error {
	start := time.Now()
	p.Log.Debugf("Waiting for %s", c.Name)

	for i := 0; i < p.Budget; i++ {
		ok, err := c.Probe()
		if err != nil {
			return errors.Wrapf(err, "checking %s", c.Name)
		}
		if ok {
			p.Log.Debugf("%s ready after %d probe(s)", c.Name, i+1)
			return nil
		}
		if i+1 < p.Budget {
			time.Sleep(p.Interval)
		}
	}

	return &TimeoutError{
		Check:   c.Name,
		Message: c.Message,
		Probes:  p.Budget,
		Elapsed: time.Since(start),
	}
}
