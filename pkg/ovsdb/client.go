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

// Package ovsdb talks to the configuration database of the switch image
// over its Unix socket. It is not a general OVSDB client: the boot sequence
// only ever selects single boolean flags from the System table, so the
// client implements exactly the one transact/select exchange that needs.
package ovsdb

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultSocket is the database socket of the image.
	DefaultSocket = "/var/run/openvswitch/db.sock"

	// DefaultDatabase and DefaultTable locate the boot flags.
	DefaultDatabase = "OpenSwitch"
	DefaultTable    = "System"

	// requestTimeout bounds one request/response exchange so a hung
	// database surfaces as an error instead of stalling the boot
	// sequence past its own poll budget.
	requestTimeout = 5 * time.Second
)

// Client reads boot flags from the configuration database. It dials the
// socket lazily on first use and keeps the single connection for the
// lifetime of the process. Not safe for concurrent use, the boot sequence
// is strictly sequential.
type Client struct {
	Socket   string
	Database string
	Table    string

	conn net.Conn
	dec  *json.Decoder
	id   int
}

// NewClient returns a client for the database socket at the given path.
func NewClient(socket string) *Client {
	return &Client{
		Socket:   socket,
		Database: DefaultDatabase,
		Table:    DefaultTable,
	}
}

type request struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int           `json:"id"`
}

type selectOp struct {
	Op      string        `json:"op"`
	Table   string        `json:"table"`
	Where   []interface{} `json:"where"`
	Columns []string      `json:"columns"`
}

type response struct {
	Result []opResult  `json:"result"`
	Error  interface{} `json:"error"`
	ID     int         `json:"id"`
}

type opResult struct {
	Rows []map[string]interface{} `json:"rows"`
}

// FlagSet selects the given column from the System table and reports
// whether its value in the first row equals 1. An empty table or a missing
// column reads as unset, the database is simply not populated yet.
func (c *Client) FlagSet(flag string) (bool, error) {
	resp, err := c.transact(selectOp{
		Op:      "select",
		Table:   c.Table,
		Where:   []interface{}{},
		Columns: []string{flag},
	})
	if err != nil {
		return false, err
	}

	if len(resp.Result) == 0 || len(resp.Result[0].Rows) == 0 {
		return false, nil
	}
	value, ok := resp.Result[0].Rows[0][flag]
	if !ok {
		return false, nil
	}
	number, ok := value.(float64)
	return ok && number == 1, nil
}

// transact sends one transact request and decodes one response object.
// The response is framed by the JSON syntax itself, so replies of any size
// are read completely.
func (c *Client) transact(op selectOp) (*response, error) {
	if err := c.connect(); err != nil {
		return nil, err
	}

	c.id++
	data, err := json.Marshal(request{
		Method: "transact",
		Params: []interface{}{c.Database, op},
		ID:     c.id,
	})
	if err != nil {
		return nil, errors.Wrap(err, "serializing database request")
	}

	c.conn.SetDeadline(time.Now().Add(requestTimeout))
	if _, err := c.conn.Write(data); err != nil {
		c.reset()
		return nil, errors.Wrap(err, "writing to configuration database")
	}

	resp := &response{}
	if err := c.dec.Decode(resp); err != nil {
		c.reset()
		return nil, errors.Wrap(err, "reading configuration database reply")
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("configuration database error: %v", resp.Error)
	}
	return resp, nil
}

func (c *Client) connect() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", c.Socket, requestTimeout)
	if err != nil {
		return errors.Wrapf(err, "connecting to configuration database %s", c.Socket)
	}
	c.conn = conn
	c.dec = json.NewDecoder(conn)
	return nil
}

func (c *Client) reset() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.dec = nil
}

// Close releases the database connection, if one was ever opened.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.dec = nil
	return err
}
