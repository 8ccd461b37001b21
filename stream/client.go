// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package stream

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ava-labs/dutchvm/auction"
)

type Client struct {
	conn *websocket.Conn
	rl   sync.Mutex
	cl   sync.Once
}

// NewClient dials the stream served under [uri], which may be the node's
// base http URI.
func NewClient(uri string) (*Client, error) {
	uri = strings.TrimSuffix(uri, "/")
	uri = strings.Replace(uri, "http", "ws", 1)
	if !strings.HasSuffix(uri, Endpoint) {
		uri += Endpoint
	}
	conn, resp, err := websocket.DefaultDialer.Dial(uri, nil)
	if err != nil {
		return nil, err
	}
	// not using resp for now
	resp.Body.Close()
	return &Client{conn: conn}, nil
}

// ListenRecord blocks until the next purchase record arrives.
func (c *Client) ListenRecord() (*auction.PurchaseRecord, error) {
	c.rl.Lock()
	defer c.rl.Unlock()

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var r auction.PurchaseRecord
	if err := json.Unmarshal(msg, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Close() error {
	var err error
	c.cl.Do(func() {
		err = c.conn.Close()
	})
	return err
}
