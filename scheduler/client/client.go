// Package client talks to the status server of a running scheduler.
package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/node"
)

// ~30s total of trying with exponential backoff
const DefaultHTTPTries = 5

const DefaultStatusAddr = "localhost:9890"

// Doer is satisfied by *pester.Client and *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

func MakePesterClient() *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = DefaultHTTPTries
	client.LogHook = func(e pester.ErrEntry) {
		log.Errorf("Retrying after failed attempt: %+v", e)
	}
	return client
}

// StatusClient queries and controls a scheduler through its status server.
type StatusClient struct {
	rootURI string
	client  Doer
}

func NewStatusClient(addr string) *StatusClient {
	return NewCustomStatusClient(addr, MakePesterClient())
}

func NewCustomStatusClient(addr string, client Doer) *StatusClient {
	if addr == "" {
		addr = DefaultStatusAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &StatusClient{rootURI: strings.TrimSuffix(addr, "/"), client: client}
}

// GetStatus returns the raw JSON status snapshot.
func (c *StatusClient) GetStatus() (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(http.MethodGet, "/status", &raw)
	return raw, err
}

func (c *StatusClient) GetNodes() ([]node.Status, error) {
	var nodes []node.Status
	err := c.do(http.MethodGet, "/nodes", &nodes)
	return nodes, err
}

func (c *StatusClient) GetNode(agentID string) (*node.Status, error) {
	n := &node.Status{}
	if err := c.do(http.MethodGet, "/nodes/"+url.PathEscape(agentID), n); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *StatusClient) PauseNode(agentID, reason string) error {
	path := fmt.Sprintf("/nodes/%s/pause?reason=%s", url.PathEscape(agentID), url.QueryEscape(reason))
	return c.do(http.MethodPost, path, nil)
}

func (c *StatusClient) ResumeNode(agentID string) error {
	return c.do(http.MethodPost, fmt.Sprintf("/nodes/%s/resume", url.PathEscape(agentID)), nil)
}

func (c *StatusClient) do(method, path string, out interface{}) error {
	uri := c.rootURI + path
	req, err := http.NewRequest(method, uri, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, uri)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "reading response of %s %s", method, uri)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s: %s", method, uri, resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(body, out), "decoding response of %s %s", method, uri)
}
