//go:build chaos

package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"
)

type toxiproxyClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

type proxy struct {
	Name     string `json:"name"`
	Listen   string `json:"listen"`
	Upstream string `json:"upstream"`
	Enabled  bool   `json:"enabled"`
}

type toxic struct {
	Name       string                 `json:"name"`
	Type       string                 `json:"type"`
	Stream     string                 `json:"stream"`
	Toxicity   float32                `json:"toxicity"`
	Attributes map[string]interface{} `json:"attributes"`
}

func newToxiproxyClient(baseURL string) *toxiproxyClient {
	return &toxiproxyClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *toxiproxyClient) post(path string, payload interface{}, accepted ...int) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Post(c.BaseURL+path, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	for _, code := range accepted {
		if resp.StatusCode == code {
			return body, nil
		}
	}

	return nil, fmt.Errorf("POST %s (status %d): %s", path, resp.StatusCode, string(body))
}

func (c *toxiproxyClient) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.BaseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("DELETE %s (status %d): %s", path, resp.StatusCode, string(body))
	}

	return nil
}

func (c *toxiproxyClient) createProxy(name, listen, upstream string) (*proxy, error) {
	body, err := c.post("/proxies", &proxy{Name: name, Listen: listen, Upstream: upstream, Enabled: true}, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	var created proxy
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to parse created proxy response: %v, body: %s", err, string(body))
	}

	return &created, nil
}

func (c *toxiproxyClient) addToxic(proxyName string, t *toxic) error {
	_, err := c.post("/proxies/"+proxyName+"/toxics", t, http.StatusOK, http.StatusCreated)
	return err
}

func (c *toxiproxyClient) removeToxic(proxyName, toxicName string) error {
	return c.delete("/proxies/" + proxyName + "/toxics/" + toxicName)
}

func (c *toxiproxyClient) deleteProxy(name string) error {
	return c.delete("/proxies/" + name)
}

// chaosHelper puts toxiproxy proxies in front of nodes. A node behind a
// proxy advertises the proxy address, so every envelope sent to its actors
// crosses the proxy.
type chaosHelper struct {
	client  *toxiproxyClient
	proxies map[string]*proxy // node address -> proxy
	toxics  map[string][]string
}

func newChaosHelper(toxiproxyURL string) *chaosHelper {
	return &chaosHelper{
		client:  newToxiproxyClient(toxiproxyURL),
		proxies: make(map[string]*proxy),
		toxics:  make(map[string][]string),
	}
}

// proxyFor creates a proxy for nodeAddr listening on the node port + 10000
// and returns its address.
func (h *chaosHelper) proxyFor(nodeAddr string) (string, error) {
	host, port, err := net.SplitHostPort(nodeAddr)
	if err != nil {
		return "", err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return "", err
	}

	listen := net.JoinHostPort(host, strconv.Itoa(p+10000))
	created, err := h.client.createProxy("node_"+port, listen, nodeAddr)
	if err != nil {
		return "", fmt.Errorf("failed to create proxy for %s: %v", nodeAddr, err)
	}
	h.proxies[nodeAddr] = created

	return listen, nil
}

func (h *chaosHelper) addToxic(nodeAddr string, t *toxic) error {
	p, ok := h.proxies[nodeAddr]
	if !ok {
		return fmt.Errorf("proxy not found for address %s", nodeAddr)
	}

	t.Name = t.Type + "_" + p.Name
	t.Toxicity = 1.0
	if t.Stream == "" {
		t.Stream = "downstream"
	}
	if err := h.client.addToxic(p.Name, t); err != nil {
		return err
	}
	h.toxics[nodeAddr] = append(h.toxics[nodeAddr], t.Name)

	return nil
}

// addResetPeer simulates TCP RESET after optional timeout
func (h *chaosHelper) addResetPeer(nodeAddr string, timeout time.Duration) error {
	return h.addToxic(nodeAddr, &toxic{
		Type:       "reset_peer",
		Attributes: map[string]interface{}{"timeout": int(timeout.Milliseconds())},
	})
}

func (h *chaosHelper) addLatency(nodeAddr string, latency time.Duration) error {
	return h.addToxic(nodeAddr, &toxic{
		Type:       "latency",
		Attributes: map[string]interface{}{"latency": int(latency.Milliseconds()), "jitter": 0},
	})
}

// heal removes every toxic of the proxy in front of nodeAddr.
func (h *chaosHelper) heal(nodeAddr string) error {
	p, ok := h.proxies[nodeAddr]
	if !ok {
		return fmt.Errorf("proxy not found for address %s", nodeAddr)
	}

	for _, name := range h.toxics[nodeAddr] {
		if err := h.client.removeToxic(p.Name, name); err != nil {
			return err
		}
	}
	delete(h.toxics, nodeAddr)

	return nil
}

func (h *chaosHelper) cleanup() error {
	for addr, p := range h.proxies {
		if err := h.client.deleteProxy(p.Name); err != nil {
			return err
		}
		delete(h.proxies, addr)
	}

	return nil
}
