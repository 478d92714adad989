package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/flickpay/flickpos/internal/runtimepath"
)

// Client handles IPC communication with a running kiosk
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the default socket
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for a specific socket path
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    15 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to kiosk: %w (is flickpos running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("kiosk error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) command(cmd CommandType) error {
	_, err := c.sendRequest(&Request{Command: cmd})
	return err
}

func query[T any](c *Client, req *Request) (*T, error) {
	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse %s data: %w", req.Command, err)
	}
	return &out, nil
}

// GetStatus retrieves kiosk status
func (c *Client) GetStatus() (*StatusData, error) {
	return query[StatusData](c, &Request{Command: CommandGetStatus})
}

// GetDisplays retrieves displays and their roles
func (c *Client) GetDisplays() (*DisplaysData, error) {
	return query[DisplaysData](c, &Request{Command: CommandGetDisplays})
}

// ReadLog retrieves the application log, the last tail lines when tail > 0
func (c *Client) ReadLog(tail int) (*LogData, error) {
	payload, err := json.Marshal(ReadLogPayload{Tail: tail})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log payload: %w", err)
	}
	return query[LogData](c, &Request{Command: CommandReadLog, Payload: payload})
}

// Reload reloads every top-level surface
func (c *Client) Reload() error { return c.command(CommandReload) }

// Rebuild destroys and recreates every surface
func (c *Client) Rebuild() error { return c.command(CommandRebuild) }

// Quit shuts the kiosk down
func (c *Client) Quit() error { return c.command(CommandQuit) }

// OpenSettings shows the PIN prompt on the operator screen
func (c *Client) OpenSettings() error { return c.command(CommandOpenSettings) }

// Ping checks if the kiosk is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
