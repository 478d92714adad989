package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/flickpay/flickpos/internal/kiosk"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandReload       CommandType = "RELOAD"
	CommandRebuild      CommandType = "REBUILD"
	CommandQuit         CommandType = "QUIT"
	CommandOpenSettings CommandType = "OPEN_SETTINGS"
	CommandGetDisplays  CommandType = "GET_DISPLAYS"
	CommandReadLog      CommandType = "READ_LOG"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Version       string       `json:"version"`
	PID           int          `json:"pid"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	UpdateStaged  bool         `json:"update_staged"`
	Browser       string       `json:"browser"`
	Kiosk         kiosk.Status `json:"kiosk"`
}

// DisplayInfo is one connected display and the role it was given.
type DisplayInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Primary bool   `json:"primary"`
	// Role is "operator", "customer" or empty.
	Role string `json:"role,omitempty"`
}

// DisplaysData represents the data returned by GET_DISPLAYS
type DisplaysData struct {
	Displays []DisplayInfo `json:"displays"`
}

// ReadLogPayload limits READ_LOG to the last Tail lines when positive.
type ReadLogPayload struct {
	Tail int `json:"tail,omitempty"`
}

type LogData struct {
	Path string `json:"path"`
	Text string `json:"text"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
