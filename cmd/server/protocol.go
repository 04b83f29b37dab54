// Package main provides a TCP line server for ComandaDB.
package main

import (
	"encoding/json"
)

// Request represents one operation from the client: a statement plus its
// positional parameters. Op selects the engine entry point.
type Request struct {
	Op     string `json:"op"` // "query", "get" or "run"
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// Response represents the server's reply to a request.
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type,omitempty"` // echoes the op, or "auth"
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AuthResponse contains the outcome of an AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity,omitempty"`
	Token         string `json:"token,omitempty"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// EncodeResponse serializes a Response to JSON with a trailing newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a JSON request from a byte slice.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}
