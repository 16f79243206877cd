// Package runtime talks to the Python inference sidecar over TCP. Requests
// are newline-terminated JSON commands behind a "MODEL:" prefix; responses
// come back as 4-byte big-endian length-prefixed JSON.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glyphworks/ocr-server/internal/ocr/engine"
	"github.com/glyphworks/ocr-server/pkg/tcpclient"
)

const commandPrefix = "MODEL:"

type Command string

const (
	CommandLoad   Command = "LOAD"
	CommandUnload Command = "UNLOAD"
	CommandInfer  Command = "INFER"
)

type Request struct {
	Command    Command `json:"command"`
	ModelID    string  `json:"model_id,omitempty"`
	Prompt     string  `json:"prompt,omitempty"`
	ImagePath  string  `json:"image_path,omitempty"`
	OutputPath string  `json:"output_path,omitempty"`
	BaseSize   int     `json:"base_size,omitempty"`
	ImageSize  int     `json:"image_size,omitempty"`
	CropMode   bool    `json:"crop_mode,omitempty"`
}

// Response is what the sidecar answers with. Text is a pointer so that a
// missing transcript can be told apart from a legitimately empty one.
type Response struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Text    *string `json:"text,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Client implements engine.Runtime against the sidecar.
type Client struct {
	tcp     *tcpclient.TCPClient
	modelID string
}

func NewClient(tcp *tcpclient.TCPClient, modelID string) *Client {
	return &Client{
		tcp:     tcp,
		modelID: modelID,
	}
}

func (c *Client) Load(ctx context.Context) error {
	_, err := c.send(ctx, Request{Command: CommandLoad, ModelID: c.modelID})
	return err
}

func (c *Client) Unload(ctx context.Context) error {
	_, err := c.send(ctx, Request{Command: CommandUnload, ModelID: c.modelID})
	return err
}

func (c *Client) Infer(ctx context.Context, args engine.InferArgs) (string, error) {
	resp, err := c.send(ctx, Request{
		Command:    CommandInfer,
		ModelID:    c.modelID,
		Prompt:     args.Prompt,
		ImagePath:  args.ImagePath,
		OutputPath: args.OutputPath,
		BaseSize:   args.BaseSize,
		ImageSize:  args.ImageSize,
		CropMode:   args.CropMode,
	})
	if err != nil {
		return "", err
	}

	if resp.Text == nil {
		return "", fmt.Errorf("runtime returned no result")
	}

	return *resp.Text, nil
}

func (c *Client) Close() error {
	return c.tcp.Close()
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	raw, err := c.tcp.Call(ctx, commandPrefix+string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to reach runtime: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = resp.Message
		}

		return nil, fmt.Errorf("runtime error: %s", reason)
	}

	return &resp, nil
}
