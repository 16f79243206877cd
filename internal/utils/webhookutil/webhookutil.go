package webhookutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var successStatuses = []int{http.StatusOK, http.StatusCreated, http.StatusAccepted}

func isSuccess(status int) bool {
	for _, s := range successStatuses {
		if s == status {
			return true
		}
	}

	return false
}

// Invoke POSTs data as JSON to url. Statuses 200, 201 and 202 count as
// delivered.
func Invoke[T any](ctx context.Context, url string, data T) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 2 * time.Minute}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// InvokeWithRetries calls Invoke up to maxAttempts times, doubling the wait
// between attempts starting from one second. It returns early when ctx ends.
func InvokeWithRetries[T any](ctx context.Context, url string, data T, maxAttempts int) error {
	var err error
	wait := time.Second
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = Invoke(ctx, url, data); err == nil {
			return nil
		}

		if attempt == maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}

	return err
}
