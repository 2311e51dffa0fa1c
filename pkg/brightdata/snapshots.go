package brightdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// triggerAndDownload runs the asynchronous dataset protocol: trigger a
// collection job, poll its progress until ready, then download the snapshot.
func (c *Client) triggerAndDownload(ctx context.Context, params url.Values, payload any, operation string) ([]json.RawMessage, error) {
	c.logger.Info("Triggering dataset collection", "operation", operation)
	data, err := c.doPost(ctx, "/datasets/v3/trigger", params, payload)
	if err != nil {
		return nil, fmt.Errorf("trigger failed for %s: %w", operation, err)
	}

	var trigger struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.Unmarshal(data, &trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger response: %w", err)
	}
	if trigger.SnapshotID == "" {
		return nil, fmt.Errorf("trigger response for %s has no snapshot id", operation)
	}

	if err := c.pollSnapshotStatus(ctx, trigger.SnapshotID); err != nil {
		return nil, err
	}
	return c.downloadSnapshot(ctx, trigger.SnapshotID)
}

// pollSnapshotStatus waits until the snapshot is ready. Polling is bounded
// by the configured attempt count and delay; exhaustion is an error, never
// an unbounded hang.
func (c *Client) pollSnapshotStatus(ctx context.Context, snapshotID string) error {
	for attempt := 1; attempt <= c.pollMaxAttempts; attempt++ {
		c.logger.Info("Checking snapshot progress", "snapshot_id", snapshotID, "attempt", attempt, "max", c.pollMaxAttempts)

		data, err := c.doGet(ctx, "/datasets/v3/progress/"+snapshotID)
		if err != nil {
			c.logger.Warn("Error checking progress", "error", err)
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		var progress struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(data, &progress); err != nil {
			c.logger.Warn("Failed to decode progress response", "error", err)
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		switch progress.Status {
		case "ready":
			c.logger.Info("Snapshot completed", "snapshot_id", snapshotID)
			return nil
		case "failed":
			return fmt.Errorf("snapshot %s failed", snapshotID)
		default:
			// "running" or anything unrecognized keeps polling.
			if err := c.wait(ctx); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("timed out waiting for snapshot %s", snapshotID)
}

func (c *Client) downloadSnapshot(ctx context.Context, snapshotID string) ([]json.RawMessage, error) {
	c.logger.Info("Downloading snapshot data", "snapshot_id", snapshotID)
	data, err := c.doGet(ctx, "/datasets/v3/snapshot/"+snapshotID+"?format=json")
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot: %w", err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		// Non-list snapshots are treated as empty rather than fatal.
		c.logger.Warn("Snapshot payload is not a list", "snapshot_id", snapshotID)
		return nil, nil
	}
	c.logger.Info("Downloaded snapshot", "snapshot_id", snapshotID, "items", len(items))
	return items, nil
}

func (c *Client) wait(ctx context.Context) error {
	t := time.NewTimer(c.pollDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
