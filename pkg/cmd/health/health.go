// Package health implements airmctl's dispatcher-health-tailing command,
// polling a dispatcher's own /v1/health (internal/dispatcher/health)
// endpoint and printing every change of state (spec §4.9 "Health").
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

type healthResponse struct {
	OK    bool     `json:"ok"`
	Stale []string `json:"stale_watchers,omitempty"`
}

// NewHealthCommand returns the "health" command.
func NewHealthCommand() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "health URL",
		Short: "Tail a dispatcher's /v1/health endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return tail(cmd.Context(), cmd.OutOrStdout(), args[0], interval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Poll interval.")

	return cmd
}

func tail(ctx context.Context, out io.Writer, url string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""

	for {
		resp, err := poll(ctx, url)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		} else {
			line := formatResponse(resp)
			if line != last {
				fmt.Fprintln(out, line)

				last = line
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func poll(ctx context.Context, url string) (healthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return healthResponse{}, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return healthResponse{}, err
	}
	defer resp.Body.Close()

	var body healthResponse

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return healthResponse{}, err
	}

	return body, nil
}

func formatResponse(r healthResponse) string {
	if r.OK {
		return "ok"
	}

	return fmt.Sprintf("stale watchers: %v", r.Stale)
}
