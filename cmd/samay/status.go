package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// serverStatus mirrors the body of GET /api/v1/system/metrics.
type serverStatus struct {
	Version            string           `json:"version,omitempty" yaml:"version,omitempty"`
	RequestTotal       int64            `json:"request_total" yaml:"request_total"`
	ParseFailures      int64            `json:"parse_failures" yaml:"parse_failures"`
	ResolutionFailures int64            `json:"resolution_failures" yaml:"resolution_failures"`
	UnderstoodRate     float64          `json:"understood_rate" yaml:"understood_rate"`
	AverageRequestMs   int64            `json:"average_request_ms" yaml:"average_request_ms"`
	DaemonCycles       int64            `json:"daemon_cycles" yaml:"daemon_cycles"`
	Fired              int64            `json:"fired" yaml:"fired"`
	Skipped            int64            `json:"skipped" yaml:"skipped"`
	PublishFailures    int64            `json:"publish_failures" yaml:"publish_failures"`
	StoreErrors        int64            `json:"store_errors" yaml:"store_errors"`
	DegradedEpisodes   int64            `json:"degraded_episodes" yaml:"degraded_episodes"`
	Purged             int64            `json:"purged" yaml:"purged"`
	FiredByKind        map[string]int64 `json:"fired_by_kind" yaml:"fired_by_kind"`
	Health             *struct {
		Healthy             bool      `json:"healthy" yaml:"healthy"`
		Running             bool      `json:"running" yaml:"running"`
		Degraded            bool      `json:"degraded" yaml:"degraded"`
		LastCycleAt         time.Time `json:"last_cycle_at" yaml:"last_cycle_at"`
		ConsecutiveFailures int       `json:"consecutive_failures" yaml:"consecutive_failures"`
	} `json:"health,omitempty" yaml:"health,omitempty"`
}

func fetchStatus(ctx context.Context, baseURL string) (*serverStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := strings.TrimSuffix(baseURL, "/") + "/api/v1/system/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "is samay serving at %s?", baseURL)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s: %s", url, resp.Status)
	}

	var status serverStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, errors.Wrap(err, "failed to decode metrics")
	}
	return &status, nil
}

func (a *app) statusCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show metrics and daemon health of a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				host := a.profile.Addr
				if host == "" {
					host = "127.0.0.1"
				}
				addr = "http://" + net.JoinHostPort(host, strconv.Itoa(a.profile.Port))
			}
			status, err := fetchStatus(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return a.render(status, func(tw table.Writer) {
				tw.AppendHeader(table.Row{"Metric", "Value"})
				if status.Health != nil {
					health := "healthy"
					switch {
					case status.Health.Degraded:
						health = fmt.Sprintf("degraded (%d failures)", status.Health.ConsecutiveFailures)
					case !status.Health.Running:
						health = "stopped"
					}
					tw.AppendRow(table.Row{"Daemon", health})
					if !status.Health.LastCycleAt.IsZero() {
						tw.AppendRow(table.Row{"Last cycle", status.Health.LastCycleAt.Format(time.RFC3339)})
					}
				}
				tw.AppendRows([]table.Row{
					{"Requests", status.RequestTotal},
					{"Understood", fmt.Sprintf("%.1f%%", status.UnderstoodRate)},
					{"Parse failures", status.ParseFailures},
					{"Resolution failures", status.ResolutionFailures},
					{"Avg request", fmt.Sprintf("%dms", status.AverageRequestMs)},
					{"Daemon cycles", status.DaemonCycles},
					{"Fired", status.Fired},
				})
				kinds := make([]string, 0, len(status.FiredByKind))
				for kind := range status.FiredByKind {
					kinds = append(kinds, kind)
				}
				sort.Strings(kinds)
				for _, kind := range kinds {
					tw.AppendRow(table.Row{"  " + kind, status.FiredByKind[kind]})
				}
				tw.AppendRows([]table.Row{
					{"Skipped", status.Skipped},
					{"Publish failures", status.PublishFailures},
					{"Store errors", status.StoreErrors},
					{"Degraded episodes", status.DegradedEpisodes},
					{"Purged", status.Purged},
				})
				if status.Version != "" {
					tw.AppendFooter(table.Row{"Version", status.Version})
				}
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "server base URL (default from the profile)")
	return cmd
}
