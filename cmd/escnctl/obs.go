package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var obsCmd = &cobra.Command{
	Use:   "obs",
	Short: "Observability commands (Prometheus-compatible query API)",
}

var metricsURL string

type MetricRow struct {
	Name  string `json:"name"`
	Query string `json:"query"`
	Value string `json:"value"`
}

type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		Result []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

type namedQuery struct {
	name  string
	query string
}

var summaryQueries = []namedQuery{
	{"ESCN rate", `sum(rate(escn_generated_total[5m]))`},
	{"Clock reseeds", `sum(escn_clock_reseeds_total)`},
	{"Clock adjustments", `sum(escn_clock_adjustments_total)`},
	{"Cards issued (1h)", `sum(increase(escn_cards_issued_total{outcome="issued"}[1h]))`},
	{"Card replays (1h)", `sum(increase(escn_cards_issued_total{outcome="replayed"}[1h]))`},
	{"HTTP request rate", `sum(rate(escn_http_requests_total[5m]))`},
	{"HTTP P95", `histogram_quantile(0.95, sum(rate(escn_http_request_duration_seconds_bucket[5m])) by (le))`},
	{"Active requests", `sum(escn_active_requests)`},
}

var registryQueries = []namedQuery{
	{"Request rate", `sum(rate(escn_registry_requests_total[5m]))`},
	{"Failure rate", `sum(rate(escn_registry_requests_total{code!~"2.."}[5m]))`},
	{"P50", `histogram_quantile(0.5, sum(rate(escn_registry_request_duration_seconds_bucket[5m])) by (le))`},
	{"P95", `histogram_quantile(0.95, sum(rate(escn_registry_request_duration_seconds_bucket[5m])) by (le))`},
	{"P99", `histogram_quantile(0.99, sum(rate(escn_registry_request_duration_seconds_bucket[5m])) by (le))`},
}

var obsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show generator and API metrics",
	Run: func(cmd *cobra.Command, args []string) {
		printResult(runQueries(metricsURL, summaryQueries))
	},
}

var obsRegistryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Show registry client metrics",
	Run: func(cmd *cobra.Command, args []string) {
		printResult(runQueries(metricsURL, registryQueries))
	},
}

func runQueries(baseURL string, queries []namedQuery) []MetricRow {
	client := &http.Client{Timeout: 10 * time.Second}
	rows := make([]MetricRow, 0, len(queries))
	for _, q := range queries {
		rows = append(rows, MetricRow{Name: q.name, Query: q.query, Value: queryInstant(client, baseURL, q.query)})
	}
	return rows
}

func queryInstant(client *http.Client, baseURL, query string) string {
	u := strings.TrimSuffix(baseURL, "/") + "/api/v1/query?query=" + url.QueryEscape(query)
	resp, err := client.Get(u)
	if err != nil {
		return "error: " + err.Error()
	}
	defer resp.Body.Close()

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return "parse error"
	}
	if qr.Status != "success" {
		return "query failed"
	}
	if len(qr.Data.Result) == 0 {
		return "no data"
	}

	result := qr.Data.Result[0]
	if len(result.Value) >= 2 {
		return fmt.Sprintf("%v", result.Value[1])
	}
	return "no value"
}

func init() {
	obsCmd.AddCommand(obsSummaryCmd, obsRegistryCmd)
	rootCmd.AddCommand(obsCmd)
}
