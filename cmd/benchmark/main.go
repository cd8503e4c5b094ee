// Benchmark tool for load testing the Baobab comparison endpoint.
//
// Usage:
//
//	go run cmd/benchmark/main.go -url http://localhost:8080 -requests 2000 -workers 20
//
// This tool:
//  1. Reads the region catalog from the running server
//  2. Builds one comparison request per (region, crop) pair it finds
//  3. Fires the requests concurrently at POST /compare, cycling through the pairs
//  4. Reports latency percentiles, cache hit ratio and the cell/tier breakdown
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CompareRequest is the POST /compare body.
type CompareRequest struct {
	ScenarioIDs []string `json:"scenarios"`
	RegionID    string   `json:"region"`
	CropID      string   `json:"crop"`
	Years       []int    `json:"years"`
}

// CompareResponse holds the parts of the response the benchmark inspects.
type CompareResponse struct {
	Cached bool `json:"cached"`
	Result struct {
		Cells []struct {
			Status  string `json:"status"`
			Outcome *struct {
				Rating struct {
					Tier string `json:"tier"`
				} `json:"rating"`
			} `json:"outcome"`
			Failure *struct {
				Kind string `json:"kind"`
			} `json:"failure"`
		} `json:"cells"`
	} `json:"result"`
}

type region struct {
	ID    string   `json:"id"`
	Crops []string `json:"crops"`
}

// Results aggregates benchmark outcomes. Guarded by mu.
type Results struct {
	mu sync.Mutex

	Latencies  []time.Duration
	Errors     int
	CacheHits  int
	CellsOK    int
	Failures   map[string]int
	TierCounts map[string]int
}

func (r *Results) record(resp *CompareResponse, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Latencies = append(r.Latencies, latency)
	if resp.Cached {
		r.CacheHits++
	}
	for _, c := range resp.Result.Cells {
		if c.Status == "ok" && c.Outcome != nil {
			r.CellsOK++
			r.TierCounts[c.Outcome.Rating.Tier]++
			continue
		}
		kind := "unknown"
		if c.Failure != nil {
			kind = c.Failure.Kind
		}
		r.Failures[kind]++
	}
}

func (r *Results) fail() {
	r.mu.Lock()
	r.Errors++
	r.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Baobab base URL")
	requests := flag.Int("requests", 1000, "Total comparison requests")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	scenarios := flag.String("scenarios", "SSP1-2.6,SSP2-4.5,SSP3-7.0,SSP5-8.5", "Comma-separated scenario IDs")
	years := flag.String("years", "2030,2050,2070,2090", "Comma-separated years")
	verbose := flag.Bool("verbose", false, "Print each request result")
	flag.Parse()

	yearList, err := parseYears(*years)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("BAOBAB BENCHMARK - scenario comparison load")
	fmt.Printf("\nBaobab URL:  %s\n", *baseURL)
	fmt.Printf("Requests:    %d\n", *requests)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Scenarios:   %s\n", *scenarios)
	fmt.Printf("Years:       %v\n", yearList)
	fmt.Println()

	client := &http.Client{Timeout: 10 * time.Second}
	if err := checkHealth(client, *baseURL); err != nil {
		fmt.Printf("ERROR: Baobab not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Baobab is running:")
		fmt.Println("  go run ./cmd/baobab")
		os.Exit(1)
	}
	fmt.Println("Baobab is healthy")

	regions, err := fetchRegions(client, *baseURL)
	if err != nil {
		fmt.Printf("ERROR: failed to read regions: %v\n", err)
		os.Exit(1)
	}

	var pairs []CompareRequest
	for _, r := range regions {
		for _, crop := range r.Crops {
			pairs = append(pairs, CompareRequest{
				ScenarioIDs: strings.Split(*scenarios, ","),
				RegionID:    r.ID,
				CropID:      crop,
				Years:       yearList,
			})
		}
	}
	if len(pairs) == 0 {
		fmt.Println("ERROR: catalog has no region/crop pairs")
		os.Exit(1)
	}
	fmt.Printf("Built %d distinct requests from %d regions\n", len(pairs), len(regions))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	start := time.Now()
	results := runBenchmark(client, *baseURL, pairs, *requests, *workers, *verbose)
	printResults(results, time.Since(start))
}

func parseYears(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		y, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid year %q: %w", part, err)
		}
		out = append(out, y)
	}
	return out, nil
}

func checkHealth(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func fetchRegions(client *http.Client, baseURL string) ([]region, error) {
	resp, err := client.Get(baseURL + "/regions")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var body struct {
		Regions []region `json:"regions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	return body.Regions, nil
}

func runBenchmark(client *http.Client, baseURL string, pairs []CompareRequest, total, numWorkers int, verbose bool) *Results {
	results := &Results{
		Failures:   make(map[string]int),
		TierCounts: make(map[string]int),
	}

	work := make(chan CompareRequest, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for req := range work {
				start := time.Now()
				resp, err := compare(client, baseURL, req)
				elapsed := time.Since(start)

				if err != nil {
					results.fail()
					if verbose {
						fmt.Printf("ERROR: %s/%s -> %v\n", req.RegionID, req.CropID, err)
					}
					continue
				}
				results.record(resp, elapsed)

				if verbose {
					fmt.Printf("%-15s %-10s | cells: %3d | cached: %-5v | %v\n",
						req.RegionID, req.CropID, len(resp.Result.Cells), resp.Cached, elapsed.Round(time.Microsecond))
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		work <- pairs[i%len(pairs)]
	}
	close(work)

	wg.Wait()
	return results
}

func compare(client *http.Client, baseURL string, req CompareRequest) (*CompareResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/compare", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result CompareResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func printResults(r *Results, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")

	completed := len(r.Latencies)
	fmt.Printf("\nREQUESTS\n")
	fmt.Printf("   Completed:   %d\n", completed)
	fmt.Printf("   Errors:      %d\n", r.Errors)
	if completed > 0 {
		fmt.Printf("   Cache hits:  %d (%.1f%%)\n", r.CacheHits, 100*float64(r.CacheHits)/float64(completed))
	}

	fmt.Printf("\nCELLS\n")
	fmt.Printf("   OK:          %d\n", r.CellsOK)
	kinds := make([]string, 0, len(r.Failures))
	for k := range r.Failures {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("   Failed (%s): %d\n", k, r.Failures[k])
	}

	fmt.Printf("\nTIERS\n")
	for _, tier := range []string{"Low", "Moderate", "High", "Severe"} {
		fmt.Printf("   %-9s %d\n", tier+":", r.TierCounts[tier])
	}

	sort.Slice(r.Latencies, func(i, j int) bool { return r.Latencies[i] < r.Latencies[j] })
	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:  %v\n", duration.Round(time.Millisecond))
	if completed > 0 {
		fmt.Printf("   p50 Latency:     %v\n", percentile(r.Latencies, 0.50).Round(time.Microsecond))
		fmt.Printf("   p95 Latency:     %v\n", percentile(r.Latencies, 0.95).Round(time.Microsecond))
		fmt.Printf("   p99 Latency:     %v\n", percentile(r.Latencies, 0.99).Round(time.Microsecond))
		fmt.Printf("   Throughput:      %.2f req/sec\n", float64(completed)/duration.Seconds())
	}
	fmt.Println()
}
