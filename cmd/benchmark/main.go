package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
)

// Metrics
var (
	totalCycles uint64
	soldOK      uint64
	failListing uint64
	failBuy     uint64
	failOther   uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark | Workers: %d | Duration: %s", concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, i, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// worker runs mint -> list -> buy cycles between its own seller and buyer
// accounts.
func worker(wg *sync.WaitGroup, id int, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	seller := fmt.Sprintf("bench-seller-%d-%d", id, start.UnixNano())
	buyer := fmt.Sprintf("bench-buyer-%d-%d", id, start.UnixNano())

	for _, addr := range []string{seller, buyer} {
		if err := post(client, "", "/api/v1/accounts", map[string]interface{}{"address": addr}, nil); err != nil {
			log.Printf("worker %d: account setup failed: %v", id, err)
			return
		}
		if err := post(client, "", "/api/v1/accounts/"+addr+"/deposit", map[string]interface{}{"amount": int64(1_000_000_000)}, nil); err != nil {
			log.Printf("worker %d: deposit failed: %v", id, err)
			return
		}
	}

	for time.Since(start) < duration {
		atomic.AddUint64(&totalCycles, 1)

		var mintResp struct {
			AssetID int64 `json:"asset_id"`
		}
		if err := post(client, seller, "/api/v1/assets", map[string]interface{}{
			"metadata_uri": fmt.Sprintf("ipfs://bench-%d-%d", id, time.Now().UnixNano()),
		}, &mintResp); err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		if err := post(client, seller, "/api/v1/listings", map[string]interface{}{
			"token_id": mintResp.AssetID,
			"price":    int64(100),
			"paid_fee": int64(1000),
		}, nil); err != nil {
			atomic.AddUint64(&failListing, 1)
			continue
		}

		if err := post(client, buyer, fmt.Sprintf("/api/v1/listings/%d/buy", mintResp.AssetID), map[string]interface{}{
			"payment": int64(100),
		}, nil); err != nil {
			atomic.AddUint64(&failBuy, 1)
			continue
		}

		atomic.AddUint64(&soldOK, 1)
	}
}

func post(client *http.Client, caller, path string, payload map[string]interface{}, out interface{}) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, targetURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Caller-Account", caller)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func printResults(elapsed time.Duration) {
	cycles := atomic.LoadUint64(&totalCycles)
	fmt.Println("\n--- Benchmark Results ---")
	fmt.Printf("Elapsed:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Cycles:         %d (%.1f/sec)\n", cycles, float64(cycles)/elapsed.Seconds())
	fmt.Printf("Sold:           %d\n", atomic.LoadUint64(&soldOK))
	fmt.Printf("Listing errors: %d\n", atomic.LoadUint64(&failListing))
	fmt.Printf("Buy errors:     %d\n", atomic.LoadUint64(&failBuy))
	fmt.Printf("Other errors:   %d\n", atomic.LoadUint64(&failOther))
}
