package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// PerfResult gathers aggregated metrics for the test run.
// Atomic counters are used to avoid lock‑contention on hot paths.
// LatencySum & P95Latency are in nanoseconds.
//
// P95Latency is maintained via a lightweight reservoir sampler.
type PerfResult struct {
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	LatencySum    int64
	P95Latency    int64
}

const (
	fixedWorkers   = 50
	fixedRPSTarget = 700
	fixedDuration  = 30 * time.Second
	defaultTimeout = 30 * time.Second

	baseURL       = "http://localhost:8080"
	customerEmail = "loadtest@urbanthread.example"

	// Each request earns a fixed purchase amount so the final balance is
	// predictable: successes * amount * points-per-unit.
	purchaseAmount = "2.50"
	pointsPerUnit  = 10
	pointsPerOrder = 25
)

func main() {
	// ─── HTTP Client & Transport ─────────────────────────────────
	transport := &http.Transport{
		MaxIdleConns:        fixedWorkers * 4,
		MaxIdleConnsPerHost: fixedWorkers * 4,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   defaultTimeout,
	}

	// ─── Baseline balance ───────────────────────────────────────
	startBalance, err := fetchBalance(httpClient)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to fetch starting balance: %v\n", err)
		os.Exit(1)
	}

	// ─── Banner ──────────────────────────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("loyalty purchase load test (uniform)")
	fmt.Println("==========================================")
	fmt.Printf("customer        : %s\n", customerEmail)
	fmt.Printf("target RPS      : %d\n", fixedRPSTarget)
	fmt.Printf("duration        : %v\n", fixedDuration)
	fmt.Printf("start balance   : %d\n", startBalance)
	fmt.Println("==========================================")

	// ─── Rate limiter & context ─────────────────────────────────
	burst := fixedRPSTarget / fixedWorkers
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(fixedRPSTarget), burst)

	ctx, cancel := context.WithTimeout(context.Background(), fixedDuration)
	defer cancel()

	var result PerfResult
	var wg sync.WaitGroup

	// latencyChan collects latencies for P95 estimation.
	latencyChan := make(chan time.Duration, 4096)
	go trackP95(latencyChan, &result)

	// ─── Workers ────────────────────────────────────────────────
	for i := 0; i < fixedWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil { // context cancelled → exit
					return
				}
				doRequest(httpClient, &result, latencyChan)
			}
		}()
	}

	start := time.Now()
	<-ctx.Done() // wait for duration

	// ─── Cleanup ────────────────────────────────────────────────
	wg.Wait()
	close(latencyChan)

	totalDur := time.Since(start)

	// ─── Report ─────────────────────────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("load test results")
	fmt.Println("==========================================")
	fmt.Printf("elapsed         : %.2fs\n", totalDur.Seconds())
	fmt.Printf("total requests  : %d\n", result.TotalRequests)
	fmt.Printf("succeeded       : %d\n", result.SuccessCount)
	fmt.Printf("failed          : %d\n", result.ErrorCount)

	actualRPS := float64(result.SuccessCount) / totalDur.Seconds()
	successRate := float64(result.SuccessCount) / float64(result.TotalRequests) * 100

	var avgLatency time.Duration
	if result.SuccessCount > 0 {
		avgLatency = time.Duration(result.LatencySum / result.SuccessCount)
	}

	fmt.Printf("actual RPS      : %.2f\n", actualRPS)
	fmt.Printf("success rate    : %.2f%%\n", successRate)
	fmt.Printf("avg latency     : %v\n", avgLatency)
	fmt.Printf("p95 latency     : %v\n", time.Duration(result.P95Latency))
	fmt.Println("==========================================")

	// ─── Ledger Consistency Check ───────────────────────────────
	fmt.Println("==========================================")
	fmt.Println("ledger consistency check")
	fmt.Println("==========================================")

	if err := verifyLedgerConsistency(httpClient, startBalance, result.SuccessCount); err != nil {
		fmt.Printf("FAIL: %v\n", err)
	} else {
		fmt.Println("OK: balance matches ledger sum of recorded purchases")
	}
	fmt.Println("==========================================")
}

type customerResponse struct {
	Balance int64 `json:"balance"`
}

// fetchBalance reads the customer's derived balance via the API.
func fetchBalance(httpClient *http.Client) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reqURL := baseURL + "/api/v1/customers/" + url.PathEscape(customerEmail)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to get customer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d fetching customer", resp.StatusCode)
	}

	var body customerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode customer response: %w", err)
	}
	return body.Balance, nil
}

// doRequest posts a single purchase and collects metrics.
func doRequest(httpClient *http.Client, result *PerfResult, latencyChan chan<- time.Duration) {
	// Use independent context to avoid cancellation when test ends
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	payload, _ := json.Marshal(map[string]interface{}{
		"email":    customerEmail,
		"amount":   purchaseAmount,
		"order_id": fmt.Sprintf("perf-%d", time.Now().UnixNano()),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/v1/purchases", bytes.NewReader(payload))
	if err != nil {
		atomic.AddInt64(&result.ErrorCount, 1)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	atomic.AddInt64(&result.TotalRequests, 1)

	resp, err := httpClient.Do(req)
	latency := time.Since(start)

	if err != nil {
		atomic.AddInt64(&result.ErrorCount, 1)
		return
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		atomic.AddInt64(&result.SuccessCount, 1)
		atomic.AddInt64(&result.LatencySum, latency.Nanoseconds())
		select {
		case latencyChan <- latency:
		default:
		}
	} else {
		atomic.AddInt64(&result.ErrorCount, 1)
	}
}

// trackP95 maintains a best‑effort rolling P95 latency estimation.
func trackP95(latencies <-chan time.Duration, result *PerfResult) {
	const size = 1000
	buf := make([]int64, 0, size)

	for lat := range latencies {
		if len(buf) < size {
			buf = append(buf, lat.Nanoseconds())
		} else {
			// Replace random element (simple reservoir sampling)
			if idx := time.Now().UnixNano() % int64(size); idx < int64(size/10) {
				buf[idx] = lat.Nanoseconds()
			}
		}

		// Update P95 periodically
		if len(buf) >= 100 && len(buf)%100 == 0 {
			copyBuf := make([]int64, len(buf))
			copy(copyBuf, buf)
			quickSort(copyBuf)
			p95Index := int(float64(len(copyBuf)) * 0.95)
			if p95Index >= len(copyBuf) {
				p95Index = len(copyBuf) - 1
			}
			atomic.StoreInt64(&result.P95Latency, copyBuf[p95Index])
		}
	}
}

// quickSort sorts the array in ascending order
func quickSort(arr []int64) {
	if len(arr) < 2 {
		return
	}

	left, right := 0, len(arr)-1
	pivot := len(arr) / 2

	arr[pivot], arr[right] = arr[right], arr[pivot]

	for i := range arr {
		if arr[i] < arr[right] {
			arr[left], arr[i] = arr[i], arr[left]
			left++
		}
	}

	arr[left], arr[right] = arr[right], arr[left]

	quickSort(arr[:left])
	quickSort(arr[left+1:])
}

// verifyLedgerConsistency checks that the derived balance moved by exactly
// the points of the successfully recorded purchases
func verifyLedgerConsistency(httpClient *http.Client, startBalance, succeeded int64) error {
	endBalance, err := fetchBalance(httpClient)
	if err != nil {
		return fmt.Errorf("failed to fetch final balance: %w", err)
	}

	expected := startBalance + succeeded*pointsPerOrder
	fmt.Printf("start balance   : %d\n", startBalance)
	fmt.Printf("recorded orders : %d (%d points each)\n", succeeded, pointsPerOrder)
	fmt.Printf("expected balance: %d\n", expected)
	fmt.Printf("actual balance  : %d\n", endBalance)

	if endBalance != expected {
		return fmt.Errorf("balance mismatch: expected=%d actual=%d diff=%d",
			expected, endBalance, endBalance-expected)
	}

	return nil
}
