package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"
)

// End-to-end activity delivery benchmark: registers users, builds a
// follow graph, creates recommendations, then polls each follower's
// activity stream until the event lands. The measured latency covers
// the full pipeline: HTTP write, Kafka publish, worker fan-out,
// activity read.

// UserResp represents the response returned after registration
type UserResp struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// RecResp is the recommendation returned by POST /api/recs
type RecResp struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	MovieID  string `json:"movie_id"`
}

// ActivityItem is a single entry of a follower's activity stream
type ActivityItem struct {
	RecID    string `json:"rec_id"`
	AuthorID string `json:"author_id"`
}

type deliverySample struct {
	recID     string
	latencyMs float64
	delivered bool
}

func main() {
	// --- Command-line flags ---
	var server string
	var numUsers int
	var followsPerUser int
	var numRecs int
	var pollTimeout int
	var csvFile string
	var trimPercent float64

	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&numUsers, "users", 50, "number of users to register")
	flag.IntVar(&followsPerUser, "follows", 5, "follow edges per user")
	flag.IntVar(&numRecs, "recs", 200, "recommendations to create")
	flag.IntVar(&pollTimeout, "timeout", 30, "seconds to wait for each delivery")
	flag.StringVar(&csvFile, "csv", "delivery_latencies.csv", "CSV file for latencies")
	flag.Float64Var(&trimPercent, "trim", 1.0, "percent to trim for trimmed mean")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	// --- Register users ---
	fmt.Printf("Registering %d users...\n", numUsers)
	users := make([]UserResp, numUsers)
	for i := range users {
		u, err := registerUser(client, server, fmt.Sprintf("e2e-user-%d-%d", i, time.Now().UnixNano()))
		if err != nil {
			panic(err)
		}
		users[i] = u
	}

	// --- Build follow graph ---
	// followers[authorIdx] lists the users following that author.
	fmt.Printf("Creating %d follow edges per user...\n", followsPerUser)
	followers := make(map[int][]int)
	for i := range users {
		seen := map[int]bool{i: true}
		for len(seen)-1 < followsPerUser && len(seen) < numUsers {
			target := rand.Intn(numUsers)
			if seen[target] {
				continue
			}
			seen[target] = true
			if err := follow(client, server, users[i], users[target].UserID); err != nil {
				panic(err)
			}
			followers[target] = append(followers[target], i)
		}
	}

	// --- Create recommendations and time delivery ---
	fmt.Printf("Creating %d recommendations and polling follower activity...\n", numRecs)
	samples := make([]deliverySample, numRecs)
	var wg sync.WaitGroup

	for r := 0; r < numRecs; r++ {
		wg.Add(1)
		go func(seq int) {
			defer wg.Done()

			authorIdx := rand.Intn(numUsers)
			fs := followers[authorIdx]
			if len(fs) == 0 {
				samples[seq] = deliverySample{delivered: true} // nobody to deliver to
				return
			}
			watcher := users[fs[rand.Intn(len(fs))]]

			start := time.Now()
			rec, err := createRec(client, server, users[authorIdx], fmt.Sprintf("e2e-movie-%d-%d", seq, time.Now().UnixNano()))
			if err != nil {
				fmt.Printf("create rec failed: %v\n", err)
				samples[seq] = deliverySample{delivered: false}
				return
			}

			deadline := time.Now().Add(time.Duration(pollTimeout) * time.Second)
			for time.Now().Before(deadline) {
				if activityContains(client, server, watcher, rec.ID) {
					samples[seq] = deliverySample{
						recID:     rec.ID,
						latencyMs: time.Since(start).Seconds() * 1000,
						delivered: true,
					}
					return
				}
				time.Sleep(100 * time.Millisecond)
			}
			samples[seq] = deliverySample{recID: rec.ID, delivered: false}
		}(r)
	}
	wg.Wait()

	// --- Aggregate results ---
	var latencies []float64
	missed := 0
	for _, s := range samples {
		if !s.delivered {
			missed++
			continue
		}
		if s.latencyMs > 0 {
			latencies = append(latencies, s.latencyMs)
		}
	}
	sort.Float64s(latencies)

	fmt.Printf("Delivered: %d  Missed: %d\n", len(latencies), missed)
	if len(latencies) > 0 {
		fmt.Printf("Delivery latency (ms): trimmed_mean=%.2f p50=%.2f p90=%.2f p99=%.2f\n",
			trimmedMean(latencies, trimPercent),
			percentile(latencies, 50),
			percentile(latencies, 90),
			percentile(latencies, 99))
	}

	// --- Save latencies to CSV ---
	f, err := os.Create(csvFile)
	if err != nil {
		fmt.Printf("Failed to create CSV file: %v\n", err)
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	w.Write([]string{"latency_ms"})
	for _, d := range latencies {
		w.Write([]string{fmt.Sprintf("%.3f", d)})
	}
	fmt.Printf("Saved latencies to %s\n", csvFile)
}

func registerUser(client *http.Client, server, username string) (UserResp, error) {
	b, _ := json.Marshal(map[string]string{"username": username})
	resp, err := client.Post(server+"/api/users", "application/json", bytes.NewReader(b))
	if err != nil {
		return UserResp{}, fmt.Errorf("register %s: %w", username, err)
	}
	defer resp.Body.Close()

	var u UserResp
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return UserResp{}, fmt.Errorf("decode register response: %w", err)
	}
	return u, nil
}

func follow(client *http.Client, server string, user UserResp, targetID string) error {
	b, _ := json.Marshal(map[string]string{"following": targetID})
	resp, err := authedRequest(client, "POST", server+"/api/follow", user.Token, b)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("follow returned status %d", resp.StatusCode)
	}
	return nil
}

func createRec(client *http.Client, server string, user UserResp, movieID string) (RecResp, error) {
	b, _ := json.Marshal(map[string]string{
		"movie_id": movieID,
		"title":    "e2e bench movie",
	})
	resp, err := authedRequest(client, "POST", server+"/api/recs", user.Token, b)
	if err != nil {
		return RecResp{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return RecResp{}, fmt.Errorf("create rec returned status %d", resp.StatusCode)
	}
	var rec RecResp
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return RecResp{}, fmt.Errorf("decode rec response: %w", err)
	}
	return rec, nil
}

func activityContains(client *http.Client, server string, user UserResp, recID string) bool {
	resp, err := authedRequest(client, "GET", server+"/api/activity", user.Token, nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var items []ActivityItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return false
	}
	for _, it := range items {
		if it.RecID == recID {
			return true
		}
	}
	return false
}

func authedRequest(client *http.Client, method, url, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return client.Do(req)
}

// trimmedMean calculates mean latency after trimming top/bottom trimPercent values
func trimmedMean(data []float64, trimPercent float64) float64 {
	if len(data) == 0 {
		return 0
	}
	trim := int(float64(len(data)) * trimPercent / 100.0)
	if trim*2 >= len(data) {
		trim = len(data) / 2
	}
	trimmed := data[trim : len(data)-trim]
	var sum float64
	for _, v := range trimmed {
		sum += v
	}
	return sum / float64(len(trimmed))
}

// percentile calculates the p-th percentile from sorted data
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	k := (p / 100.0) * float64(len(data)-1)
	f := int(k)
	c := f + 1
	if c >= len(data) {
		return data[len(data)-1]
	}
	return data[f]*(float64(c)-k) + data[c]*(k-float64(f))
}
