// Command shadow_compare calls the same read endpoints on the gateway and on the upstream API and
// reports where the gateway's data drifts from what the upstream returned.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
)

type target struct {
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	Body     string   `json:"body,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	Critical bool     `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type comparison struct {
	Target           target
	UpstreamStatus   int
	GatewayStatus    int
	StatusMatch      bool
	Diff             string
	Error            error
	DurationGateway  time.Duration
	DurationUpstream time.Duration
}

func (c comparison) ok() bool {
	return c.Error == nil && c.StatusMatch && c.Diff == ""
}

// defaultTargets are the public catalogue reads, which the gateway passes through unchanged apart
// from normalising requirements.
var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/layanan", Fields: []string{"id", "nama", "kategori", "status"}, Critical: true},
	{Method: http.MethodGet, Path: "/layanan?kategori=surat", Fields: []string{"id", "nama", "kategori"}},
}

func main() {
	var (
		gatewayBase  string
		upstreamBase string
		targetsPath  string
		timeout      time.Duration
	)

	flag.StringVar(&gatewayBase, "gateway-base", "http://localhost:8080/api", "Gateway API base URL")
	flag.StringVar(&upstreamBase, "upstream-base", "http://localhost:8000/api", "Upstream API base URL")
	flag.StringVar(&targetsPath, "targets", "", "Path to JSON targets file (default: built-in read endpoints)")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets := defaultTargets
	if targetsPath != "" {
		loaded, err := loadTargets(targetsPath)
		if err != nil {
			log.Fatalf("failed to load targets: %v", err)
		}
		targets = loaded
	}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)
	for _, t := range targets {
		comp := compareTarget(client, gatewayBase, upstreamBase, t)
		if !comp.ok() {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(os.Stdout, comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, gatewayBase, upstreamBase string, tgt target) comparison {
	comp := comparison{Target: tgt}
	gwStatus, gwBody, gwDur, gwErr := perform(client, gatewayBase, tgt)
	upStatus, upBody, upDur, upErr := perform(client, upstreamBase, tgt)
	comp.DurationGateway = gwDur
	comp.DurationUpstream = upDur

	if gwErr != nil {
		comp.Error = fmt.Errorf("gateway request failed: %w", gwErr)
		return comp
	}
	if upErr != nil {
		comp.Error = fmt.Errorf("upstream request failed: %w", upErr)
		return comp
	}

	comp.GatewayStatus = gwStatus
	comp.UpstreamStatus = upStatus
	comp.StatusMatch = statusClass(gwStatus) == statusClass(upStatus)
	if !comp.StatusMatch || gwStatus >= 400 {
		return comp
	}

	gwData, err := extractData(gwBody)
	if err != nil {
		comp.Error = fmt.Errorf("decode gateway body: %w", err)
		return comp
	}
	upData, err := extractData(upBody)
	if err != nil {
		comp.Error = fmt.Errorf("decode upstream body: %w", err)
		return comp
	}
	if len(tgt.Fields) > 0 {
		gwData = project(gwData, tgt.Fields)
		upData = project(upData, tgt.Fields)
	}
	comp.Diff = cmp.Diff(upData, gwData)
	return comp
}

func perform(client *http.Client, base string, tgt target) (int, []byte, time.Duration, error) {
	if client == nil {
		return 0, nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if tgt.Body != "" {
		body = strings.NewReader(tgt.Body)
	}
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, time.Since(start), fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, raw, time.Since(start), nil
}

func statusClass(code int) int {
	return code / 100
}

// extractData returns the "data" member of either envelope, or the whole document when the reply
// is not wrapped.
func extractData(raw []byte) (interface{}, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if m, ok := doc.(map[string]interface{}); ok {
		if data, ok := m["data"]; ok {
			return data, nil
		}
	}
	return doc, nil
}

// project keeps only the named keys of an object, or of every object in a list.
func project(v interface{}, fields []string) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			if fv, ok := val[f]; ok {
				out[f] = fv
			}
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = project(item, fields)
		}
		return out
	default:
		return v
	}
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "=====================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Fprintf(w, "  Gateway Status: %d (%s)\n", res.GatewayStatus, res.DurationGateway)
		fmt.Fprintf(w, "  Upstream Status: %d (%s)\n", res.UpstreamStatus, res.DurationUpstream)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
			continue
		}
		fmt.Fprintf(w, "  Status match: %t | Critical: %t\n", res.StatusMatch, res.Target.Critical)
		if res.Diff != "" {
			fmt.Fprintf(w, "  Data diff (-upstream +gateway):\n%s", res.Diff)
		}
	}
}
