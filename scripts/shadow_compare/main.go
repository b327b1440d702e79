// Command shadow_compare replays a fixed set of read-only requests against
// two deployments of the scheduler API and reports response drift. It is
// run before promoting a new build: baseline is the live deployment,
// candidate the one about to replace it. Both must point at the same
// database, otherwise row-level differences drown out real drift.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"text/tabwriter"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

// volatileKeys are envelope fields that legitimately differ between two
// backends: per-request identifiers, signing timestamps and signed
// download tokens. They are removed before bodies are compared.
var volatileKeys = map[string]bool{
	"request_id":  true,
	"requestId":   true,
	"generatedAt": true,
	"createdAt":   true,
	"updatedAt":   true,
	"expiresAt":   true,
	"downloadUrl": true,
}

type probe struct {
	status int
	body   []byte
	took   time.Duration
	err    error
}

type verdict struct {
	target    target
	baseline  probe
	candidate probe
	drifted   bool
}

func main() {
	baselineBase := flag.String("baseline", "http://localhost:8080", "base URL of the live deployment")
	candidateBase := flag.String("candidate", "http://localhost:8081", "base URL of the build under test")
	targetsPath := flag.String("targets", filepath.Join("scripts", "shadow_compare", "targets.json"), "JSON file listing request targets")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	flag.Parse()

	targets, err := readTargets(*targetsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shadow_compare: %v\n", err)
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	verdicts := make([]verdict, 0, len(targets))
	critical := 0
	benign := 0

	for _, tgt := range targets {
		v := verdict{
			target:    tgt,
			baseline:  fetch(client, *baselineBase, tgt),
			candidate: fetch(client, *candidateBase, tgt),
		}
		v.drifted = drifted(v)
		if v.drifted {
			if tgt.Critical {
				critical++
			} else {
				benign++
			}
		}
		verdicts = append(verdicts, v)
	}

	render(os.Stdout, verdicts)
	fmt.Printf("\n%d target(s), %d critical drift(s), %d benign drift(s)\n", len(verdicts), critical, benign)
	if critical > 0 {
		os.Exit(1)
	}
}

func readTargets(path string) ([]target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file targetsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Targets) == 0 {
		return nil, fmt.Errorf("%s lists no targets", path)
	}
	return file.Targets, nil
}

func fetch(client *http.Client, base string, tgt target) probe {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(tgt.Path, "/")

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return probe{err: err}
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return probe{err: err, took: time.Since(start)}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return probe{status: resp.StatusCode, err: err, took: time.Since(start)}
	}
	return probe{status: resp.StatusCode, body: body, took: time.Since(start)}
}

func drifted(v verdict) bool {
	if v.baseline.err != nil || v.candidate.err != nil {
		return true
	}
	if v.baseline.status != v.candidate.status {
		return true
	}
	return !sameBody(v.baseline.body, v.candidate.body)
}

// sameBody compares two payloads structurally. Non-JSON bodies must match
// byte for byte; JSON bodies are compared after volatile fields are
// scrubbed, so a differing request ID or signed token is not drift.
func sameBody(a, b []byte) bool {
	var av, bv interface{}
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return string(a) == string(b)
	}
	return reflect.DeepEqual(scrub(av), scrub(bv))
}

func scrub(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for key, inner := range val {
			if volatileKeys[key] {
				delete(val, key)
				continue
			}
			val[key] = scrub(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = scrub(inner)
		}
		return val
	default:
		return v
	}
}

func render(w io.Writer, verdicts []verdict) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tTARGET\tBASELINE\tCANDIDATE\tCRITICAL")
	for _, v := range verdicts {
		result := "match"
		if v.drifted {
			result = "DRIFT"
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%t\n",
			result, strings.ToUpper(v.target.Method), v.target.Path,
			describe(v.baseline), describe(v.candidate), v.target.Critical)
	}
	tw.Flush() //nolint:errcheck
}

func describe(p probe) string {
	if p.err != nil {
		return fmt.Sprintf("error: %v", p.err)
	}
	return fmt.Sprintf("%d in %s", p.status, p.took.Round(time.Millisecond))
}
