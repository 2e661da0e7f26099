// Command ingestctl is a thin HTTP client over ingestd's status/control
// surface, grounded on cmd/experiment-runner's flag-based CLI style
// (one flag.FlagSet per subcommand rather than a third-party CLI
// framework, matching the teacher's own choice not to pull in one for
// its single CLI tool).
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "status":
		runStatus(os.Args[2:])
	case "submit":
		runSubmit(os.Args[2:])
	case "stop":
		runStop(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ingestctl <status|submit|stop> -base <url> -scenario <id>")
}

func commonFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	base := fs.String("base", "http://localhost:8000", "ingestd base URL")
	scenario := fs.String("scenario", "", "scenario id")
	return fs, base, scenario
}

func runStatus(args []string) {
	fs, base, scenario := commonFlags("status")
	fs.Parse(args)
	requireScenario(fs, *scenario)

	body, err := doRequest(http.MethodGet, fmt.Sprintf("%s/scenarios/%s/status", *base, *scenario), nil)
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(body))
}

func runSubmit(args []string) {
	fs, base, scenario := commonFlags("submit")
	fs.Parse(args)
	requireScenario(fs, *scenario)

	if _, err := doRequest(http.MethodPost, fmt.Sprintf("%s/scenarios/%s/submit", *base, *scenario), nil); err != nil {
		fatal(err)
	}
	fmt.Printf("submitted scenario %s\n", *scenario)
}

func runStop(args []string) {
	fs, base, scenario := commonFlags("stop")
	fs.Parse(args)
	requireScenario(fs, *scenario)

	if _, err := doRequest(http.MethodPost, fmt.Sprintf("%s/scenarios/%s/stop", *base, *scenario), nil); err != nil {
		fatal(err)
	}
	fmt.Printf("stop requested for scenario %s\n", *scenario)
}

func requireScenario(fs *flag.FlagSet, scenario string) {
	if scenario == "" {
		fmt.Fprintln(os.Stderr, "-scenario is required")
		fs.Usage()
		os.Exit(2)
	}
}

func doRequest(method, url string, body io.Reader) ([]byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to ingestd: %w", err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ingestd returned %d: %s", resp.StatusCode, string(out))
	}
	return out, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "ingestctl:", err)
	os.Exit(1)
}
