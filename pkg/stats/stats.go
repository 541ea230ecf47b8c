package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// WriteResults writes a combined results file for reports into dir and
// returns its path. The file is named after the first report's timestamp.
func WriteResults(dir string, reports []Report) (string, error) {
	return WriteResultsWithPrefix(dir, reports, "bw_")
}

// WriteResultsWithPrefix is WriteResults with a custom file prefix.
func WriteResultsWithPrefix(dir string, reports []Report, prefix string) (string, error) {
	if len(reports) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "create results directory")
	}

	timestamp := reports[0].Timestamp.Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(dir, fmt.Sprintf("%s%s.txt", prefix, timestamp))

	file, err := os.Create(resultsFile)
	if err != nil {
		return "", errors.Wrap(err, "create results file")
	}
	defer file.Close()

	fmt.Fprintf(file, "=== Black/White Threshold Filter Results ===\n")
	fmt.Fprintf(file, "Timestamp: %s\n\n", reports[0].Timestamp.Format("2006-01-02 15:04:05"))

	for _, r := range reports {
		fmt.Fprintf(file, "=== %s Results (run %s) ===\n", r.Skeleton, r.RunID)
		fmt.Fprintf(file, "Workers: %d\n", r.Workers)
		fmt.Fprintf(file, "Stream length: %d\n", r.StreamLength)
		fmt.Fprintf(file, "Results collected: %d\n", r.Results)
		if r.Dropped > 0 {
			fmt.Fprintf(file, "Dropped items: %d\n", r.Dropped)
		}
		fmt.Fprintf(file, "Setup time: %.3fms\n", millis(r.Setup))
		fmt.Fprintf(file, "Parallel time: %.3fms\n", millis(r.Parallel))
		fmt.Fprintf(file, "Completion time: %.3fms\n", millis(r.Completion))
		fmt.Fprintf(file, "Mean latency: %.3fms\n", millis(r.Latency))
		fmt.Fprintf(file, "Mean service time: %.3fms\n", millis(r.ServiceTime))
		fmt.Fprintf(file, "Service time median: %.3fms\n", millis(r.ServiceMedian))
		fmt.Fprintf(file, "Service time stddev: %.3fms\n", millis(r.ServiceStdDev))
		fmt.Fprintf(file, "\n")
	}

	return resultsFile, nil
}

type reportJSON struct {
	RunID         string  `json:"run_id"`
	Skeleton      string  `json:"skeleton"`
	Workers       int     `json:"workers"`
	StreamLength  int     `json:"stream_length"`
	Results       int     `json:"results"`
	Dropped       int64   `json:"dropped"`
	Timestamp     string  `json:"timestamp"`
	SetupMs       float64 `json:"setup_ms"`
	ParallelMs    float64 `json:"parallel_ms"`
	CompletionMs  float64 `json:"completion_ms"`
	LatencyMs     float64 `json:"latency_ms"`
	ServiceMs     float64 `json:"service_ms"`
	ServiceStdMs  float64 `json:"service_stddev_ms"`
	ServiceMedian float64 `json:"service_median_ms"`
}

// MarshalJSON encodes the report with times in milliseconds.
func (r Report) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(reportJSON{
		RunID:         r.RunID,
		Skeleton:      r.Skeleton,
		Workers:       r.Workers,
		StreamLength:  r.StreamLength,
		Results:       r.Results,
		Dropped:       r.Dropped,
		Timestamp:     r.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		SetupMs:       millis(r.Setup),
		ParallelMs:    millis(r.Parallel),
		CompletionMs:  millis(r.Completion),
		LatencyMs:     millis(r.Latency),
		ServiceMs:     millis(r.ServiceTime),
		ServiceStdMs:  millis(r.ServiceStdDev),
		ServiceMedian: millis(r.ServiceMedian),
	})
}

// WriteJSON stores r as JSON at path.
func WriteJSON(path string, r Report) error {
	b, err := sonic.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode report")
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return errors.Wrapf(err, "write report %s", path)
	}
	return nil
}
