package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

func GetSnapshotFileName(name string) string {
	return fmt.Sprintf("%s%s", name, SNAPSHOT_FILE_SUFFIX)
}

func GetTimeseriesFileName(siteId string) string {
	return fmt.Sprintf("%s%s", siteId, TIMESERIES_FILE_SUFFIX)
}

func GetTimeseriesPath(dataDir string, siteId string) string {
	return filepath.Join(dataDir, GetTimeseriesFileName(siteId))
}

// HourOfDay maps a simulated-minute counter onto [0, 24).
func HourOfDay(minute int64) float64 {
	return float64(minute%MINUTES_PER_DAY) / 60.0
}

// NewLogger builds the root logger of a binary. When logFilePath is set the
// output goes to stdout and the file; the returned closer must be called on exit.
func NewLogger(name string, level string, logFilePath string) (hclog.Logger, io.Closer, error) {
	var output io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0777); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		output = io.MultiWriter(os.Stdout, logFile)
		closer = logFile
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  hclog.LevelFromString(level),
		Output: output,
	})

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
