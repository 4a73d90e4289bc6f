package telemetry

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/Mithilesh-1311/YANTRA/internal/common"
	"github.com/Mithilesh-1311/YANTRA/internal/model"
)

// TimeseriesHeader is written once, when a site's file is created.
var TimeseriesHeader = []string{
	"sim_minute", "hour_of_day",
	"solar_output_kw", "consumption_kw", "battery_level_kwh",
	"net_flow_kw", "time_sin", "time_cos",
	"is_deficit",
}

// Recorder appends one CSV row per reading to <dataDir>/<site>.csv. Every
// row is flushed before Record returns.
type Recorder struct {
	dataDir string
	mu      sync.Mutex
	files   map[string]*siteFile
}

type siteFile struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

func NewRecorder(dataDir string) (*Recorder, error) {
	if err := os.MkdirAll(dataDir, 0777); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Recorder{
		dataDir: dataDir,
		files:   make(map[string]*siteFile),
	}, nil
}

func (recorder *Recorder) Name() string {
	return "recorder"
}

func (recorder *Recorder) HandleReading(_ context.Context, reading model.TelemetryReading) error {
	return recorder.Record(reading)
}

func (recorder *Recorder) Record(reading model.TelemetryReading) error {
	file, err := recorder.open(reading.SiteId)
	if err != nil {
		return err
	}

	file.mu.Lock()
	defer file.mu.Unlock()

	if err := file.writer.Write(timeseriesRow(reading)); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	file.writer.Flush()
	return file.writer.Error()
}

func (recorder *Recorder) open(siteId string) (*siteFile, error) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	if file, ok := recorder.files[siteId]; ok {
		return file, nil
	}

	path := common.GetTimeseriesPath(recorder.dataDir, siteId)
	info, statErr := os.Stat(path)
	isNew := errors.Is(statErr, os.ErrNotExist) || (statErr == nil && info.Size() == 0)

	handle, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open time series for %s: %w", siteId, err)
	}

	file := &siteFile{file: handle, writer: csv.NewWriter(handle)}
	if isNew {
		if err := file.writer.Write(TimeseriesHeader); err != nil {
			handle.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		file.writer.Flush()
	}

	recorder.files[siteId] = file
	return file, nil
}

// Close flushes and closes every open file.
func (recorder *Recorder) Close() error {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	var errs []error
	for siteId, file := range recorder.files {
		file.mu.Lock()
		file.writer.Flush()
		errs = append(errs, file.writer.Error(), file.file.Close())
		file.mu.Unlock()
		delete(recorder.files, siteId)
	}
	return errors.Join(errs...)
}

func timeseriesRow(reading model.TelemetryReading) []string {
	timeSin, timeCos := reading.TimeEncoding()
	deficit := "0"
	if reading.IsDeficit {
		deficit = "1"
	}

	return []string{
		strconv.FormatInt(reading.Minute, 10),
		strconv.FormatFloat(reading.HourOfDay, 'f', 4, 64),
		formatKwh(reading.SolarGainedKwh()),
		formatKwh(reading.TotalDrainedKwh),
		strconv.FormatFloat(reading.BatteryKwh, 'f', 4, 64),
		formatKwh(reading.NetFlowKwh()),
		formatKwh(timeSin),
		formatKwh(timeCos),
		deficit,
	}
}

func formatKwh(value float64) string {
	return strconv.FormatFloat(value, 'f', 6, 64)
}

// CountRecords returns the number of data rows in a time series file,
// header excluded.
func CountRecords(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	buffer := make([]byte, 32*1024)
	var lines int64
	var last byte
	for {
		n, err := reader.Read(buffer)
		if n > 0 {
			lines += int64(bytes.Count(buffer[:n], []byte{'\n'}))
			last = buffer[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != 0 && last != '\n' {
		lines++
	}
	if lines == 0 {
		return 0, nil
	}
	return lines - 1, nil
}
