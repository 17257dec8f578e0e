package view

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xiaopang/insight/internal/model"
)

// CSVHeader is the first row of the performance export.
var CSVHeader = []string{"Date", "Query Volume", "Success Rate", "Average Latency"}

// ExportCSV renders daily performance as CSV, ascending by date. Cells use
// the same formatting as the on-screen table.
func ExportCSV(series []model.DailyPerformance) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return "", err
	}
	for _, d := range SortPerformance(series) {
		rate, latency := d.SuccessRate, d.AvgLatency
		row := []string{
			d.Date,
			strconv.Itoa(d.QueryVolume),
			FormatRate(&rate),
			FormatSeconds(&latency),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseCSV reads an ExportCSV document back into records. Top documents are
// not part of the export and come back empty.
func ParseCSV(r io.Reader) ([]model.DailyPerformance, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(CSVHeader, ",") {
		return nil, fmt.Errorf("unexpected csv header %q", header)
	}

	var out []model.DailyPerformance
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		volume, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d query volume: %w", line, err)
		}
		pct, err := strconv.ParseFloat(strings.TrimSuffix(row[2], "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d success rate: %w", line, err)
		}
		latency, err := strconv.ParseFloat(strings.TrimSuffix(row[3], "s"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d latency: %w", line, err)
		}
		out = append(out, model.DailyPerformance{
			Date:        row[0],
			QueryVolume: volume,
			SuccessRate: pct / 100,
			AvgLatency:  latency,
		})
	}
	return out, nil
}

// ExportFilename names the download after the export date.
func ExportFilename(now time.Time) string {
	return "insight-latency-analytics-" + now.Format("2006-01-02") + ".csv"
}

// CSVDataURI wraps a CSV document as a data URI, escaped the way
// JavaScript's encodeURI does.
func CSVDataURI(doc string) string {
	return encodeURI("data:text/csv;charset=utf-8," + doc)
}

const uriReserved = ";,/?:@&=+$-_.!~*'()#"

func encodeURI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAlnum(c) || strings.IndexByte(uriReserved, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
