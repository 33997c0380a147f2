package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
)

// NewLoader returns a loader rooted at dir
func NewLoader(dir string) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s %w", dir, errNotDirectory)
	}
	return &Loader{dir: dir}, nil
}

// Path returns the file holding symbol's quotes for day
func (l *Loader) Path(symbol string, day time.Time) string {
	return filepath.Join(l.dir, symbol, data.TruncateDay(day).Format(common.DateFormat)+FileExtension)
}

// LoadDay implements data.DayLoader. Symbols without a file for the day are
// skipped; when none has one ErrNoDataForDay is returned
func (l *Loader) LoadDay(ctx context.Context, day time.Time, symbols []string) (*data.DayData, error) {
	d := data.NewDayData(day)
	for i := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		quotes, err := LoadFile(l.Path(symbols[i], day), symbols[i])
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for j := range quotes {
			if !data.TruncateDay(quotes[j].Time).Equal(d.Date) {
				return nil, fmt.Errorf("%s %v %w %v", symbols[i], quotes[j].Time, errQuoteOutsideDay, d.Date.Format(common.DateFormat))
			}
			if err := d.Add(quotes[j]); err != nil {
				return nil, err
			}
		}
	}
	if d.Empty() {
		return nil, fmt.Errorf("%w %v", data.ErrNoDataForDay, d.Date.Format(common.DateFormat))
	}
	return d, nil
}

// LoadFile parses every quote in a single file
func LoadFile(path, symbol string) (out []market.Quote, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = common.AppendError(err, f.Close())
	}()
	out, err = Read(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Read parses quotes from r. A leading header row names the columns in any
// order, otherwise time,bid,ask,bid_size,ask_size,last is assumed
func Read(r io.Reader, symbol string) ([]market.Quote, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	columns := columnIndex(defaultColumnOrder)
	var out []market.Quote
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if line == 1 && isHeader(row) {
			columns, err = headerIndex(row)
			if err != nil {
				return nil, err
			}
			continue
		}
		q, err := parseRow(row, columns, symbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func columnIndex(names []string) map[string]int {
	resp := make(map[string]int, len(names))
	for i := range names {
		resp[names[i]] = i
	}
	return resp
}

func isHeader(row []string) bool {
	for i := range row {
		if strings.EqualFold(strings.TrimSpace(row[i]), colTime) {
			return true
		}
	}
	return false
}

func headerIndex(row []string) (map[string]int, error) {
	names := make([]string, len(row))
	for i := range row {
		names[i] = strings.ToLower(strings.TrimSpace(row[i]))
	}
	columns := columnIndex(names)
	for _, name := range requiredColumnNames {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w %q", errMissingColumn, name)
		}
	}
	return columns, nil
}

// field returns the trimmed value of a column, or empty when the row or
// header does not carry it
func field(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRow(row []string, columns map[string]int, symbol string) (market.Quote, error) {
	for _, name := range requiredColumnNames {
		if field(row, columns, name) == "" {
			return market.Quote{}, fmt.Errorf("%w %q", errShortRow, name)
		}
	}
	t, err := ParseTime(field(row, columns, colTime))
	if err != nil {
		return market.Quote{}, err
	}
	q := market.Quote{Symbol: symbol, Time: t}
	if q.Bid, err = decimal.NewFromString(field(row, columns, colBid)); err != nil {
		return market.Quote{}, fmt.Errorf("bid: %w", err)
	}
	if q.Ask, err = decimal.NewFromString(field(row, columns, colAsk)); err != nil {
		return market.Quote{}, fmt.Errorf("ask: %w", err)
	}
	if v := field(row, columns, colBidSize); v != "" {
		if q.BidSize, err = strconv.ParseInt(v, 10, 64); err != nil {
			return market.Quote{}, fmt.Errorf("bid size: %w", err)
		}
	}
	if v := field(row, columns, colAskSize); v != "" {
		if q.AskSize, err = strconv.ParseInt(v, 10, 64); err != nil {
			return market.Quote{}, fmt.Errorf("ask size: %w", err)
		}
	}
	if v := field(row, columns, colLast); v != "" {
		if q.Last, err = decimal.NewFromString(v); err != nil {
			return market.Quote{}, fmt.Errorf("last: %w", err)
		}
	}
	if err := q.Validate(); err != nil {
		return market.Quote{}, err
	}
	return q, nil
}

// ParseTime accepts RFC3339 with optional fractional seconds or an integer
// count of nanoseconds since the unix epoch. Results are in UTC
func ParseTime(v string) (time.Time, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(0, n).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q", errUnparseableTime, v)
	}
	return t.UTC(), nil
}

// Write renders quotes in the default column order with a header row
func Write(w io.Writer, quotes []market.Quote) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(defaultColumnOrder); err != nil {
		return err
	}
	for i := range quotes {
		last := ""
		if !quotes[i].Last.IsZero() {
			last = quotes[i].Last.String()
		}
		if err := writer.Write([]string{
			quotes[i].Time.UTC().Format(time.RFC3339Nano),
			quotes[i].Bid.String(),
			quotes[i].Ask.String(),
			strconv.FormatInt(quotes[i].BidSize, 10),
			strconv.FormatInt(quotes[i].AskSize, 10),
			last,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
