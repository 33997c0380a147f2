package csv

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/data"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
)

var day = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, symbol, name, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, symbol), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, symbol, name), []byte(contents), 0o600))
}

func TestNewLoader(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	_, err := NewLoader(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	f := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(f, nil, 0o600))
	_, err = NewLoader(f)
	assert.ErrorIs(t, err, errNotDirectory)
	l, err := NewLoader(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ES", "2021-06-01.csv"), l.Path("ES", day.Add(5*time.Hour)))
}

func TestRead(t *testing.T) {
	t.Parallel()
	in := "time,bid,ask,bid_size,ask_size,last\n" +
		"2021-06-01T09:30:00Z,100.25,100.5,3,4,100.5\n" +
		"1622540400500000000,100.5,100.75,,,\n"
	quotes, err := Read(strings.NewReader(in), "ES")
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "ES", quotes[0].Symbol)
	assert.Equal(t, day.Add(9*time.Hour+30*time.Minute), quotes[0].Time)
	assert.True(t, quotes[0].Bid.Equal(decimal.RequireFromString("100.25")))
	assert.Equal(t, int64(3), quotes[0].BidSize)
	assert.Equal(t, int64(4), quotes[0].AskSize)
	assert.True(t, quotes[0].Last.Equal(decimal.RequireFromString("100.5")))
	assert.Equal(t, time.Unix(0, 1622540400500000000).UTC(), quotes[1].Time)
	assert.Zero(t, quotes[1].BidSize)
	assert.True(t, quotes[1].Last.IsZero())

	quotes, err = Read(strings.NewReader("ask,time,bid\n101,2021-06-01T10:00:00Z,100\n"), "NQ")
	require.NoError(t, err, "header columns may be in any order")
	require.Len(t, quotes, 1)
	assert.True(t, quotes[0].Ask.Equal(decimal.NewFromInt(101)))

	quotes, err = Read(strings.NewReader("2021-06-01T10:00:00Z,100,101\n"), "NQ")
	require.NoError(t, err, "files without a header use the default order")
	assert.Len(t, quotes, 1)

	_, err = Read(strings.NewReader("time,bid\n"), "ES")
	assert.ErrorIs(t, err, errMissingColumn)
	_, err = Read(strings.NewReader("2021-06-01T10:00:00Z,100\n"), "ES")
	assert.ErrorIs(t, err, errShortRow)
	_, err = Read(strings.NewReader("yesterday,100,101\n"), "ES")
	assert.ErrorIs(t, err, errUnparseableTime)
	_, err = Read(strings.NewReader("2021-06-01T10:00:00Z,101,100\n"), "ES")
	assert.ErrorIs(t, err, market.ErrCrossedQuote)
	_, err = Read(strings.NewReader("2021-06-01T10:00:00Z,100,101,x\n"), "ES")
	assert.ErrorContains(t, err, "bid size")
}

func TestLoadDay(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := NewLoader(dir)
	require.NoError(t, err)

	_, err = l.LoadDay(context.Background(), day, []string{"ES"})
	assert.ErrorIs(t, err, data.ErrNoDataForDay)

	writeFile(t, dir, "ES", "2021-06-01.csv", "time,bid,ask\n2021-06-01T09:30:00Z,100,100.25\n2021-06-01T09:30:01Z,100.25,100.5\n")
	writeFile(t, dir, "NQ", "2021-06-01.csv", "time,bid,ask\n2021-06-01T09:30:00.5Z,200,200.25\n")
	d, err := l.LoadDay(context.Background(), day, []string{"ES", "NQ", "YM"})
	require.NoError(t, err, "symbols without a file are skipped")
	assert.Equal(t, 2, d.Series["ES"].Len())
	assert.Equal(t, 1, d.Series["NQ"].Len())
	assert.Len(t, d.Timeline(), 3)

	writeFile(t, dir, "ES", "2021-06-02.csv", "time,bid,ask\n2021-06-01T09:30:00Z,100,100.25\n")
	_, err = l.LoadDay(context.Background(), day.AddDate(0, 0, 1), []string{"ES"})
	assert.ErrorIs(t, err, errQuoteOutsideDay)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.LoadDay(ctx, day, []string{"ES"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWrite(t *testing.T) {
	t.Parallel()
	in := []market.Quote{
		{Symbol: "ES", Time: day.Add(time.Hour), Bid: decimal.NewFromInt(100), Ask: decimal.RequireFromString("100.25"), BidSize: 2, AskSize: 5},
		{Symbol: "ES", Time: day.Add(time.Hour + time.Millisecond), Bid: decimal.NewFromInt(100), Ask: decimal.RequireFromString("100.5"), Last: decimal.NewFromInt(100)},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), "time,bid,ask,bid_size,ask_size,last\n"))
	out, err := Read(&buf, "ES")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[1].Time, out[1].Time)
	assert.Equal(t, int64(5), out[0].AskSize)
	assert.True(t, out[1].Last.Equal(in[1].Last))
}
