package csv

import "errors"

// Column names recognised in a header row
const (
	colTime    = "time"
	colBid     = "bid"
	colAsk     = "ask"
	colBidSize = "bid_size"
	colAskSize = "ask_size"
	colLast    = "last"
)

// FileExtension is appended to the trading day to form a file name
const FileExtension = ".csv"

var (
	errNotDirectory     = errors.New("not a directory")
	errMissingColumn    = errors.New("missing required column")
	errShortRow         = errors.New("row has too few fields")
	errQuoteOutsideDay  = errors.New("quote time is outside the requested day")
	errUnparseableTime  = errors.New("unparseable quote time")
	defaultColumnOrder  = []string{colTime, colBid, colAsk, colBidSize, colAskSize, colLast}
	requiredColumnNames = []string{colTime, colBid, colAsk}
)

// Loader reads one file per symbol per day laid out as
// <dir>/<SYMBOL>/<YYYY-MM-DD>.csv
type Loader struct {
	dir string
}
