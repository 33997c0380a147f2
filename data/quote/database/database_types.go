package database

import (
	"errors"

	"github.com/thrasher-corp/tickbacktester/database"
	"github.com/volatiletech/null"
)

var (
	errNoQuotes       = errors.New("no quotes to insert")
	errInvalidQuote   = errors.New("invalid quote")
	errNoSymbolsGiven = errors.New("no symbols requested")
)

// Loader reads and writes quotes in the quotes table
type Loader struct {
	db *database.Instance
}

// row mirrors one record of the quotes table
type row struct {
	Symbol    string
	QuoteTime int64
	Bid       string
	Ask       string
	BidSize   null.Int64
	AskSize   null.Int64
	Last      null.String
}
