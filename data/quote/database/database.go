package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data"
	"github.com/thrasher-corp/tickbacktester/database"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/volatiletech/null"
)

// NewLoader returns a loader using an open database instance
func NewLoader(db *database.Instance) (*Loader, error) {
	if db == nil {
		return nil, fmt.Errorf("%w database instance", common.ErrNilPointer)
	}
	if _, err := db.DB(); err != nil {
		return nil, err
	}
	return &Loader{db: db}, nil
}

// LoadDay implements data.DayLoader
func (l *Loader) LoadDay(ctx context.Context, day time.Time, symbols []string) (*data.DayData, error) {
	if len(symbols) == 0 {
		return nil, errNoSymbolsGiven
	}
	db, err := l.db.DB()
	if err != nil {
		return nil, err
	}
	d := data.NewDayData(day)
	args := make([]any, 0, len(symbols)+1)
	args = append(args, d.Date.Format(common.DateFormat))
	for i := range symbols {
		args = append(args, symbols[i])
	}
	query := l.db.Rebind(`SELECT symbol, quote_time, bid, ask, bid_size, ask_size, last FROM quotes
		WHERE trading_day = ? AND symbol IN (?` + strings.Repeat(", ?", len(symbols)-1) + `)
		ORDER BY symbol, quote_time, seq`)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.Symbol, &r.QuoteTime, &r.Bid, &r.Ask, &r.BidSize, &r.AskSize, &r.Last); err != nil {
			return nil, err
		}
		q, err := r.quote()
		if err != nil {
			return nil, err
		}
		if err := d.Add(q); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if d.Empty() {
		return nil, fmt.Errorf("%w %v", data.ErrNoDataForDay, d.Date.Format(common.DateFormat))
	}
	return d, nil
}

func (r *row) quote() (market.Quote, error) {
	q := market.Quote{
		Symbol:  r.Symbol,
		Time:    time.Unix(0, r.QuoteTime).UTC(),
		BidSize: r.BidSize.Int64,
		AskSize: r.AskSize.Int64,
	}
	var err error
	if q.Bid, err = decimal.NewFromString(r.Bid); err != nil {
		return market.Quote{}, fmt.Errorf("%w %s %v bid: %v", errInvalidQuote, r.Symbol, q.Time, err)
	}
	if q.Ask, err = decimal.NewFromString(r.Ask); err != nil {
		return market.Quote{}, fmt.Errorf("%w %s %v ask: %v", errInvalidQuote, r.Symbol, q.Time, err)
	}
	if r.Last.Valid && r.Last.String != "" {
		if q.Last, err = decimal.NewFromString(r.Last.String); err != nil {
			return market.Quote{}, fmt.Errorf("%w %s %v last: %v", errInvalidQuote, r.Symbol, q.Time, err)
		}
	}
	return q, nil
}

func newRow(q *market.Quote) row {
	r := row{
		Symbol:    q.Symbol,
		QuoteTime: q.Time.UnixNano(),
		Bid:       q.Bid.String(),
		Ask:       q.Ask.String(),
		BidSize:   null.Int64From(q.BidSize),
		AskSize:   null.Int64From(q.AskSize),
	}
	if !q.Last.IsZero() {
		r.Last = null.StringFrom(q.Last.String())
	}
	return r
}

// Insert stores quotes in a single transaction, tagging each with source.
// Quotes sharing a symbol and timestamp are numbered in the order given so
// replays keep arrival order. Rows already present are left untouched.
// It returns the number of rows written
func (l *Loader) Insert(ctx context.Context, quotes []market.Quote, source string) (int64, error) {
	if len(quotes) == 0 {
		return 0, errNoQuotes
	}
	db, err := l.db.DB()
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	inserted, err := l.insert(ctx, tx, quotes, source)
	if err != nil {
		return 0, common.AppendError(err, tx.Rollback())
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (l *Loader) insert(ctx context.Context, tx *sql.Tx, quotes []market.Quote, source string) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, l.db.Rebind(`INSERT INTO quotes
		(symbol, trading_day, quote_time, seq, bid, ask, bid_size, ask_size, last, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	src := null.NewString(source, source != "")
	type seqKey struct {
		symbol string
		nanos  int64
	}
	seq := make(map[seqKey]int)
	var inserted int64
	for i := range quotes {
		if err := quotes[i].Validate(); err != nil {
			return 0, fmt.Errorf("%w: %v", errInvalidQuote, err)
		}
		r := newRow(&quotes[i])
		k := seqKey{r.Symbol, r.QuoteTime}
		res, err := stmt.ExecContext(ctx,
			r.Symbol,
			data.TruncateDay(quotes[i].Time).Format(common.DateFormat),
			r.QuoteTime,
			seq[k],
			r.Bid,
			r.Ask,
			r.BidSize,
			r.AskSize,
			r.Last,
			src)
		if err != nil {
			return 0, err
		}
		seq[k]++
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}
	return inserted, nil
}

// Symbols returns every symbol stored for day in sorted order
func (l *Loader) Symbols(ctx context.Context, day time.Time) ([]string, error) {
	db, err := l.db.DB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, l.db.Rebind(`SELECT DISTINCT symbol FROM quotes WHERE trading_day = ? ORDER BY symbol`),
		data.TruncateDay(day).Format(common.DateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var resp []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		resp = append(resp, s)
	}
	return resp, rows.Err()
}
