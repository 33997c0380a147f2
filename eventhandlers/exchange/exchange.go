package exchange

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/data"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/commission"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/fillprobability"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/exchange/slippage"
	"github.com/thrasher-corp/tickbacktester/eventtypes/fill"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

// Setup returns an exchange reading quotes from q
func Setup(env *common.Env, q data.QuoteReader, s Settings) (*Exchange, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("%w quote reader", common.ErrNilPointer)
	}
	if s.OrderDelay < 0 {
		return nil, fmt.Errorf("%w %v", errNegativeDelay, s.OrderDelay)
	}
	if s.Venue == "" {
		s.Venue = DefaultVenue
	}
	if s.FillPolicy == nil {
		s.FillPolicy = fillprobability.Constant(fillprobability.DefaultProbability)
	}
	if s.Commission == nil {
		s.Commission = commission.None{}
	}
	if s.Slippage == nil {
		s.Slippage = slippage.None{}
	}
	return &Exchange{
		env:      env,
		settings: s,
		quotes:   q,
		book:     NewBook(),
		seen:     make(map[uuid.UUID]struct{}),
	}, nil
}

// Reset returns the exchange to an empty state, keeping its settings
func (e *Exchange) Reset() {
	e.book = NewBook()
	e.seen = make(map[uuid.UUID]struct{})
}

// Resting returns the orders currently waiting in the book
func (e *Exchange) Resting() []Resting {
	return e.book.View()
}

// OnOrder accepts an order event. Market orders fill straight away against
// the quote as-of submission plus order delay. Limit orders always rest and
// are first evaluated on a later market event
func (e *Exchange) OnOrder(o *order.Order) ([]*fill.Fill, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if _, ok := e.seen[o.ID]; ok {
		return nil, fmt.Errorf("%w %s", ErrDuplicateOrderID, o.ID)
	}
	if !e.quotes.HasSymbol(o.Symbol) {
		return nil, fmt.Errorf("%s on %v order %s: %w", o.Symbol, o.SubmitTime().Format(common.DateFormat), o.ID, ErrNoDataForSymbol)
	}
	e.seen[o.ID] = struct{}{}
	r := &restingOrder{
		order:      o,
		eligibleAt: o.SubmitTime().Add(e.settings.OrderDelay),
	}
	if o.Type == order.Limit {
		if err := e.book.add(r); err != nil {
			return nil, err
		}
		e.env.Logger.Debugf(log.Execution, "resting %v eligible at %v", o, r.eligibleAt)
		return nil, nil
	}
	return e.executeMarket(r)
}

func (e *Exchange) executeMarket(r *restingOrder) ([]*fill.Fill, error) {
	o := r.order
	fillTime := r.eligibleAt
	q, ok := e.quotes.QuoteAsOf(o.Symbol, fillTime)
	if !ok {
		// nothing printed yet today, wait for the first quote
		q, ok = e.quotes.QuoteAtOrAfter(o.Symbol, fillTime)
		if !ok {
			return nil, fmt.Errorf("%s order %s at %v: %w", o.Symbol, o.ID, fillTime, ErrNoQuote)
		}
		fillTime = q.Time
	}
	qty := e.sizeFor(r, q)
	price := q.Ask
	if o.Side() == common.Sell {
		price = q.Bid
	}
	f, err := e.fill(r, qty, price, true, fillTime, q.Time, "market order crossed the spread")
	if err != nil {
		return nil, err
	}
	if r.remaining() > 0 {
		if err := e.book.add(r); err != nil {
			return nil, err
		}
		e.env.Logger.Debugf(log.Execution, "%v partially filled %d of %d, remainder resting", o, r.filled, o.AbsQuantity())
	}
	return []*fill.Fill{f}, nil
}

// OnMarket evaluates every eligible resting order against the new quotes in
// submission order
func (e *Exchange) OnMarket(m *market.Market) ([]*fill.Fill, error) {
	if m == nil {
		return nil, common.ErrNilEvent
	}
	var resp []*fill.Fill
	for _, r := range e.book.snapshot() {
		if m.GetTime().Before(r.eligibleAt) {
			continue
		}
		q, ok := m.Quote(r.order.Symbol)
		if !ok {
			continue
		}
		f, err := e.evaluate(r, q, m.GetTime())
		if err != nil {
			return resp, err
		}
		if f == nil {
			continue
		}
		resp = append(resp, f)
		if r.remaining() == 0 {
			e.book.remove(r.order.ID)
		}
	}
	return resp, nil
}

func (e *Exchange) evaluate(r *restingOrder, q market.Quote, now time.Time) (*fill.Fill, error) {
	o := r.order
	buy := o.Side() == common.Buy
	if !r.isLimit() {
		price := q.Ask
		if !buy {
			price = q.Bid
		}
		return e.fill(r, e.sizeFor(r, q), price, true, now, q.Time, "resting market remainder")
	}
	var marketable, touched bool
	var distance decimal.Decimal
	if buy {
		marketable = o.LimitPrice.GreaterThanOrEqual(q.Ask)
		touched = o.LimitPrice.GreaterThanOrEqual(q.Bid)
		distance = q.Ask.Sub(o.LimitPrice)
	} else {
		marketable = o.LimitPrice.LessThanOrEqual(q.Bid)
		touched = o.LimitPrice.LessThanOrEqual(q.Ask)
		distance = o.LimitPrice.Sub(q.Bid)
	}
	switch {
	case marketable:
		price := q.Ask
		if !buy {
			price = q.Bid
		}
		return e.fill(r, e.sizeFor(r, q), price, false, now, q.Time, "limit order marketable")
	case touched:
		p := e.settings.FillPolicy.Probability(distance)
		if e.env.Rand.Float64() >= p {
			return nil, nil
		}
		price := q.Bid
		if !buy {
			price = q.Ask
		}
		if e.settings.PassiveFillAtLimit {
			price = o.LimitPrice
		}
		return e.fill(r, e.sizeFor(r, q), price, false, now, q.Time, "limit order touched")
	default:
		return nil, nil
	}
}

// sizeFor returns how much of the order can trade against q
func (e *Exchange) sizeFor(r *restingOrder, q market.Quote) int64 {
	qty := r.remaining()
	if !e.settings.RespectQuoteSize {
		return qty
	}
	if avail := q.SizeFor(r.order.Side()); avail > 0 && avail < qty {
		return avail
	}
	return qty
}

func (e *Exchange) fill(r *restingOrder, qty int64, price decimal.Decimal, taker bool, fillTime, quoteTime time.Time, reason string) (*fill.Fill, error) {
	o := r.order
	if fillTime.Before(o.SubmitTime()) {
		return nil, fmt.Errorf("%w: order %s submitted %v fill %v", ErrFillBeforeSubmit, o.ID, o.SubmitTime(), fillTime)
	}
	if err := r.record(qty); err != nil {
		return nil, err
	}
	var slip decimal.Decimal
	if taker {
		price, slip = e.settings.Slippage.Apply(price, o.Side())
	}
	signed := qty
	if o.Side() == common.Sell {
		signed = -qty
	}
	f, err := fill.New(&fill.Params{
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Quantity:   signed,
		Price:      price,
		Commission: e.settings.Commission.Commission(o.Symbol, signed, price),
		Slippage:   slip,
		FillTime:   fillTime,
		QuoteTime:  quoteTime,
		Venue:      e.settings.Venue,
		Reason:     reason,
	})
	if err != nil {
		return nil, err
	}
	e.env.Logger.Debugf(log.Execution, "%v filled %d @ %v (%s)", o, qty, price, reason)
	return f, nil
}

// OnNewDay clears all resting orders. Intent from a previous session never
// carries over
func (e *Exchange) OnNewDay(nd *newday.NewDay) {
	n := e.book.Clear()
	if nd == nil {
		return
	}
	e.env.Logger.Infof(log.Execution, "all %d resting orders removed at rollover to %v", n, nd.Date.Format(common.DateFormat))
}

// Cancel removes a resting order
func (e *Exchange) Cancel(id uuid.UUID) error {
	if !e.book.remove(id) {
		return fmt.Errorf("%w %s", ErrOrderNotFound, id)
	}
	e.env.Logger.Debugf(log.Execution, "cancelled %s", id)
	return nil
}
