package engine

import (
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/thrasher-corp/tickbacktester/eventhandlers/strategies/base"
	"github.com/thrasher-corp/tickbacktester/eventtypes/order"
	"github.com/thrasher-corp/tickbacktester/log"
)

// strategyContext is the strategy's handle on the running simulation
type strategyContext struct {
	bt *BackTest
}

func (bt *BackTest) strategyContext() base.Context {
	return &strategyContext{bt: bt}
}

// Order validates the request at the current simulated time and queues it
// for the exchange. Nothing is queued when validation fails
func (c *strategyContext) Order(req order.Request) (uuid.UUID, error) {
	seq := c.bt.orderSeq.Add(1)
	id := uuid.NewV5(c.bt.orderNamespace, strconv.FormatUint(seq, 10))
	o, err := order.New(id, req, c.bt.env.Clock.Now())
	if err != nil {
		return uuid.Nil, err
	}
	c.bt.env.Logger.Debugf(log.Strategy, "queued %v", o)
	c.bt.EventQueue.AppendEvent(o)
	return id, nil
}

// Cancel removes a resting order from the exchange. Orders still waiting in
// the event queue are not resting yet and cannot be cancelled
func (c *strategyContext) Cancel(id uuid.UUID) error {
	return c.bt.Exchange.Cancel(id)
}

func (c *strategyContext) Portfolio() base.Portfolio {
	return c.bt.Portfolio
}

func (c *strategyContext) Now() time.Time {
	return c.bt.env.Clock.Now()
}

func (c *strategyContext) Logger() *log.Logger {
	return c.bt.env.Logger
}
