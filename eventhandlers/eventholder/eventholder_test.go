package eventholder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/eventtypes/market"
	"github.com/thrasher-corp/tickbacktester/eventtypes/newday"
)

var _ EventHolder = &Holder{}

func TestFIFO(t *testing.T) {
	t.Parallel()
	h := &Holder{}
	assert.Nil(t, h.NextEvent())

	tt := time.Now()
	m1 := market.New(tt, nil)
	nd := newday.New(tt, tt, tt)
	m2 := market.New(tt.Add(time.Second), nil)
	h.AppendEvent(m1)
	h.AppendEvent(nil)
	h.AppendEvent(nd)
	h.AppendEvent(m2)
	require.Equal(t, 3, h.Len(), "nil events must not be queued")

	e := h.NextEvent()
	assert.Same(t, m1, e)
	assert.Equal(t, int64(1), e.GetOffset())
	e = h.NextEvent()
	assert.Equal(t, common.NewDayEvent, e.Kind())
	assert.Equal(t, int64(2), e.GetOffset())
	assert.Same(t, m2, h.NextEvent())
	assert.Nil(t, h.NextEvent())
}

func TestReset(t *testing.T) {
	t.Parallel()
	h := &Holder{}
	h.AppendEvent(market.New(time.Now(), nil))
	h.Reset()
	assert.Zero(t, h.Len())
	m := market.New(time.Now(), nil)
	h.AppendEvent(m)
	assert.Equal(t, int64(1), m.GetOffset(), "offsets should restart after reset")
}

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()
	h := &Holder{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.AppendEvent(market.New(time.Now(), nil))
			}
		}()
	}
	wg.Wait()
	seen := make(map[int64]bool)
	for e := h.NextEvent(); e != nil; e = h.NextEvent() {
		assert.False(t, seen[e.GetOffset()], "offsets must be unique")
		seen[e.GetOffset()] = true
	}
	assert.Len(t, seen, 800)
}
