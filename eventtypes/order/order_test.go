package order

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/tickbacktester/common"
)

func TestNew(t *testing.T) {
	t.Parallel()
	id := uuid.Must(uuid.NewV4())
	tt := time.Date(2020, 6, 1, 13, 0, 0, 0, time.UTC)

	o, err := New(id, Request{Symbol: "ESM0", Quantity: -3, Type: Limit, LimitPrice: decimal.NewFromInt(3000)}, tt)
	require.NoError(t, err, "New must not error")
	assert.Equal(t, common.OrderEvent, o.Kind())
	assert.Equal(t, tt, o.SubmitTime())
	assert.Equal(t, common.Sell, o.Side())
	assert.Equal(t, int64(3), o.AbsQuantity())
	assert.Contains(t, o.String(), "LIMIT SELL ESM0 3 @ 3000")

	_, err = New(id, Request{Symbol: "ESM0", Type: Market}, tt)
	assert.ErrorIs(t, err, ErrZeroQuantity)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	id := uuid.Must(uuid.NewV4())
	tests := []struct {
		name string
		o    *Order
		err  error
	}{
		{"nil", nil, common.ErrNilEvent},
		{"nil id", &Order{Symbol: "A", Quantity: 1, Type: Market}, ErrNilOrderID},
		{"no symbol", &Order{ID: id, Quantity: 1, Type: Market}, ErrEmptySymbol},
		{"zero", &Order{ID: id, Symbol: "A", Type: Market}, ErrZeroQuantity},
		{"market with price", &Order{ID: id, Symbol: "A", Quantity: 1, Type: Market, LimitPrice: decimal.NewFromInt(1)}, ErrInvalidLimitPrice},
		{"limit without price", &Order{ID: id, Symbol: "A", Quantity: 1, Type: Limit}, ErrInvalidLimitPrice},
		{"limit negative price", &Order{ID: id, Symbol: "A", Quantity: 1, Type: Limit, LimitPrice: decimal.NewFromInt(-1)}, ErrInvalidLimitPrice},
		{"bad type", &Order{ID: id, Symbol: "A", Quantity: 1, Type: "STOP"}, ErrInvalidOrderType},
		{"market", &Order{ID: id, Symbol: "A", Quantity: 1, Type: Market}, nil},
		{"limit", &Order{ID: id, Symbol: "A", Quantity: -1, Type: Limit, LimitPrice: decimal.NewFromInt(1)}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tc.o.Validate(), tc.err)
		})
	}
}
