package xapi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LLIEPJIOK/xapi/pkg/xapi"
)

func frame(t *testing.T, command string, data any) *xapi.StreamData {
	t.Helper()

	msg, err := xapi.NewStreamData(command, data)
	require.NoError(t, err)

	return msg
}

func TestFilter_Combinators(t *testing.T) {
	a := frame(t, "A", map[string]any{})
	b := frame(t, "B", map[string]any{})
	c := frame(t, "C", map[string]any{})

	tests := []struct {
		name   string
		filter xapi.Filter
		want   map[*xapi.StreamData]bool
	}{
		{"zero value", xapi.Filter{}, map[*xapi.StreamData]bool{a: true, b: true, c: true}},
		{"all", xapi.All(), map[*xapi.StreamData]bool{a: true, b: true, c: true}},
		{"none", xapi.None(), map[*xapi.StreamData]bool{a: false, b: false, c: false}},
		{"empty allOf", xapi.AllOf(), map[*xapi.StreamData]bool{a: true, b: true, c: true}},
		{"empty anyOf", xapi.AnyOf(), map[*xapi.StreamData]bool{a: false, b: false, c: false}},
		{
			"allOf distinct commands",
			xapi.AllOf(xapi.ByCommand("A"), xapi.ByCommand("B")),
			map[*xapi.StreamData]bool{a: false, b: false, c: false},
		},
		{
			"anyOf distinct commands",
			xapi.AnyOf(xapi.ByCommand("A"), xapi.ByCommand("B")),
			map[*xapi.StreamData]bool{a: true, b: true, c: false},
		},
		{
			"nested",
			xapi.AnyOf(xapi.AllOf(xapi.ByCommand("A"), xapi.All()), xapi.AllOf(xapi.ByCommand("C"))),
			map[*xapi.StreamData]bool{a: true, b: false, c: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for msg, want := range tt.want {
				assert.Equal(t, want, tt.filter.Match(msg), "command %s", msg.Command)
			}
		})
	}
}

func TestFilter_ByField(t *testing.T) {
	f := xapi.ByField("ask", 1.2345)

	tests := []struct {
		name string
		data any
		want bool
	}{
		{"equal", map[string]any{"ask": 1.2345, "bid": 1.2343}, true},
		{"different value", map[string]any{"ask": 1.2346}, false},
		{"missing field", map[string]any{"bid": 1.2345}, false},
		{"string value", map[string]any{"ask": "1.2345"}, false},
		{"number data", 1.2345, false},
		{"array data", []any{1.2345}, false},
		{"null data", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Match(frame(t, "tickPrices", tt.data)))
		})
	}
}

func TestFilter_ByFieldDeepEqual(t *testing.T) {
	type level struct {
		Price  float64 `json:"price"`
		Volume int     `json:"volume"`
	}

	msg := frame(t, "tickPrices", map[string]any{
		"symbol": "EURUSD",
		"level":  map[string]any{"volume": 3, "price": 1.1},
		"tags":   []any{"a", "b"},
	})

	assert.True(t, xapi.ByField("symbol", "EURUSD").Match(msg))
	assert.True(t, xapi.ByField("level", level{Price: 1.1, Volume: 3}).Match(msg))
	assert.True(t, xapi.ByField("level", map[string]any{"price": 1.1, "volume": 3}).Match(msg))
	assert.False(t, xapi.ByField("level", level{Price: 1.1, Volume: 4}).Match(msg))
	assert.True(t, xapi.ByField("tags", []string{"a", "b"}).Match(msg))
	assert.False(t, xapi.ByField("tags", []string{"b", "a"}).Match(msg))

	// целые и дробные числа сравниваются как в JSON
	assert.True(t, xapi.ByField("volume", 3).Match(frame(t, "x", map[string]any{"volume": 3.0})))
}

func TestFilter_Custom(t *testing.T) {
	msg := frame(t, "tickPrices", map[string]any{"ask": 2.0})

	even := xapi.Custom(func(m *xapi.StreamData) bool {
		return m.Value().(map[string]any)["ask"].(float64) > 1
	})
	assert.True(t, even.Match(msg))

	panicking := xapi.Custom(func(*xapi.StreamData) bool {
		panic("boom")
	})
	assert.False(t, panicking.Match(msg))

	// паника в одной ветке не мешает другой
	assert.True(t, xapi.AnyOf(panicking, xapi.ByCommand("tickPrices")).Match(msg))
	assert.False(t, xapi.AllOf(xapi.ByCommand("tickPrices"), panicking).Match(msg))

	assert.False(t, xapi.Custom(nil).Match(msg))
}

func TestFilter_Expr(t *testing.T) {
	f, err := xapi.Expr(`command == "tickPrices" && data.symbol == "EURUSD" && data.ask > 1.1`)
	require.NoError(t, err)
	assert.Equal(t, xapi.FilterExpr, f.Kind())

	assert.True(t, f.Match(frame(t, "tickPrices", map[string]any{"symbol": "EURUSD", "ask": 1.2})))
	assert.False(t, f.Match(frame(t, "tickPrices", map[string]any{"symbol": "EURUSD", "ask": 1.0})))
	assert.False(t, f.Match(frame(t, "tickPrices", map[string]any{"symbol": "GBPUSD", "ask": 1.2})))
	assert.False(t, f.Match(frame(t, "candle", map[string]any{"symbol": "EURUSD", "ask": 1.2})))

	_, err = xapi.Expr(`command ==`)
	require.Error(t, err)

	_, err = xapi.Expr(`1 + 2`)
	require.Error(t, err)
}

func TestFilter_String(t *testing.T) {
	f := xapi.AllOf(xapi.ByCommand("tickPrices"), xapi.ByField("symbol", "EURUSD"))
	assert.Equal(t, "allOf(command(tickPrices), field(symbol=EURUSD))", f.String())
	assert.Equal(t, "all", xapi.Filter{}.String())
}
