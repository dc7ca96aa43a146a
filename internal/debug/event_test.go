package debug

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-bridge/pkg/models"
)

func TestSummarize(t *testing.T) {
	cases := []struct {
		name     string
		data     Fields
		expected string
	}{
		{"empty", Fields{}, "Payload: 0 fields"},
		{"add to cart", Fields{"items_count": String("3"), "deeplink": String("app://p/1")}, "Items: 3 • Payload: 2 fields"},
		{"purchase", Fields{"items_count": String("1"), "order_id": String("A-1"), "payload": Map(nil)}, "Items: 1 • Order: A-1 • Payload: 3 fields"},
		{"trigger", Fields{"type": String("trigger"), "creativeId": String("default")}, "Creative: default • Payload: 2 fields"},
		{"custom", Fields{"event_type": String("Wishlist"), "properties_count": String("2")}, "Type: Wishlist • Payload: 2 fields"},
		{"numeric count", Fields{"items_count": Int(4)}, "Items: 4 • Payload: 1 fields"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Summarize(Event{Data: tc.data}))
		})
	}
}

func TestFromAny(t *testing.T) {
	payload := models.Payload{
		"id":    "42",
		"count": float64(3),
		"ratio": 0.5,
		"flag":  true,
		"none":  nil,
		"aps":   map[string]interface{}{"badge": float64(1)},
		"tags":  []interface{}{"a", "b"},
	}

	value := FromAny(payload)
	require.Equal(t, KindMap, value.Kind())

	fields := value.Interface().(map[string]interface{})
	assert.Equal(t, "42", fields["id"])
	assert.Equal(t, int64(3), fields["count"])
	assert.Equal(t, 0.5, fields["ratio"])
	assert.Equal(t, true, fields["flag"])
	assert.Nil(t, fields["none"])
	assert.Equal(t, map[string]interface{}{"badge": int64(1)}, fields["aps"])
	assert.Equal(t, []interface{}{"a", "b"}, fields["tags"])
}

func TestValueJSON(t *testing.T) {
	fields := Fields{
		"s": String("x"),
		"n": Null(),
		"l": List(Int(1), Float(1.5)),
		"f": Float(math.NaN()),
	}
	out, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"x","n":null,"l":[1,1.5],"f":"NaN"}`, string(out))

	var decoded Value
	require.NoError(t, json.Unmarshal([]byte(`{"a":[true,"b"]}`), &decoded))
	assert.Equal(t, KindMap, decoded.Kind())
	assert.Equal(t, `{"a":[true,"b"]}`, decoded.String())
}
