package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCondition_UnmarshalScalarShorthand(t *testing.T) {
	var c Condition
	require.NoError(t, json.Unmarshal([]byte(`"pending"`), &c))
	require.Equal(t, OpEq, c.Op)
	require.Equal(t, "pending", c.Value)

	require.NoError(t, json.Unmarshal([]byte(`42`), &c))
	require.Equal(t, OpEq, c.Op)
	require.Equal(t, 42.0, c.Value)
}

func TestCondition_UnmarshalTagged(t *testing.T) {
	var c Condition
	require.NoError(t, json.Unmarshal([]byte(`{"op":"gt","value":5}`), &c))
	require.Equal(t, OpGt, c.Op)
	require.True(t, c.Matches(6))
	require.False(t, c.Matches(5))

	require.Error(t, json.Unmarshal([]byte(`{"op":"matches-regex","value":1}`), &c))
}

func TestCondition_Matches(t *testing.T) {
	cases := []struct {
		name   string
		cond   Condition
		actual any
		want   bool
	}{
		{"eq string hit", Condition{OpEq, "pending"}, "pending", true},
		{"eq string miss", Condition{OpEq, "shipped"}, "pending", false},
		{"eq numeric widening", Condition{OpEq, 5.0}, int64(5), true},
		{"eq nil", Condition{OpEq, nil}, nil, true},
		{"gt", Condition{OpGt, 10.0}, 11.0, true},
		{"gt string operand", Condition{OpGt, "x"}, 11.0, false},
		{"lt", Condition{OpLt, 10.0}, 9.0, true},
		{"in hit", Condition{OpIn, []any{"a", "b"}}, "b", true},
		{"in miss", Condition{OpIn, []any{"a", "b"}}, "c", false},
		{"in non-list", Condition{OpIn, "a"}, "a", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.cond.Matches(tc.actual))
		})
	}
}

func TestStepDefinition_JSONRoundTrip(t *testing.T) {
	def := StepDefinition{
		Name: "order_intake",
		Operations: []Operation{
			{Table: "orders", Fields: map[string]string{"customer": "text", "status": "text"}},
		},
		NextStep: &NextStep{
			Step:     "order_review",
			Form:     "order_review",
			Type:     ModeAI,
			External: false,
			Conditions: Conditions{
				"orders": {"status": Condition{OpEq, "pending"}},
			},
			Fields: []string{"reviewer", "decision"},
		},
	}

	data, err := json.Marshal(&def)
	require.NoError(t, err)

	var got StepDefinition
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, def, got)
}
