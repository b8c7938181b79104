package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeSpec_Validation(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name  string
		spec  NodeSpec
		field string
	}{
		{name: "valid", spec: NodeSpec{Name: "m", Type: NodeTypeMap}},
		{name: "missing name", spec: NodeSpec{Type: NodeTypeMap}, field: "Name"},
		{name: "missing type", spec: NodeSpec{Name: "m"}, field: "Type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.spec)
			if tt.field == "" {
				assert.NoError(t, err)

				return
			}

			var validationErrors validator.ValidationErrors
			require.True(t, errors.As(err, &validationErrors))
			assert.Equal(t, tt.field, validationErrors[0].Field())
		})
	}
}

func TestNodeSpec_Config(t *testing.T) {
	spec := NodeSpec{Config: map[string]any{
		"func":     "sum",
		"empty":    "",
		"n":        float64(8),
		"n64":      int64(3),
		"numeric":  true,
		"not_bool": "yes",
	}}

	assert.Equal(t, "sum", spec.ConfigString("func", "identity"))
	assert.Equal(t, "identity", spec.ConfigString("empty", "identity"))
	assert.Equal(t, 8, spec.ConfigInt("n", 1))
	assert.Equal(t, 3, spec.ConfigInt("n64", 1))
	assert.Equal(t, 1, spec.ConfigInt("missing", 1))
	assert.True(t, spec.ConfigBool("numeric", false))
	assert.False(t, spec.ConfigBool("not_bool", false))
}

func TestNodeSpec_Ports(t *testing.T) {
	spec := NodeSpec{Inputs: Ports("a", "b"), ConditionNeeds: Ports("c"), Outputs: Ports("d")}
	assert.Equal(t, []string{"a", "b", "c", "d"}, spec.Ports())
}

func TestPortList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    PortList
		wantErr bool
	}{
		{name: "array", input: `["a","b"]`, want: PortList{"a", "b"}},
		{name: "object keeps order", input: `{"y":"second","x":"first"}`, want: PortList{"second", "first"}},
		{name: "string", input: `"a"`, want: PortList{"a"}},
		{name: "null", input: `null`, want: nil},
		{name: "empty object", input: `{}`, want: PortList{}},
		{name: "number", input: `3`, wantErr: true},
		{name: "object with non string value", input: `{"x":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PortList

			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNodeSpec_UnmarshalJSON(t *testing.T) {
	var spec NodeSpec

	err := json.Unmarshal([]byte(`{
		"name": "bins",
		"type": "keyed_reduce",
		"inputs": {"key": "bin", "value": "pair"},
		"outputs": ["binned"],
		"config": {"reduction": "add"}
	}`), &spec)
	require.NoError(t, err)

	assert.Equal(t, PortList{"bin", "pair"}, spec.Inputs)
	assert.Equal(t, PortList{"binned"}, spec.Outputs)
	assert.True(t, spec.Outputs.Contains("binned"))
	assert.False(t, spec.Outputs.Contains("bin"))
	assert.Equal(t, PortList{"bin", "pair"}, Named("key", "bin", "value", "pair"))
}

func TestTier(t *testing.T) {
	tests := []struct {
		tier   Tier
		valid  bool
		next   Tier
		suffix string
	}{
		{TierWorker, true, TierLocal, "_worker"},
		{TierLocal, true, TierGlobal, "_localCollector"},
		{TierGlobal, true, TierUnset, "_globalCollector"},
		{TierUnset, false, TierUnset, ""},
		{Tier("edge"), false, TierUnset, ""},
	}

	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.tier.Valid())
			assert.Equal(t, tt.next, tt.tier.Next())
			assert.Equal(t, tt.suffix, tt.tier.Suffix())

			parsed, err := ParseTier(string(tt.tier))
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.tier, parsed)
			} else {
				assert.ErrorIs(t, err, ErrUnknownTier)
			}
		})
	}

	assert.Equal(t, []Tier{TierWorker, TierLocal, TierGlobal}, Tiers())
}

func TestResult(t *testing.T) {
	v, ok := Ready(0).Value()
	assert.True(t, ok)
	assert.Equal(t, 0, v)

	assert.True(t, Ready(nil).IsReady(), "a nil value is still a value")
	assert.False(t, Pending().IsReady())
}

func TestErrors(t *testing.T) {
	cfg := NewConfigError("Compile", "m1", ErrCycle)

	assert.Equal(t, `Compile: node "m1": cyclic dependency`, cfg.Error())
	assert.Equal(t, "Compile: cyclic dependency", NewConfigError("Compile", "", ErrCycle).Error())
	assert.ErrorIs(t, cfg, ErrCycle)
	assert.ErrorIs(t, cfg, ErrInvalidConfig)
	assert.True(t, IsConfigError(cfg))
	assert.False(t, IsNodeError(cfg))

	nodeErr := &NodeError{Node: "bins_worker", Tier: TierWorker, Err: errors.New("boom")}
	assert.Equal(t, `node "bins_worker" on worker tier: boom`, nodeErr.Error())
	assert.True(t, IsNodeError(nodeErr))
	assert.False(t, IsConfigError(nodeErr))
	assert.False(t, IsNodeNotFound(nodeErr))
}

func TestHeartbeat(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	h, err := NewHeartbeat("@every 10s", start)
	require.NoError(t, err)

	assert.Equal(t, start.Add(10*time.Second), h.NextDueAt)
	assert.False(t, h.IsDue(start.Add(5*time.Second)))
	assert.True(t, h.IsDue(start.Add(10*time.Second)))

	h.Tick(start.Add(10 * time.Second))
	assert.Equal(t, 1, h.Cycles)
	assert.Equal(t, start.Add(20*time.Second), h.NextDueAt)

	secondly, err := NewHeartbeat("*/30 * * * * *", start)
	require.NoError(t, err)
	assert.Equal(t, start.Add(30*time.Second), secondly.NextDueAt)

	for _, expr := range []string{"", "not cron", "61 * * * *"} {
		_, err := NewHeartbeat(expr, start)
		assert.ErrorIs(t, err, ErrInvalidHeartbeat, "%q", expr)
	}
}
