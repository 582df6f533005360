package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeJSONKeepsPrecision(t *testing.T) {
	id := Snowflake(1234567890123456789)

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"1234567890123456789"`, string(data))

	var back Snowflake
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back)
}

func TestSnowflakeUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Snowflake
		wantErr bool
	}{
		{name: "quoted", in: `"913554033065750541"`, want: 913554033065750541},
		{name: "bare number", in: `55`, want: 55},
		{name: "null", in: `null`, want: 0},
		{name: "empty string", in: `""`, want: 0},
		{name: "negative", in: `"-1"`, wantErr: true},
		{name: "text", in: `"general"`, wantErr: true},
		{name: "float", in: `1.5`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Snowflake
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSnowflake(t *testing.T) {
	id, err := ParseSnowflake("42")
	require.NoError(t, err)
	assert.Equal(t, Snowflake(42), id)
	assert.Equal(t, "42", id.String())
	assert.False(t, id.IsZero())

	_, err = ParseSnowflake("")
	assert.Error(t, err)
}
