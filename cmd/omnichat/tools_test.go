package main

import (
	"context"
	"testing"

	"github.com/casualjim/omnichat/messages"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoTools(t *testing.T) {
	reg := demoTools()
	fns := reg.Functions()
	require.Len(t, fns, 2)
	assert.Equal(t, "current_time", fns[0].Name)
	assert.Equal(t, "get_weather", fns[1].Name)

	ctx := context.Background()
	c, err := reg.Execute(ctx, messages.Tool{Name: "get_weather", Parameters: json.RawMessage(`{"city":"Lima"}`)})
	require.NoError(t, err)
	f, err := reg.Execute(ctx, messages.Tool{Name: "get_weather", Parameters: json.RawMessage(`{"city":"Lima","unit":"f"}`)})
	require.NoError(t, err)
	assert.Contains(t, c, "°C and clear in Lima")
	assert.Contains(t, f, "°F")

	_, err = reg.Execute(ctx, messages.Tool{Name: "get_weather", Parameters: json.RawMessage(`{}`)})
	assert.Error(t, err)

	now, err := reg.Execute(ctx, messages.Tool{Name: "current_time", Parameters: json.RawMessage(`{"timezone":"UTC"}`)})
	require.NoError(t, err)
	assert.Contains(t, now, "UTC")

	_, err = reg.Execute(ctx, messages.Tool{Name: "current_time", Parameters: json.RawMessage(`{"timezone":"Mars/Olympus"}`)})
	assert.Error(t, err)
}
