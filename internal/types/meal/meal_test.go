package meal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMeal(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	m, err := CreateMealRequest{Date: "2024-03-10", Items: json.RawMessage(`[{"name":"arroz"}]`)}.ToMeal(now)
	require.NoError(t, err)
	assert.Equal(t, "manual", m.Source)
	assert.Len(t, m.Items, 1)
	assert.Equal(t, now, m.CreatedAt)

	m, err = CreateMealRequest{Date: "2024-03-10", Items: json.RawMessage(`[]`), Source: "Photo"}.ToMeal(now)
	require.NoError(t, err)
	assert.Equal(t, "photo", m.Source)
	assert.Empty(t, m.Items)

	m, err = CreateMealRequest{Date: "2024-03-10", Items: json.RawMessage(`[]`), Source: "Scan"}.ToMeal(now)
	require.NoError(t, err)
	assert.Equal(t, "scan", m.Source)
}

func TestToMealRejects(t *testing.T) {
	now := time.Now()
	cases := map[string]CreateMealRequest{
		"missing date":  {Items: json.RawMessage(`[]`)},
		"bad date":      {Date: "10/03/2024", Items: json.RawMessage(`[]`)},
		"missing items": {Date: "2024-03-10"},
		"items object":  {Date: "2024-03-10", Items: json.RawMessage(`{"a":1}`)},
		"items null":    {Date: "2024-03-10", Items: json.RawMessage(`null`)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := req.ToMeal(now)
			assert.ErrorIs(t, err, ErrInvalidMeal)
		})
	}
}

func TestCollection(t *testing.T) {
	assert.Equal(t, "users/u1/meals", Collection("u1"))
}
