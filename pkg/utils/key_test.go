package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashKey(t *testing.T) {
	assert.Equal(t, HashKey("3444"), HashKey("3444"))
	assert.NotEqual(t, HashKey("3444"), HashKey("1840"))
	assert.Len(t, HashKey("3444"), 64)
}

func TestCityIDFromPath(t *testing.T) {
	assert.Equal(t, "3444", CityIDFromPath("/data/raw/3444_data.json"))
	assert.Equal(t, "1840", CityIDFromPath("1840_data.json"))
	assert.Equal(t, "3444", CityIDFromPath("3444.json"))
}
