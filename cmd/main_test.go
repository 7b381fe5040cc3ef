package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateConfig(t *testing.T) {
	valid := config{
		PublicEndpoint:  "http://localhost:4100",
		DefaultMaxItems: 20,
		DefaultMaxDepth: 3,
	}
	require.NoError(t, validateConfig(valid))

	t.Run("invalid public endpoint", func(t *testing.T) {
		conf := valid
		conf.PublicEndpoint = "localhost"
		require.Error(t, validateConfig(conf))
	})

	t.Run("invalid max items", func(t *testing.T) {
		conf := valid
		conf.DefaultMaxItems = 0
		require.Error(t, validateConfig(conf))
	})

	t.Run("invalid max depth", func(t *testing.T) {
		conf := valid
		conf.DefaultMaxDepth = 256
		require.Error(t, validateConfig(conf))
	})

	t.Run("negative max spaces", func(t *testing.T) {
		conf := valid
		conf.MaxSpaces = -1
		require.Error(t, validateConfig(conf))
	})
}
