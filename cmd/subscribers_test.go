package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWatchFlags(t *testing.T) {
	watchList, err := parseWatchFlags([]string{
		"seed=kiwi,sugar_apple",
		"egg=*_egg",
		"seed=cactus",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"seed": {"kiwi", "sugar_apple", "cactus"},
		"egg":  {"*_egg"},
	}, watchList)
}

func TestParseWatchFlagsEmpty(t *testing.T) {
	watchList, err := parseWatchFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, watchList)
}

func TestParseWatchFlagsInvalid(t *testing.T) {
	for _, flag := range []string{"seed", "=kiwi", "seed="} {
		_, err := parseWatchFlags([]string{flag})
		assert.Error(t, err, "flag %q should be rejected", flag)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	want := []string{"watch", "stop", "status", "subscribers", "config", "logs", "tui", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing subcommand %q", name)
	}
}
