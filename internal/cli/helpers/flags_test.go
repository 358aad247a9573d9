package helpers

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerwatch/peerwatch/internal/peer"
)

func TestAddFormatFlag(t *testing.T) {
	var format string
	cmd := &cobra.Command{Use: "x"}
	AddFormatFlag(cmd, &format, FormatTable, ListFormats)

	flag := cmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "table", flag.DefValue)
	assert.Contains(t, flag.Usage, "table, json, csv")

	require.NoError(t, cmd.Flags().Parse([]string{"-o", "csv"}))
	assert.Equal(t, "csv", format)
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("yaml", ListFormats))
	err := ValidateFormat("xml", ListFormats)
	assert.ErrorContains(t, err, "must be one of: table, json, csv, yaml")
}

func TestParseDirectionFlag(t *testing.T) {
	d, err := ParseDirectionFlag("")
	require.NoError(t, err)
	assert.Equal(t, peer.Direction(""), d)

	d, err = ParseDirectionFlag("out")
	require.NoError(t, err)
	assert.Equal(t, peer.DirectionOut, d)

	_, err = ParseDirectionFlag("sideways")
	assert.Error(t, err)
}
