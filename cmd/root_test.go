package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"run", "batch", "lookup", "enhance", "runs", "review", "marcone", "catalogs", "models", "amazon"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "parts-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"part", "brand", "make", "report-dir"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run should have --%s flag", name)
	}
	part := runCmd.Flags().Lookup("part")
	require.NotNil(t, part)
	assert.Equal(t, []string{"true"}, part.Annotations[cobra.BashCompOneRequiredFlag])
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "batch command should have --limit flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.NotNil(t, batchCmd.Flags().Lookup("input"))
}

func TestEnhanceCommand_Flags(t *testing.T) {
	flag := enhanceCmd.Flags().Lookup("dry-run")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)

	limit := enhanceCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "100", limit.DefValue)
	assert.NotNil(t, enhanceCmd.Flags().Lookup("category"))
}

func TestExclusiveTargetFlags(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		set  func(a, b string)
	}{
		{"enhance", enhanceCmd, func(a, b string) { enhancePart, enhanceCategory = a, b }},
		{"amazon product", amazonProductCmd, func(a, b string) { amazonProductURL, amazonProductASIN = a, b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { tt.set("", "") })

			tt.set("", "")
			err := tt.cmd.RunE(tt.cmd, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "exactly one of")

			tt.set("x", "y")
			err = tt.cmd.RunE(tt.cmd, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "exactly one of")
		})
	}
}

func TestSubcommandGroups(t *testing.T) {
	tests := []struct {
		name     string
		children []string
		got      func() []string
	}{
		{"runs", []string{"list", "show"}, func() []string { return childNames(runsCmd.Commands()) }},
		{"review", []string{"list", "resolve"}, func() []string { return childNames(reviewCmd.Commands()) }},
		{"marcone", []string{"prices", "search", "makes"}, func() []string { return childNames(marconeCmd.Commands()) }},
		{"catalogs", []string{"list", "show"}, func() []string { return childNames(catalogsCmd.Commands()) }},
		{"amazon", []string{"category", "product"}, func() []string { return childNames(amazonCmd.Commands()) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.children, tt.got())
		})
	}
}

func TestMarconePricesCommand_Flags(t *testing.T) {
	out := marconePricesCmd.Flags().Lookup("out")
	require.NotNil(t, out)
	assert.Equal(t, "marcone_prices.csv", out.DefValue)
	assert.NotNil(t, marconePricesCmd.Flags().Lookup("remote"))
}

func childNames(cmds []*cobra.Command) []string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name()
	}
	return names
}
