package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema(t *testing.T) {
	root := &cobra.Command{Use: "taskpilotd", Short: "root"}
	AddHelpJSONFlag(root)

	chain := &cobra.Command{Use: "chain <work-item-id>", Short: "Show a chain", Run: func(*cobra.Command, []string) {}}
	chain.Flags().StringP("user", "u", "", "User the request is made for")
	chain.Flags().Int("max-depth", 0, "Maximum chain depth")
	root.AddCommand(chain)

	hidden := &cobra.Command{Use: "internal", Hidden: true, Run: func(*cobra.Command, []string) {}}
	root.AddCommand(hidden)

	schema := GenerateSchema(root)

	assert.Equal(t, "taskpilotd", schema.Name)
	require.Len(t, schema.Subcommands, 1)
	sub := schema.Subcommands[0]
	assert.Equal(t, "chain", sub.Name)
	assert.Equal(t, "Show a chain", sub.Description)
	require.Len(t, sub.Flags, 2)

	byName := map[string]FlagSchema{}
	for _, f := range sub.Flags {
		byName[f.Name] = f
	}
	assert.Equal(t, "u", byName["user"].Shorthand)
	assert.Equal(t, "string", byName["user"].Type)
	assert.Equal(t, "int", byName["max-depth"].Type)
	assert.Equal(t, "0", byName["max-depth"].Default)
}

func TestFindTargetCommand(t *testing.T) {
	root := &cobra.Command{Use: "taskpilotd"}
	ask := &cobra.Command{Use: "ask", Aliases: []string{"a"}}
	root.AddCommand(ask)

	assert.Equal(t, ask, findTargetCommand(root, []string{"ask"}))
	assert.Equal(t, ask, findTargetCommand(root, []string{"a"}))
	assert.Equal(t, root, findTargetCommand(root, []string{"unknown"}))
	assert.Equal(t, root, findTargetCommand(root, nil))
}

func TestGenerateSchema_RequiredInheritedAndHiddenFlags(t *testing.T) {
	root := &cobra.Command{Use: "taskpilotd"}
	AddHelpJSONFlag(root)
	root.PersistentFlags().String("server", "", "Server URL")

	ask := &cobra.Command{Use: "ask <prompt>", Aliases: []string{"a"}, Example: "taskpilotd ask -u u-alice \"what is overdue?\"", Run: func(*cobra.Command, []string) {}}
	ask.Flags().StringP("user", "u", "", "User the request is made for")
	ask.Flags().String("debug-dump", "", "internal")
	require.NoError(t, ask.MarkFlagRequired("user"))
	require.NoError(t, ask.Flags().MarkHidden("debug-dump"))
	root.AddCommand(ask)

	schema := GenerateSchema(root).Subcommands[0]

	assert.Equal(t, []string{"a"}, schema.Aliases)
	assert.Contains(t, schema.Example, "taskpilotd ask")
	require.Len(t, schema.Flags, 2)
	assert.Equal(t, "user", schema.Flags[0].Name)
	assert.True(t, schema.Flags[0].Required)
	assert.False(t, schema.Flags[0].Inherited)
	assert.Equal(t, "server", schema.Flags[1].Name)
	assert.False(t, schema.Flags[1].Required)
	assert.True(t, schema.Flags[1].Inherited)
}

func TestWriteSchema(t *testing.T) {
	root := &cobra.Command{Use: "taskpilotd", Short: "root"}
	root.AddCommand(&cobra.Command{Use: "migrate", Short: "Apply migrations", Run: func(*cobra.Command, []string) {}})

	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, root))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "taskpilotd", decoded.Name)
	require.Len(t, decoded.Subcommands, 1)
	assert.Equal(t, "Apply migrations", decoded.Subcommands[0].Description)
}
