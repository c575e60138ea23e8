package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"llmapi/internal/chat"
	"llmapi/pkg/types"
)

func benchCmd(configPath *string) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:     "bench",
		Short:   "Time one query against the configured engine and print JSON",
		Example: "  llmapi bench -q \"Why is the sky blue?\"",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return runBench(cmd, a.model, query)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "Hello", "User message to send")
	return cmd
}

func runBench(cmd *cobra.Command, m *chat.Model, query string) error {
	messages := []chat.Message{{Role: chat.RoleUser, Content: strings.TrimSpace(query)}}
	b, err := chat.Bench(func() (*chat.FragmentStream, error) {
		return m.Query(cmd.Context(), messages, nil)
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(types.BenchmarkResponse{
		Response:        b.Response,
		Tokens:          b.Tokens,
		TotalTime:       b.TotalTime,
		TokensPerSecond: b.TokensPerSecond,
	})
}
