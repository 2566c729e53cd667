package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const configTemplate = `# Honeycomb configuration.
# Every key can also be set with a HONEYCOMB_* environment variable,
# e.g. server.port -> HONEYCOMB_SERVER_PORT.

server:
  port: 8080
  # api_keys:
  #   - replace-with-a-long-random-key
  rate_global_rpm: 300
  rate_per_caller_rpm: 60

llm:
  mode: local  # local (Ollama) or remote (OpenAI-compatible)
  model: gpt-4o-mini
  base_url: http://localhost:11434
  # api_key: sk-...
  max_tokens: 256
  temperature: 0.7
  timeout: 30s

agent:
  memory_turns: 10
  min_turns: 3
  max_turns: 10
  # persona: |
  #   Override the decoy persona system prompt here.

detect:
  threshold: 0.7
  # url: http://classifier:9000  # remote classifier; omit for builtin keywords

callback:
  # url: https://evaluator.example.com/api/callback
  timeout: 10s

session:
  max_age: 1h
  sweep_schedule: "@every 5m"

speech:
  # stt_url: http://speech:8000
  # tts_url: http://speech:8000

archive:
  # data_dir: ~/.honeycomb
  # signing_key: set-a-32-byte-or-longer-secret-here
`

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter honeycomb.config.yaml",
	Long:  "Creates honeycomb.config.yaml in the current directory as a commented starting point",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "init")
		defer span.End()

		const path = "honeycomb.config.yaml"
		if fileExists(path) && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		log.Info().Str("file", path).Msg("Config template written")
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
