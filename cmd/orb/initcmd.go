package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/orb-chat/orb/internal/config"
)

// initCmd walks through an interactive form and writes orb.yaml.
func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("output")
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", path)
			}

			var (
				token      string
				apiKey     string
				model      = config.DefaultModel
				worker     = config.DefaultWorkerModel
				opsAddr    string
				useEnvRefs = true
			)

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Discord bot token").
						Description("From the Discord developer portal. Leave empty to fill in later.").
						EchoMode(huh.EchoModePassword).
						Value(&token),
					huh.NewInput().
						Title("OpenRouter API key").
						EchoMode(huh.EchoModePassword).
						Value(&apiKey),
				),
				huh.NewGroup(
					huh.NewInput().
						Title("Reply model").
						Value(&model),
					huh.NewInput().
						Title("Worker model").
						Description("Cheaper model used for memory merging.").
						Value(&worker),
					huh.NewInput().
						Title("Ops listen address").
						Description("For /healthz, /metrics and /status. Empty disables it.").
						Placeholder("127.0.0.1:8090").
						Value(&opsAddr),
					huh.NewConfirm().
						Title("Reference secrets via environment variables?").
						Description("Writes ${DISCORD_TOKEN} / ${OPENROUTER_API_KEY} instead of the literal values.").
						Value(&useEnvRefs),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}

			cfg := config.Config{
				Discord: config.DiscordConfig{Token: token},
				Provider: config.ProviderConfig{
					APIKey:      apiKey,
					Model:       model,
					WorkerModel: worker,
				},
				Ops: config.OpsConfig{Addr: opsAddr},
			}
			if useEnvRefs {
				cfg.Discord.Token = "${DISCORD_TOKEN}"
				cfg.Provider.APIKey = "${OPENROUTER_API_KEY}"
			}

			data, err := yaml.Marshal(&cfg)
			if err != nil {
				return fmt.Errorf("encode configuration: %w", err)
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			fmt.Printf("Wrote %s\n", path)
			if useEnvRefs {
				fmt.Println("Set DISCORD_TOKEN and OPENROUTER_API_KEY before running `orb start`.")
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "orb.yaml", "Output path for the configuration file")
	return cmd
}
