package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts the bot to the system service manager. The service
// wrapper re-executes `orb start`, so Start/Stop only manage the process.
type program struct {
	args []string
	exit chan struct{}
}

func (p *program) Start(_ service.Service) error {
	p.exit = make(chan struct{})
	go p.run()
	return nil
}

func (p *program) run() {
	root := rootCmd()
	root.SetArgs(p.args)
	_ = root.Execute()
	close(p.exit)
}

func (p *program) Stop(_ service.Service) error {
	return nil
}

// serviceCmd manages orb as a system service (systemd, launchd, SCM).
func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "service [install|uninstall|start|stop|restart|run]",
		Short:     "Manage orb as a system service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"install", "uninstall", "start", "stop", "restart", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			svcArgs := []string{"service", "run"}
			startArgs := []string{"start"}
			if cfgPath != "" {
				svcArgs = append(svcArgs, "--config", cfgPath)
				startArgs = append(startArgs, "--config", cfgPath)
			}

			svc, err := service.New(&program{args: startArgs}, &service.Config{
				Name:        "orb",
				DisplayName: "orb chat bot",
				Description: "Discord chat bot with layered memory and tool-calling.",
				Arguments:   svcArgs,
			})
			if err != nil {
				return fmt.Errorf("create service: %w", err)
			}

			action := args[0]
			if action == "run" {
				return svc.Run()
			}
			if err := service.Control(svc, action); err != nil {
				return fmt.Errorf("service %s: %w", action, err)
			}
			fmt.Printf("Service %s: done\n", action)
			return nil
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}
