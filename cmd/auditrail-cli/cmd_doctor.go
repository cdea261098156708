package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/auditrail/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(apiClient)
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func doctorChecks(c *client.Client) []checkResult {
	var results []checkResult

	path, _ := configPath()
	if _, err := loadConfigFile(); err != nil {
		r := checkResult{Name: "Config file", Passed: true, Detail: "not present, using flags and env"}
		if !errors.Is(err, fs.ErrNotExist) {
			r = checkResult{Name: "Config file", Detail: path, Hint: err.Error()}
		}
		results = append(results, r)
	} else {
		results = append(results, checkResult{Name: "Config file", Passed: true, Detail: path})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := c.Health(ctx)
	if err != nil {
		return append(results, checkResult{
			Name: "Server reachable", Detail: flagURL,
			Hint: fmt.Sprintf("Is auditrail running? Error: %v", err),
		})
	}
	results = append(results, checkResult{
		Name: "Server reachable", Passed: true,
		Detail: fmt.Sprintf("%s (version %s, database %s)", flagURL, health.Version, health.Database),
	})

	ready, err := c.Ready(ctx)
	if err != nil {
		return append(results, checkResult{
			Name: "Server ready",
			Hint: fmt.Sprintf("Check database connectivity and migrations. Error: %v", err),
		})
	}
	results = append(results, checkResult{Name: "Server ready", Passed: true, Detail: ready.Status})

	if flagActor == "" {
		results = append(results, checkResult{
			Name: "Actor", Passed: true, Detail: "not set, manual entries need --actor",
		})
	} else {
		results = append(results, checkResult{Name: "Actor", Passed: true, Detail: flagActor})
	}

	return results
}

func runDoctor(c *client.Client) error {
	fmt.Println("\nauditrail doctor")
	fmt.Println("================")
	fmt.Println()

	allPassed := true
	for _, r := range doctorChecks(c) {
		mark := "ok  "
		if !r.Passed {
			mark = "FAIL"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Printf("[%s] %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Printf("[%s] %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Printf("       Hint: %s\n", r.Hint)
		}
	}

	fmt.Println()
	if !allPassed {
		return fmt.Errorf("doctor found issues")
	}
	fmt.Println("All checks passed.")
	return nil
}
