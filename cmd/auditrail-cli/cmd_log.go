package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/persistorai/auditrail/client"
)

func newLogCmd() *cobra.Command {
	var action, oldJSON, newJSON string

	cmd := &cobra.Command{
		Use:   "log <entity-name> <entity-id>",
		Short: "Record an audit entry directly",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			req, err := buildLogRequest(args[0], args[1], action, oldJSON, newJSON)
			if err != nil {
				fatal("log entry", err)
			}
			entry, err := apiClient.Logs.Log(context.Background(), req)
			if err != nil {
				fatal("log entry", err)
			}
			output(entry, entry.ID)
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Create|Update|Delete|SoftDelete")
	cmd.Flags().StringVar(&oldJSON, "old", "", "Previous values as a JSON object")
	cmd.Flags().StringVar(&newJSON, "new", "", "New values as a JSON object")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}

func buildLogRequest(name, id, action, oldJSON, newJSON string) (client.LogRequest, error) {
	req := client.LogRequest{
		EntityName: name,
		EntityID:   id,
		Action:     client.Action(action),
		ActorID:    flagActor,
	}

	switch req.Action {
	case client.ActionCreate, client.ActionUpdate, client.ActionDelete, client.ActionSoftDelete:
	default:
		return req, fmt.Errorf("unknown action %q", action)
	}

	var err error
	if req.OldValues, err = jsonObject("--old", oldJSON); err != nil {
		return req, err
	}
	if req.NewValues, err = jsonObject("--new", newJSON); err != nil {
		return req, err
	}
	return req, nil
}

func jsonObject(flag, s string) (json.RawMessage, error) {
	if s == "" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object: %w", flag, err)
	}
	return json.RawMessage(s), nil
}
