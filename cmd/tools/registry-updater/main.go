package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"mangastream-workers/pkg/registry"
)

const defaultPath = "pkg/registry/activities.json"

var statuses = map[string]bool{
	"planned":     true,
	"in-progress": true,
	"implemented": true,
	"verified":    true,
}

func main() {
	if len(os.Args) < 2 {
		help(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, out io.Writer) error {
	switch command {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		category := fs.String("category", "", "Only list activities in this category")
		if err := fs.Parse(args); err != nil {
			return err
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return err
		}
		return list(reg, *category, out)

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		if err := fs.Parse(args); err != nil {
			return err
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("registry is invalid: %w", err)
		}
		fmt.Fprintf(out, "Registry is valid: %d activities\n", len(reg.Activities))
		return nil

	case "add":
		fs := flag.NewFlagSet("add", flag.ContinueOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID (e.g., catalog.episode.publish)")
		displayName := fs.String("displayName", "", "Display name")
		description := fs.String("description", "", "Description")
		category := fs.String("category", "", "Category (e.g., catalog)")
		taskType := fs.String("taskType", "", "Zeebe task type (e.g., publish-episodes)")
		version := fs.String("version", "1.0.0", "Version")
		status := fs.String("status", "planned", "Implementation status (planned, in-progress, implemented, verified)")
		timeout := fs.String("timeout", "10s", "Worker timeout")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" || *displayName == "" || *category == "" || *taskType == "" {
			return fmt.Errorf("id, displayName, category and taskType are required for add")
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return err
		}
		activity := registry.Activity{
			ID:                   *id,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *status,
			InputSchema:          map[string]interface{}{"type": "object"},
			ErrorCodes:           []string{},
			Timeout:              *timeout,
		}
		if err := addActivity(reg, activity); err != nil {
			return err
		}
		if err := save(reg, *path, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Added activity: %s\n", *id)
		return nil

	case "update":
		fs := flag.NewFlagSet("update", flag.ContinueOnError)
		path := fs.String("path", defaultPath, "Path to registry file")
		id := fs.String("id", "", "Activity ID to update")
		field := fs.String("field", "", "Field to update (status, version, timeout, retries, description, displayName)")
		value := fs.String("value", "", "New value for the field")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" || *field == "" || *value == "" {
			return fmt.Errorf("id, field and value are required for update")
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return err
		}
		if err := updateActivity(reg, *id, *field, *value); err != nil {
			return err
		}
		if err := save(reg, *path, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated %s.%s = %s\n", *id, *field, *value)
		return nil

	case "help", "-h", "--help":
		help(out)
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

func list(reg *registry.ActivityRegistry, category string, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TASK TYPE\tID\tSTATUS\tTIMEOUT")
	for _, a := range reg.Activities {
		if category != "" && a.Category != category {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.TaskType, a.ID, a.ImplementationStatus, a.Timeout)
	}
	return w.Flush()
}

func addActivity(reg *registry.ActivityRegistry, activity registry.Activity) error {
	if !statuses[activity.ImplementationStatus] {
		return fmt.Errorf("unknown status %q", activity.ImplementationStatus)
	}
	if _, err := time.ParseDuration(activity.Timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", activity.Timeout, err)
	}
	for _, a := range reg.Activities {
		if a.ID == activity.ID {
			return fmt.Errorf("activity %s already exists", activity.ID)
		}
	}
	reg.Activities = append(reg.Activities, activity)
	return revalidate(reg)
}

func updateActivity(reg *registry.ActivityRegistry, id, field, value string) error {
	for i := range reg.Activities {
		a := &reg.Activities[i]
		if a.ID != id {
			continue
		}
		switch field {
		case "status":
			if !statuses[value] {
				return fmt.Errorf("unknown status %q", value)
			}
			a.ImplementationStatus = value
		case "version":
			a.Version = value
		case "description":
			a.Description = value
		case "displayName":
			a.DisplayName = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout %q: %w", value, err)
			}
			a.Timeout = value
		case "retries":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("retries must be a non-negative integer, got %q", value)
			}
			a.Retries = n
		default:
			return fmt.Errorf("unsupported field %q", field)
		}
		return nil
	}
	return fmt.Errorf("activity %s not found", id)
}

// revalidate round-trips the registry through Parse so edits obey the
// same id and task type rules the worker manager enforces at startup.
func revalidate(reg *registry.ActivityRegistry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	_, err = registry.Parse(data)
	return err
}

func save(reg *registry.ActivityRegistry, path string, now time.Time) error {
	reg.LastUpdated = now.UTC().Format("2006-01-02")
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func help(out io.Writer) {
	fmt.Fprintln(out, strings.TrimSpace(`
Usage: registry-updater <command> [flags]

Commands:
  list       Print registered activities
  validate   Check the registry file for id and task type errors
  add        Append a new activity
  update     Change one field of an existing activity

Run 'registry-updater <command> -h' for command flags.`))
}
