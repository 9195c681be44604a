package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquilaworks/convocations/internal/config"
	"github.com/aquilaworks/convocations/internal/model"
)

func newPresetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage event-window presets",
	}
	cmd.AddCommand(newPresetListCommand(), newPresetShowCommand(), newPresetCreateCommand(), newPresetUpdateCommand(), newPresetDeleteCommand())
	return cmd
}

func newPresetListCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "list",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, presets, _, err := openStore().Load()
			if err != nil {
				return err
			}
			for _, p := range presets {
				fmt.Printf("%-16s %-9s %-20s %02d:%02d  %4dm  builtin=%t\n", p.Name, p.Weekday, p.Timezone, p.StartHour, p.StartMinute, p.DurationMinutes, p.Builtin)
			}
			return nil
		},
	}
}

func newPresetShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "show NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, presets, _, err := openStore().Load()
			if err != nil {
				return err
			}
			p, err := config.FindPreset(presets, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", p)
			return nil
		},
	}
}

func newPresetCreateCommand() *cobra.Command {
	var weekday int
	var tz, prefix string
	var startHour, startMinute, durationMinutes, weeksAgo int

	cmd := &cobra.Command{
		Use:  "create NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore()
			cfg, presets, _, err := store.Load()
			if err != nil {
				return err
			}
			p := model.Preset{
				Name: args[0], Weekday: model.Weekday(weekday), Timezone: tz,
				StartHour: startHour, StartMinute: startMinute, DurationMinutes: durationMinutes,
				FilePrefix: prefix, DefaultWeeksAgo: weeksAgo,
			}
			presets, err = config.AddPreset(presets, p)
			if err != nil {
				return err
			}
			return store.Save(cfg, presets)
		},
	}
	f := cmd.Flags()
	f.IntVar(&weekday, "weekday", 0, "0=Sunday..6=Saturday")
	f.StringVar(&tz, "timezone", "America/New_York", "IANA timezone")
	f.StringVar(&prefix, "prefix", "", "file-name prefix")
	f.IntVar(&startHour, "start-hour", 20, "local start hour")
	f.IntVar(&startMinute, "start-minute", 0, "local start minute")
	f.IntVar(&durationMinutes, "duration-minutes", 120, "window duration in minutes")
	f.IntVar(&weeksAgo, "default-weeks-ago", 0, "default weeks_ago for this preset")
	return cmd
}

func newPresetUpdateCommand() *cobra.Command {
	var weekday int
	var tz, prefix string
	var startHour, startMinute, durationMinutes, weeksAgo int

	cmd := &cobra.Command{
		Use:  "update NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore()
			cfg, presets, _, err := store.Load()
			if err != nil {
				return err
			}
			existing, err := config.FindPreset(presets, args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("weekday") {
				existing.Weekday = model.Weekday(weekday)
			}
			if cmd.Flags().Changed("timezone") {
				existing.Timezone = tz
			}
			if cmd.Flags().Changed("prefix") {
				existing.FilePrefix = prefix
			}
			if cmd.Flags().Changed("start-hour") {
				existing.StartHour = startHour
			}
			if cmd.Flags().Changed("start-minute") {
				existing.StartMinute = startMinute
			}
			if cmd.Flags().Changed("duration-minutes") {
				existing.DurationMinutes = durationMinutes
			}
			if cmd.Flags().Changed("default-weeks-ago") {
				existing.DefaultWeeksAgo = weeksAgo
			}
			presets, err = config.UpdatePreset(presets, existing)
			if err != nil {
				return err
			}
			return store.Save(cfg, presets)
		},
	}
	f := cmd.Flags()
	f.IntVar(&weekday, "weekday", 0, "0=Sunday..6=Saturday")
	f.StringVar(&tz, "timezone", "", "IANA timezone")
	f.StringVar(&prefix, "prefix", "", "file-name prefix")
	f.IntVar(&startHour, "start-hour", 0, "local start hour")
	f.IntVar(&startMinute, "start-minute", 0, "local start minute")
	f.IntVar(&durationMinutes, "duration-minutes", 0, "window duration in minutes")
	f.IntVar(&weeksAgo, "default-weeks-ago", 0, "default weeks_ago for this preset")
	return cmd
}

func newPresetDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "delete NAME",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store := openStore()
			cfg, presets, _, err := store.Load()
			if err != nil {
				return err
			}
			presets, err = config.DeletePreset(presets, args[0])
			if err != nil {
				return err
			}
			return store.Save(cfg, presets)
		},
	}
}
