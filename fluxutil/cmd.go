/*
Copyright © 2025 the chamberflux authors.
This file is part of chamberflux.

chamberflux is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

chamberflux is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with chamberflux.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package fluxutil wires the chamberflux engine into a command-line
// tool: configuration handling, the command tree, and the progress
// reporter that renders engine events.
package fluxutil

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	chamberflux "github.com/fluxlab/chamberflux"
	"github.com/fluxlab/chamberflux/gas"
	"github.com/fluxlab/chamberflux/store"
)

// Version is the tool version reported by the version command.
const Version = "0.3.0"

// Cfg holds the configuration and command tree.
type Cfg struct {
	*viper.Viper

	Root       *cobra.Command
	versionCmd *cobra.Command
	processCmd *cobra.Command

	log *logrus.Logger
}

// InitializeConfig builds the command tree and binds configuration
// defaults. Configuration can come from a config file (--config), from
// command-line flags, or from environment variables prefixed
// CHAMBERFLUX_.
func InitializeConfig() *Cfg {
	cfg := &Cfg{
		Viper: viper.New(),
		log:   logrus.StandardLogger(),
	}
	cfg.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg.SetEnvPrefix("CHAMBERFLUX")
	cfg.AutomaticEnv()

	cfg.Root = &cobra.Command{
		Use:   "chamberflux",
		Short: "Closed-chamber greenhouse-gas flux calculator.",
		Long: `chamberflux computes greenhouse-gas fluxes from closed-chamber
measurements: it aligns instrument time series to chamber events,
selects a calculation window, fits linear, robust-linear and
polynomial models, and stores one result row per cycle and gas.

Configuration can be changed with a configuration file (--config),
command-line arguments, or environment variables in the format
'CHAMBERFLUX_var'.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setConfig(cfg)
		},
	}
	cfg.Root.PersistentFlags().String("config", "", "path to configuration file")

	cfg.versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chamberflux v%s\n", Version)
		},
		DisableAutoGenTag: true,
	}

	cfg.processCmd = &cobra.Command{
		Use:   "process",
		Short: "Process cycles and store fluxes.",
		Long: `process loads the cycle definitions, raw gas samples, meteorology,
chamber heights and chamber geometry of the configured project for the
configured time range, initializes and fits every cycle, and writes
the resulting flux rows.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cfg)
		},
		DisableAutoGenTag: true,
	}
	flags := cfg.processCmd.Flags()
	flags.String("DatabaseURL", "postgres://localhost:5432/chamberflux", "database connection URL")
	flags.Int64("ProjectID", 1, "project to process")
	flags.String("Start", "", "range start, RFC 3339 or 2006-01-02")
	flags.String("End", "", "range end, RFC 3339 or 2006-01-02")
	cfg.BindPFlags(flags)

	cfg.Root.AddCommand(cfg.versionCmd, cfg.processCmd)

	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Cfg) {
	cfg.SetDefault("DatabaseURL", "postgres://localhost:5432/chamberflux")
	cfg.SetDefault("ProjectID", 1)
	cfg.SetDefault("Timezone", "UTC")
	cfg.SetDefault("MainGas", "CH4")
	cfg.SetDefault("Deadband", 30.0)
	cfg.SetDefault("MinCalcLen", chamberflux.MinWindowSize)
	cfg.SetDefault("Mode", "best-r")
}

// setConfig reads the configuration file named by --config, if any.
func setConfig(cfg *Cfg) error {
	path, err := cfg.Root.PersistentFlags().GetString("config")
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	cfg.SetConfigFile(os.ExpandEnv(path))
	if err := cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("fluxutil: reading configuration file: %v", err)
	}
	return nil
}

// projectFromConfig assembles the Project the engine consumes.
func projectFromConfig(cfg *Cfg) (chamberflux.Project, error) {
	mainGas, err := gas.Parse(cfg.GetString("MainGas"))
	if err != nil {
		return chamberflux.Project{}, err
	}
	mode, err := chamberflux.ParseMode(cfg.GetString("Mode"))
	if err != nil {
		return chamberflux.Project{}, err
	}
	return chamberflux.Project{
		ID:         cfg.GetInt64("ProjectID"),
		Name:       cfg.GetString("ProjectName"),
		Timezone:   cfg.GetString("Timezone"),
		MainGas:    mainGas,
		Deadband:   cfg.GetFloat64("Deadband"),
		MinCalcLen: cfg.GetFloat64("MinCalcLen"),
		Mode:       mode,
	}, nil
}

// timeRange parses the configured processing range.
func timeRange(cfg *Cfg, loc *time.Location) (start, end time.Time, err error) {
	parse := func(s string) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		return time.ParseInLocation("2006-01-02", s, loc)
	}
	start, err = parse(cfg.GetString("Start"))
	if err != nil {
		return start, end, fmt.Errorf("fluxutil: parsing Start: %v", err)
	}
	end, err = parse(cfg.GetString("End"))
	if err != nil {
		return start, end, fmt.Errorf("fluxutil: parsing End: %v", err)
	}
	return start, end, nil
}

// runProcess is the process command: query, fit, store.
func runProcess(cfg *Cfg) error {
	ctx := context.Background()

	project, err := projectFromConfig(cfg)
	if err != nil {
		return err
	}
	loc := project.Location()
	start, end, err := timeRange(cfg, loc)
	if err != nil {
		return err
	}

	s, err := store.Open(ctx, cfg.GetString("DatabaseURL"), cfg.log)
	if err != nil {
		return fmt.Errorf("fluxutil: opening store: %v", err)
	}
	defer s.Close(ctx)

	events := EventChan(cfg.log)

	chamberflux.Emit(events, chamberflux.QueryStarted{})
	times, err := s.QueryCycles(ctx, project, start, end)
	if err != nil {
		return err
	}
	gasByDay, err := s.QueryGasByDay(ctx, project, start, end)
	if err != nil {
		return err
	}
	meteo, err := s.QueryMeteo(ctx, project.ID, start, end)
	if err != nil {
		return err
	}
	heights, err := s.QueryHeights(ctx, project.ID)
	if err != nil {
		return err
	}
	chambers, err := s.QueryChambers(ctx, project.ID)
	if err != nil {
		return err
	}
	chamberflux.Emit(events, chamberflux.QueryComplete{})

	cycles := chamberflux.RunProcessing(times, gasByDay, meteo, heights, chambers, project, events)

	inserted, skipped, err := s.InsertFluxes(ctx, cycles, project.ID)
	if err != nil {
		chamberflux.Emit(events, chamberflux.InsertFailEvent{Msg: err.Error()})
		return err
	}
	chamberflux.Emit(events, chamberflux.InsertOKEvent{Inserted: inserted, Skipped: skipped})

	cfg.log.WithFields(logrus.Fields{
		"cycles":   times.Len(),
		"inserted": inserted,
		"skipped":  skipped,
	}).Info("processing complete")
	return nil
}

// EventChan returns a channel whose events are rendered to the log in
// the background. The engine's sends never block; a slow terminal
// just drops events.
func EventChan(log *logrus.Logger) chan chamberflux.Event {
	events := make(chan chamberflux.Event, 64)
	go func() {
		for ev := range events {
			renderEvent(log, ev)
		}
	}()
	return events
}

func renderEvent(log *logrus.Logger, ev chamberflux.Event) {
	switch e := ev.(type) {
	case chamberflux.QueryStarted:
		log.Info("query started")
	case chamberflux.QueryComplete:
		log.Info("query complete")
	case chamberflux.ProgressEvent:
		log.Infof("processed %d of %d cycles", e.Done, e.Total)
	case chamberflux.DayEvent:
		log.Infof("day %s", e.Day)
	case chamberflux.ReadFileEvent:
		log.Infof("read %s", e.Path)
	case chamberflux.ReadFileRowsEvent:
		log.Infof("read %s: %d rows", e.Path, e.Rows)
	case chamberflux.ReadFileFailEvent:
		log.Warnf("read %s failed: %s", e.Path, e.Msg)
	case chamberflux.InsertOKEvent:
		log.Infof("inserted %d rows, skipped %d", e.Inserted, e.Skipped)
	case chamberflux.InsertFailEvent:
		log.Errorf("insert failed: %s", e.Msg)
	case chamberflux.NoGasDataEvent:
		log.Warnf("no gas data: %s", e.Msg)
	case chamberflux.NoGasDataDayEvent:
		log.Warnf("no gas data for day %s", e.Day)
	case chamberflux.DoneEvent:
		log.Info("done")
	case chamberflux.ErrorEvent:
		log.Error(e.Msg)
	}
}
