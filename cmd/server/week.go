package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/timesheet"
)

func weekCmd() *cobra.Command {
	week := &cobra.Command{Use: "week", Short: "Inspect stored weeks"}
	week.AddCommand(weekShowCmd())
	week.AddCommand(weekListCmd())
	return week
}

func weekShowCmd() *cobra.Command {
	var employee, weekStart string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the days, tasks and activity log of one week",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := generic.ValidateWeekAnchor(weekStart); err != nil {
				return fmt.Errorf("--week: %w", err)
			}
			docs, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer docs.Close()

			key := timesheet.WeekKey{
				EmployeeID:    generic.EmployeeID(employee),
				Year:          weekStart[0:4],
				Month:         weekStart[5:7],
				WeekStartDate: weekStart,
			}
			record, err := timesheet.NewWeekStore(docs, timesheet.WithLogger(logger)).GetWeek(cmd.Context(), key)
			if errors.Is(err, timesheet.ErrWeekNotFound) {
				return fmt.Errorf("no timesheet for %s week %s", employee, weekStart)
			}
			if err != nil {
				return err
			}
			renderWeek(cmd.OutOrStdout(), key, record)
			return nil
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee id")
	cmd.Flags().StringVar(&weekStart, "week", "", "week start date (a Monday, YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("week")
	return cmd
}

func weekListCmd() *cobra.Command {
	var employee string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored months and weeks of an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			docs, err := openStore(cmd.Context(), cfg.Store)
			if err != nil {
				return err
			}
			defer docs.Close()

			lister, ok := docs.(pathLister)
			if !ok {
				return fmt.Errorf("store %q cannot list documents", cfg.Store.Driver)
			}
			paths, err := lister.ListPaths(cmd.Context(), generic.EmployeeID(employee))
			if err != nil {
				return err
			}

			weeks := timesheet.NewWeekStore(docs, timesheet.WithLogger(logger))
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Year", "Month", "Week", "Total Hours", "Updates", "Last Update"})
			for _, p := range paths {
				month, err := weeks.ListMonth(cmd.Context(), p)
				if err != nil {
					return err
				}
				for _, start := range month.WeekStartDates() {
					record := month[start]
					last := "-"
					if e, ok := record.ActivityLog.Latest(); ok {
						last = fmt.Sprintf("%s by %s", e.UpdatedAt.Format("2006-01-02 15:04"), e.UpdatedBy)
					}
					tw.AppendRow(table.Row{p.Year, p.Month, start, record.TotalHours.String(), record.ActivityLog.Len(), last})
				}
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&employee, "employee", "", "employee id")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}

// renderWeek writes the day table followed by the activity log table.
func renderWeek(w io.Writer, key timesheet.WeekKey, record *timesheet.WeekRecord) {
	fmt.Fprintf(w, "%s  week of %s  total %s hours\n", key.EmployeeID, key.WeekStartDate, record.TotalHours)

	days := table.NewWriter()
	days.SetOutputMirror(w)
	days.AppendHeader(table.Row{"Date", "Hours", "Task", "Task Hours"})
	anchor, _ := generic.ParseDate(key.WeekStartDate)
	for _, d := range generic.WeekOf(anchor).Days() {
		date := d.String()
		day, ok := record.Timesheet.Days[date]
		if !ok {
			days.AppendRow(table.Row{date + " " + d.Weekday().String()[:3], "-", "", ""})
			continue
		}
		date += " " + d.Weekday().String()[:3]
		if len(day.Tasks) == 0 {
			days.AppendRow(table.Row{date, day.HoursWorked.String(), "", ""})
			continue
		}
		for i, t := range day.Tasks {
			dateCell, hoursCell := "", ""
			if i == 0 {
				dateCell, hoursCell = date, day.HoursWorked.String()
			}
			days.AppendRow(table.Row{dateCell, hoursCell, fmt.Sprintf("%s (%s)", t.TaskName, t.TaskCode), t.Hours.String()})
		}
	}
	days.AppendFooter(table.Row{"Total", record.TotalHours.String(), "", ""})
	days.Render()

	log := table.NewWriter()
	log.SetOutputMirror(w)
	log.AppendHeader(table.Row{"When", "By", "Admin", "Action", "Changes"})
	for _, e := range record.ActivityLog.Entries() {
		log.AppendRow(table.Row{
			e.UpdatedAt.Format("2006-01-02 15:04"),
			e.UpdatedBy,
			e.IsUpdatedByAdmin,
			e.Action,
			strings.Join(e.Changes, "\n"),
		})
	}
	log.Render()
}
