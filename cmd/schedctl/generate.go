package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/veritas-edu/class-scheduler/internal/engine"
	"github.com/veritas-edu/class-scheduler/pkg/roster"
)

// gridFile is the JSON document generate writes with --out. The same file
// can be fed back through --constraints to reproduce the run: every session
// row becomes a full pin.
type gridFile struct {
	Approach string        `json:"approach,omitempty"`
	Score    int           `json:"score,omitempty"`
	Sessions []gridSession `json:"sessions"`
}

type gridSession struct {
	ClassID      string `json:"classId"`
	SessionIndex int    `json:"sessionIndex"`
	Teacher      string `json:"teacher,omitempty"`
	Day          string `json:"day,omitempty"`
	Period       int    `json:"period,omitempty"`
	Room         string `json:"room,omitempty"`
}

func newGenerateCmd() *cobra.Command {
	var (
		constraintsPath     string
		outPath             string
		extendedPeriods     bool
		maxUnplacedFraction float64
		chapelCapacity      int
	)

	c := &cobra.Command{
		Use:   "generate <classlist.csv>",
		Short: "Place a weekly timetable from a class list CSV",
		Long: `Generate reads a class list CSV (one row per class with its teacher,
course category, credit units and enrolled students), runs the placement
engine and prints the resulting week. Constraints can pin sessions to a
day, period or room before the search runs; feeding a previously written
--out grid back in as --constraints reproduces that grid exactly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close() //nolint:errcheck

			classes, err := roster.ParseClassList(file, 0)
			if err != nil {
				return fmt.Errorf("parse class list: %w", err)
			}

			sections := make([]*engine.ClassSection, 0, len(classes))
			for i := range classes {
				class := classes[i]
				sections = append(sections, &engine.ClassSection{
					ID:             class.ClassID,
					Teacher:        class.Teacher,
					CourseCategory: class.CourseCategory,
					CreditUnits:    class.CreditUnits,
					Students:       class.Students,
				})
			}

			constraints := map[string]map[int]engine.SessionConstraint{}
			if constraintsPath != "" {
				constraints, err = loadConstraints(constraintsPath)
				if err != nil {
					return fmt.Errorf("load constraints: %w", err)
				}
			}

			scheduler := engine.NewScheduler(engine.Config{
				ChapelCapacity:      chapelCapacity,
				MaxUnplacedFraction: maxUnplacedFraction,
			})
			solution, err := scheduler.Schedule(engine.Request{
				Classes:              sections,
				Constraints:          constraints,
				AllowExtendedPeriods: extendedPeriods,
			})
			if err != nil {
				var incomplete *engine.IncompleteScheduleError
				if errors.As(err, &incomplete) {
					reportIncomplete(cmd, incomplete)
				}
				return err
			}

			printSolution(cmd, solution)
			if outPath != "" {
				if err := writeGrid(outPath, solution); err != nil {
					return fmt.Errorf("write grid: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\ngrid written to %s\n", outPath)
			}
			return nil
		},
	}

	c.Flags().StringVar(&constraintsPath, "constraints", "", "JSON file with session pins, or a grid previously written by --out")
	c.Flags().StringVar(&outPath, "out", "", "write the placed grid to this file (.json or .csv)")
	c.Flags().BoolVar(&extendedPeriods, "extended-periods", false, "allow placements in the extended periods 7 and 8")
	c.Flags().Float64Var(&maxUnplacedFraction, "max-unplaced-fraction", engine.DefaultMaxUnplacedFraction, "fraction of classes that may stay unplaced before the run fails")
	c.Flags().IntVar(&chapelCapacity, "chapel-capacity", engine.DefaultChapelCapacity, "enrollment above which a class meets in the chapel")
	return c
}

// loadConstraints reads either a pins document {"pins": [...]} or a grid
// document {"sessions": [...]}; the row shape is the same in both.
func loadConstraints(path string) (map[string]map[int]engine.SessionConstraint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Sessions []gridSession `json:"sessions"`
		Pins     []gridSession `json:"pins"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	rows := doc.Sessions
	if len(rows) == 0 {
		rows = doc.Pins
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s contains no sessions or pins", path)
	}

	constraints := make(map[string]map[int]engine.SessionConstraint)
	for _, row := range rows {
		constraint, err := rowConstraint(row)
		if err != nil {
			return nil, err
		}
		perClass := constraints[row.ClassID]
		if perClass == nil {
			perClass = make(map[int]engine.SessionConstraint)
			constraints[row.ClassID] = perClass
		}
		if _, dup := perClass[row.SessionIndex]; dup {
			return nil, fmt.Errorf("duplicate constraint for %s session %d", row.ClassID, row.SessionIndex)
		}
		perClass[row.SessionIndex] = constraint
	}
	return constraints, nil
}

func rowConstraint(row gridSession) (engine.SessionConstraint, error) {
	var (
		day    engine.Day
		hasDay bool
	)
	if row.Day != "" {
		parsed, err := engine.ParseDay(row.Day)
		if err != nil {
			return engine.SessionConstraint{}, fmt.Errorf("%s session %d: %w", row.ClassID, row.SessionIndex, err)
		}
		day = parsed
		hasDay = true
	}

	var room engine.Room
	if row.Room != "" {
		parsed, err := engine.ParseRoom(row.Room)
		if err != nil {
			return engine.SessionConstraint{}, fmt.Errorf("%s session %d: %w", row.ClassID, row.SessionIndex, err)
		}
		room = parsed
	}

	period := engine.Period(row.Period)
	hasPeriod := row.Period != 0

	switch {
	case hasDay && hasPeriod && room != "":
		return engine.Exact(day, period, room), nil
	case hasDay && hasPeriod:
		return engine.At(day, period), nil
	case hasDay && room != "":
		return engine.SessionConstraint{}, fmt.Errorf("%s session %d: a room pin cannot carry a day without a period", row.ClassID, row.SessionIndex)
	case hasDay:
		return engine.OnDay(day), nil
	case hasPeriod && room != "":
		return engine.SessionConstraint{}, fmt.Errorf("%s session %d: a room pin cannot carry a period without a day", row.ClassID, row.SessionIndex)
	case hasPeriod:
		return engine.AtPeriod(period), nil
	case room != "":
		return engine.InRoom(room), nil
	}
	return engine.Unset(), nil
}

func printSolution(cmd *cobra.Command, solution *engine.Solution) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "approach: %s  score: %d  placed: %d/%d\n\n",
		solution.Approach, solution.Score, solution.PlacedSessions, solution.TotalSessions)

	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tSESSION\tDAY\tPERIOD\tROOM\tSTATE")
	for _, session := range solution.Timetable.Grid().Sessions() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\n",
			session.Class.ID, session.Index, session.Day, int(session.Period), session.Room.Label(), session.State)
	}
	w.Flush() //nolint:errcheck

	for _, record := range solution.Unplaced {
		fmt.Fprintf(out, "\nunplaced %s (%d sessions): %s\n", record.ClassID, record.Sessions, strings.Join(record.Reasons, "; "))
	}
	for _, pin := range solution.RejectedPins {
		fmt.Fprintf(out, "\nrejected pin %s session %d:\n", pin.ClassID, pin.Index)
		for _, conflict := range pin.Conflicts {
			fmt.Fprintf(out, "  %s: %s\n", conflict.Kind, conflict.Reason())
		}
	}
}

func reportIncomplete(cmd *cobra.Command, incomplete *engine.IncompleteScheduleError) {
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "placed %d/%d sessions; the rest could not be seated:\n",
		incomplete.PlacedSessions, incomplete.TotalSessions)
	for _, record := range incomplete.Unplaced {
		fmt.Fprintf(errOut, "  %s (%d sessions): %s\n", record.ClassID, record.Sessions, strings.Join(record.Reasons, "; "))
	}
}

func writeGrid(path string, solution *engine.Solution) error {
	sessions := solution.Timetable.Grid().Sessions()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		doc := gridFile{Approach: solution.Approach, Score: solution.Score, Sessions: make([]gridSession, 0, len(sessions))}
		for _, session := range sessions {
			doc.Sessions = append(doc.Sessions, gridSession{
				ClassID:      session.Class.ID,
				SessionIndex: session.Index,
				Teacher:      session.Class.Teacher,
				Day:          session.Day.String(),
				Period:       int(session.Period),
				Room:         string(session.Room),
			})
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, append(data, '\n'), 0o644)

	case ".csv":
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close() //nolint:errcheck

		writer := csv.NewWriter(file)
		if err := writer.Write([]string{"class_id", "session_index", "teacher", "day", "period", "room"}); err != nil {
			return err
		}
		for _, session := range sessions {
			row := []string{
				session.Class.ID,
				strconv.Itoa(session.Index),
				session.Class.Teacher,
				session.Day.String(),
				strconv.Itoa(int(session.Period)),
				string(session.Room),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
		writer.Flush()
		return writer.Error()
	}

	return fmt.Errorf("unsupported output extension %q, use .json or .csv", filepath.Ext(path))
}
