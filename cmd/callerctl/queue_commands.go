package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"patient-caller-backend/internal/client"
	"patient-caller-backend/internal/model"
	"patient-caller-backend/internal/parse"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var p client.NewPatient
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a waiting patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := ctx.client().Add(cmd.Context(), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paciente %s agregado con id %d\n", created.FullName(), created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.CINro, "cinro", "", "Identity card number")
	cmd.Flags().StringVar(&p.Nombre, "nombre", "", "Given name")
	cmd.Flags().StringVar(&p.Apellido, "apellido", "", "Family name")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the waiting list, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			patients, err := ctx.client().Waiting(cmd.Context())
			if err != nil {
				return err
			}
			if len(patients) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No hay pacientes en espera")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(waitingColumns, patientRows(patients)))
			return nil
		},
	}
}

func newCallCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "call ID",
		Short: "Call a patient to the pre-consultation room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePatientID(args[0])
			if err != nil {
				return err
			}
			p, err := ctx.client().Call(cmd.Context(), id)
			if err != nil {
				return notFoundHint(err, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paciente %s, favor pasar a preconsulta.\n", p.FullName())
			return nil
		},
	}
}

func newAttendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attend ID",
		Short: "Mark a patient as attended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePatientID(args[0])
			if err != nil {
				return err
			}
			p, err := ctx.client().Attend(cmd.Context(), id)
			if err != nil {
				return notFoundHint(err, id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Paciente %s atendido y registrado.\n", p.FullName())
			return nil
		},
	}
}

func newCalledCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "called",
		Short: "Show the currently called patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.client().Called(cmd.Context())
			if err != nil {
				return err
			}
			if p == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Ningún paciente llamado")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\tCI %s\n", p.ID, p.FullName(), p.CINro)
			return nil
		},
	}
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var fromFlag, toFlag string
	var today bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List attended patients, optionally by date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := ctx.location()
			if err != nil {
				return err
			}

			var from, to time.Time
			switch {
			case today:
				from = parse.StartOfDay(time.Now(), loc)
				to = from
			case fromFlag != "" || toFlag != "":
				if fromFlag == "" || toFlag == "" {
					return errors.New("--from and --to must be given together")
				}
				if from, err = parse.Date(fromFlag, loc); err != nil {
					return err
				}
				if to, err = parse.Date(toFlag, loc); err != nil {
					return err
				}
				if from.After(to) {
					return errors.New("--from is after --to")
				}
			}

			records, err := ctx.client().History(cmd.Context(), from, to)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No se encontraron pacientes atendidos")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(historyColumns, historyRows(records, loc)))
			return nil
		},
	}
	cmd.Flags().StringVar(&fromFlag, "from", "", "First calendar date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Last calendar date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&today, "today", false, "Only today's records")
	cmd.MarkFlagsMutuallyExclusive("today", "from")
	cmd.MarkFlagsMutuallyExclusive("today", "to")
	return cmd
}

func patientRows(patients []model.Patient) [][]string {
	rows := make([][]string, 0, len(patients))
	for _, p := range patients {
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.CINro, p.Nombre, p.Apellido})
	}
	return rows
}

func historyRows(records []model.AttendedRecord, loc *time.Location) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.CalledAt.In(loc).Format("2006-01-02 15:04"),
			strconv.FormatInt(r.PatientID, 10),
			r.CINro,
			r.Nombre + " " + r.Apellido,
			r.Status,
		})
	}
	return rows
}

func notFoundHint(err error, id int64) error {
	if client.IsNotFound(err) {
		return fmt.Errorf("patient %d not found; run `callerctl list` to see waiting patients", id)
	}
	return err
}
