package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/samay/server"
	"github.com/hrygo/samay/server/export/ics"
	"github.com/hrygo/samay/server/service/commitment"
	"github.com/hrygo/samay/server/timezone"
	"github.com/hrygo/samay/store"
)

// parseRef reads an optional --ref flag. Empty means now.
func parseRef(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := timezone.ParseInstant(raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid --ref %q, want RFC 3339", raw)
	}
	return t, nil
}

func parseID(raw string) (int32, error) {
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid id %q", raw)
	}
	return int32(id), nil
}

func (a *app) newService(s *store.Store) *commitment.Service {
	svc := commitment.NewService(s, nil)
	svc.SetLogger(a.logger)
	return svc
}

func (a *app) parseCmd() *cobra.Command {
	var ref string
	var upcoming int
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Parse and resolve a time expression without storing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refTime, err := parseRef(ref)
			if err != nil {
				return err
			}
			p := a.newService(nil).Preview(cmd.Context(), strings.Join(args, " "), refTime, upcoming)
			err = a.render(p, func(tw table.Writer) {
				rows := [][2]string{
					{"Text", p.Text},
					{"Reference", p.Reference},
					{"Intent", p.Intent},
					{"Kind", p.SpecKind},
					{"Spec", p.Spec},
					{"Instant", p.Instant},
					{"Spoken", p.Spoken},
					{"RRULE", p.RRule},
				}
				for i, u := range p.Upcoming {
					rows = append(rows, [2]string{fmt.Sprintf("Upcoming %d", i+1), u})
				}
				if p.Failure != nil {
					rows = append(rows, [2]string{"Failure", fmt.Sprintf("%s: %s", p.Failure.Code, p.Failure.Reason)})
				}
				fields(tw, rows...)
			})
			if err != nil {
				return err
			}
			if p.Failure != nil {
				return errors.New(p.Failure.UserMessage)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ref, "ref", "", "reference instant in RFC 3339 (default now)")
	cmd.Flags().IntVar(&upcoming, "upcoming", 3, "number of upcoming occurrences to list")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	req := commitment.Request{}
	var ref string
	var lead int
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Store the commitment an utterance describes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			refTime, err := parseRef(ref)
			if err != nil {
				return err
			}
			req.Text = strings.Join(args, " ")
			req.ReferenceInstant = refTime
			if cmd.Flags().Changed("lead") {
				l := int32(lead)
				req.LeadMinutes = &l
			}

			return a.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				ctx = server.CLIContext(ctx, a.logger, req.UserID)
				resp, err := a.newService(s).Handle(ctx, &req)
				if err != nil {
					return err
				}
				err = a.render(resp, func(tw table.Writer) {
					rows := [][2]string{{"Said", resp.UserFacingText}}
					if resp.Failure == nil {
						rows = append(rows,
							[2]string{"Kind", resp.Kind.String()},
							[2]string{"ID", strconv.Itoa(int(resp.ID))},
							[2]string{"UID", resp.UID},
							[2]string{"Due", resp.DueAt},
							[2]string{"Repeats", resp.RepeatDays},
						)
					} else {
						rows = append(rows, [2]string{"Failure", fmt.Sprintf("%s: %s", resp.Failure.Code, resp.Failure.Reason)})
					}
					fields(tw, rows...)
				})
				if err != nil {
					return err
				}
				if resp.Failure != nil {
					return errors.New(resp.Failure.UserMessage)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&req.UserID, "user", 1, "user id")
	cmd.Flags().StringVar(&req.Intent, "intent", "", "force the kind: alarm, reminder, timer or event")
	cmd.Flags().StringVar(&req.PayloadText, "text", "", "reminder text, label or event title")
	cmd.Flags().IntVar(&lead, "lead", 0, "event reminder lead in minutes")
	cmd.Flags().StringVar(&req.RequestID, "request-id", "", "idempotency key")
	cmd.Flags().StringVar(&ref, "ref", "", "reference instant in RFC 3339 (default now)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var userID int32
	var kindName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live commitments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var kind store.Kind
			if kindName != "" {
				var err error
				if kind, err = store.ParseKind(kindName); err != nil {
					return err
				}
			}
			return a.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				items, err := a.newService(s).List(ctx, userID, kind)
				if err != nil {
					return err
				}
				return a.render(items, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"Kind", "ID", "Text", "Due", "Repeats", "Enabled", "State"})
					for _, it := range items {
						tw.AppendRow(table.Row{it.Kind, it.ID, it.Text, it.DueAt, it.RepeatDays, it.Enabled, state(it)})
					}
					tw.AppendFooter(table.Row{"", "", "", "", "", "Total", len(items)})
				})
			})
		},
	}
	cmd.Flags().Int32Var(&userID, "user", 1, "user id")
	cmd.Flags().StringVar(&kindName, "kind", "", "filter by kind")
	return cmd
}

func state(it *commitment.Item) string {
	switch {
	case it.Completed:
		return "completed"
	case it.Fired:
		return "fired"
	case !it.Enabled:
		return "paused"
	case it.DueAt == "":
		return "unscheduled"
	default:
		return "pending"
	}
}

func (a *app) cancelCmd() *cobra.Command {
	var userID int32
	var hard bool
	cmd := &cobra.Command{
		Use:   "cancel <kind> <id>",
		Short: "Archive a commitment, or delete it with --hard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := store.ParseKind(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				if err := a.newService(s).Cancel(ctx, userID, kind, id, hard); err != nil {
					return err
				}
				verb := "archived"
				if hard {
					verb = "deleted"
				}
				fmt.Fprintf(a.out, "%s %s %d\n", verb, kind, id)
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&userID, "user", 1, "user id")
	cmd.Flags().BoolVar(&hard, "hard", false, "delete the row instead of archiving it")
	return cmd
}

func (a *app) completeCmd() *cobra.Command {
	var userID int32
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a reminder done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				reminder, err := a.newService(s).CompleteReminder(ctx, userID, id)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "completed reminder %d: %s\n", reminder.ID, reminder.Text)
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&userID, "user", 1, "user id")
	return cmd
}

func (a *app) snoozeCmd() *cobra.Command {
	var userID int32
	cmd := &cobra.Command{
		Use:   "snooze <kind> <id> <minutes>",
		Short: "Push a one-shot alarm or reminder out by some minutes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := store.ParseKind(args[0])
			if err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			minutes, err := strconv.Atoi(args[2])
			if err != nil {
				return errors.Errorf("invalid minutes %q", args[2])
			}
			return a.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				due, err := a.newService(s).Snooze(ctx, userID, kind, id, minutes)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "snoozed %s %d until %s\n", kind, id, timezone.FormatInstant(due))
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&userID, "user", 1, "user id")
	return cmd
}

func (a *app) timerStatusCmd() *cobra.Command {
	var userID int32
	cmd := &cobra.Command{
		Use:   "timer-status",
		Short: "Show the time left on running timers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				status, err := a.newService(s).TimerStatus(ctx, userID)
				if err != nil {
					return err
				}
				return a.render(status, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Label", "Ends", "Remaining"})
					for _, t := range status.Timers {
						tw.AppendRow(table.Row{t.ID, t.Label, t.EndsAt, commitment.FormatDurationHindi(t.RemainingSeconds)})
					}
					tw.SetCaption("%s", status.UserFacingText)
				})
			})
		},
	}
	cmd.Flags().Int32Var(&userID, "user", 1, "user id")
	return cmd
}

func (a *app) exportICSCmd() *cobra.Command {
	var userID int32
	var out string
	cmd := &cobra.Command{
		Use:   "export-ics",
		Short: "Export events, alarms and reminders as an iCalendar file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(ctx context.Context, s *store.Store) error {
				all, err := a.newService(s).Commitments(ctx, userID, "")
				if err != nil {
					return err
				}
				body, err := ics.Export(all.Events, all.Alarms, all.Reminders, ics.Options{Name: fmt.Sprintf("samay %d", userID)})
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = fmt.Fprint(a.out, body)
					return err
				}
				if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
					return errors.Wrapf(err, "failed to write %s", out)
				}
				fmt.Fprintf(a.out, "wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&userID, "user", 1, "user id")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}
