package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pipeline/internal/history"
)

var errNoHistory = errors.New("no history recorded for this project")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded project saves",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func (c *commandContext) withHistory(cmd *cobra.Command, fn func(*history.Store) error) error {
	ws, err := c.workspace()
	if err != nil {
		return err
	}
	if _, err := os.Stat(ws.HistoryFile()); err != nil {
		return fmt.Errorf("%w (enable history.enabled and save once)", errNoHistory)
	}
	store, err := history.Open(cmd.Context(), ws.HistoryFile())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(cmd, func(store *history.Store) error {
				entries, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No saves recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(entry.Seq, 10),
						entry.SavedAt.Local().Format(time.DateTime),
						entry.SessionID,
						strconv.Itoa(len(entry.Members)),
						strings.Join(entry.Members, ", "),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Seq", "Saved", "Session", "Count", "Members"}, rows, 0, 3))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of saves to list")
	return cmd
}

type historyView struct {
	Seq       int64     `json:"seq"`
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Location  string    `json:"location"`
	Members   []string  `json:"members"`
	SavedAt   time.Time `json:"saved_at"`
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON   bool
		document bool
	)
	cmd := &cobra.Command{
		Use:   "show <seq>",
		Short: "Show one recorded save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid save number %q", args[0])
			}
			return ctx.withHistory(cmd, func(store *history.Store) error {
				entry, err := store.Get(cmd.Context(), seq)
				if err != nil {
					return err
				}
				if entry == nil {
					return fmt.Errorf("save %d not found", seq)
				}
				out := cmd.OutOrStdout()
				if document {
					_, err := out.Write(entry.Document)
					return err
				}
				view := historyView{
					Seq:       entry.Seq,
					ID:        entry.ID,
					SessionID: entry.SessionID,
					Location:  entry.Location,
					Members:   entry.Members,
					SavedAt:   entry.SavedAt,
				}
				if asJSON {
					return writeJSON(cmd, view)
				}
				fmt.Fprintf(out, "Save:     %d (%s)\n", view.Seq, view.ID)
				fmt.Fprintf(out, "Saved:    %s\n", view.SavedAt.Local().Format(time.DateTime))
				fmt.Fprintf(out, "Session:  %s\n", view.SessionID)
				fmt.Fprintf(out, "Location: %s\n", view.Location)
				fmt.Fprintf(out, "Members:  %s\n", strings.Join(view.Members, ", "))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&document, "document", false, "Print the saved project document")
	return cmd
}
