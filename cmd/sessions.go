package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

const shortIDLen = 8

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved training sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore(cmd.Context(), currentConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		recs, err := store.List(cmd.Context(), sessionsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "저장된 세션이 없습니다.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tPHASE\tTURNS\tUPDATED")
		for _, r := range recs {
			topic := r.Topic
			if topic == "" {
				topic = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				shortID(r.ID), topic, r.Phase, r.TurnCount, r.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the transcript of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), currentConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tr := newTranscript(cmd.OutOrStdout())
		printHeader(tr, rec.Topic, rec.ID)
		for _, t := range rec.State.Messages() {
			tr.turn(t)
		}
		tr.noticef("phase=%s turns=%d", rec.Phase, rec.TurnCount)
		return nil
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context(), currentConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Find(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.Delete(cmd.Context(), rec.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ 세션 %s 삭제됨\n", shortID(rec.ID))
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "maximum number of sessions to list")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsRmCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}
