package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mostlycached/grain/internal/store"
)

var sessionsUser string
var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent sessions for a user",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsUser, "user", "u", "", "user id (required)")
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "max sessions to list")
	sessionsCmd.MarkFlagRequired("user")
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, err := openDefaultDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.FetchSessions(context.Background(), sessionsUser, sessionsLimit)
	if err != nil {
		return fmt.Errorf("fetch sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	for _, s := range sessions {
		started := time.UnixMilli(s.StartedAt).Format("2006-01-02 15:04")
		status := string(s.State)
		if s.EndedAt != nil {
			status = fmt.Sprintf("ended %s", time.UnixMilli(*s.EndedAt).Format("15:04"))
		}
		fmt.Printf("%s  %s  %s", s.ID[:8], started, status)
		if s.Vector != nil && len(s.Vector.Primary) > 0 {
			fmt.Printf("  primary: %v", s.Vector.Primary)
		}
		fmt.Println()
	}
	return nil
}

func openDefaultDB() (*store.DB, error) {
	path, err := store.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}
