package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/kanban-board/config"
	"github.com/CrowderSoup/kanban-board/database"
	"github.com/CrowderSoup/kanban-board/ordering"
	"github.com/CrowderSoup/kanban-board/services"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Load a user's board, print it, and check its ordering",
		RunE:  runInspect,
	}
	cmd.Flags().StringP("user", "u", "", "User id (login email) whose board to load")
	cmd.MarkFlagRequired("user")
	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env")
	userID, _ := cmd.Flags().GetString("user")

	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	store := services.NewBoardStore(database.NewGateway(db), nil, nil)
	if err := store.Initialize(cmd.Context(), userID); err != nil {
		return err
	}
	board := store.Board()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(board); err != nil {
		return err
	}

	if err := ordering.Check(board); err != nil {
		return fmt.Errorf("board %s is inconsistent: %w", board.ID, err)
	}
	fmt.Fprintf(os.Stderr, "board %s: %d columns, ordering ok\n", board.ID, len(board.Columns))
	return nil
}
