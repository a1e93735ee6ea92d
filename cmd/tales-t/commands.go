package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/tales-t/internal/config"
	"github.com/justyntemme/tales-t/internal/progress"
	"github.com/justyntemme/tales-t/pkg/models"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in by email, creating the reader on first use",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			email := strings.TrimSpace(args[0])
			resp, err := e.client.Login(cmd.Context(), email)
			if err != nil {
				return err
			}
			if resp.Email != "" {
				email = resp.Email
			}
			if err := e.cfg.SetSession(email, e.client.SessionID(), e.client.CSRFToken()); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}

			out := cmd.OutOrStdout()
			if resp.IsNewReader {
				fmt.Fprintf(out, "Welcome, %s. Your reader account was created.\n", email)
			} else {
				fmt.Fprintf(out, "Signed in as %s\n", email)
			}
			return nil
		},
	}
}

func newStoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stories",
		Short: "List available stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			stories, err := e.client.ListStories(cmd.Context())
			if err != nil {
				return err
			}
			printStories(cmd.OutOrStdout(), stories, e.cfg.RecentStoryIDs())
			return nil
		},
	}
}

func printStories(w io.Writer, stories []models.Story, recent []int64) {
	if len(stories) == 0 {
		fmt.Fprintln(w, "No stories yet")
		return
	}
	seen := make(map[int64]bool, len(recent))
	for _, id := range recent {
		seen[id] = true
	}
	for _, s := range stories {
		marker := " "
		if seen[s.ID] {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %4d  %s\n", marker, s.ID, s.Title)
	}
}

func newProgressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress <story-id>",
		Short: "Show reading progress for a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storyID, err := parseStoryID(args[0])
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			var (
				story    *models.Story
				chapters []models.Chapter
				records  []models.ReadingProgress
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				story, err = e.client.GetStory(ctx, storyID)
				return err
			})
			g.Go(func() error {
				var err error
				chapters, err = e.client.ListChapters(ctx, storyID)
				return err
			})
			g.Go(func() error {
				var err error
				records, err = e.client.GetReadingProgress(ctx, storyID)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			printProgress(cmd.OutOrStdout(), story, chapters, records)
			return nil
		},
	}
}

func printProgress(w io.Writer, story *models.Story, chapters []models.Chapter, records []models.ReadingProgress) {
	fmt.Fprintf(w, "%s\n", story.Title)

	var record *models.ReadingProgress
	for i := range records {
		if records[i].Story == story.ID {
			record = &records[i]
			break
		}
	}
	if record == nil {
		fmt.Fprintf(w, "  not started (%d chapters)\n", len(chapters))
		return
	}

	fmt.Fprintf(w, "  progress: %d%%\n", progress.Percent(record, chapters))
	if record.CurrentChapter != nil {
		label := fmt.Sprintf("chapter %d", *record.CurrentChapter)
		for _, ch := range chapters {
			if ch.ID == *record.CurrentChapter {
				label = ch.Label()
				break
			}
		}
		fmt.Fprintf(w, "  at: %s\n", label)
	}
	fmt.Fprintf(w, "  viewed paragraphs: %d\n", len(record.ViewedParagraphs))
	if !record.LastAccessed.IsZero() {
		fmt.Fprintf(w, "  last read: %s\n", record.LastAccessed.Local().Format(time.DateTime))
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <story-id>",
		Short: "Show the order paragraphs of a story were read in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storyID, err := parseStoryID(args[0])
			if err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			entries, err := e.client.NavigationHistory(cmd.Context(), storyID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Nothing read yet")
				return nil
			}
			for _, entry := range entries {
				fmt.Fprintf(out, "%4d  chapter %-5d paragraph %-6d %s\n",
					entry.ViewOrder, entry.ChapterID, entry.ParagraphID,
					entry.ViewedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print config and log locations and the saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.client.Health(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is up\n", e.client.BaseURL())
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Config path:   %s\n", cfg.Path())
	fmt.Fprintf(w, "Log path:      %s\n", cfg.LogPath())
	fmt.Fprintf(w, "Server URL:    %s\n", cfg.ServerURL)
	fmt.Fprintf(w, "Authenticated: %v\n", cfg.IsAuthenticated())
	if cfg.Email != "" {
		fmt.Fprintf(w, "Email:         %s\n", cfg.Email)
	}
	if cfg.LastLocation != "" {
		fmt.Fprintf(w, "Last location: %s\n", cfg.LastLocation)
	}
	if cfg.Theme != "" {
		fmt.Fprintf(w, "Theme:         %s\n", cfg.Theme)
	}
	for i, r := range cfg.RecentStories {
		if i == 0 {
			fmt.Fprintln(w, "Recent stories:")
		}
		fmt.Fprintf(w, "  %4d  %s\n", r.StoryID, r.Title)
	}
}

func parseStoryID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid story id %q", arg)
	}
	return id, nil
}
