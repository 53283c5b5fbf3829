package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/meeting"
)

func newStartCmd(run runFunc) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create a meeting and tell the agent to record it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, needCommands, func(ctx context.Context, e *env) error {
				m, err := e.meetings.StartMeeting(ctx, title)
				if err != nil {
					return err
				}
				if e.out.json {
					return e.out.writeJSON(m)
				}
				e.out.Line("Meeting %s started: %s", m.ID, m.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "meeting title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newStopCmd(run runFunc) *cobra.Command {
	var (
		force bool
		wait  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "stop <meeting-id>",
		Short: "Tell the agent to stop recording a meeting",
		Long: "Sends a stop command. With --wait, polls until the agent has finalized the recording.\n" +
			"With --force, marks the meeting stopped without contacting the agent, for a\n" +
			"recording that aborted and was never finalized.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if force {
				return run(cmd, 0, func(ctx context.Context, e *env) error {
					m, err := e.meetings.ForceStop(ctx, id)
					if err != nil {
						return err
					}
					e.out.Line("Meeting %s marked stopped", m.ID)
					return nil
				})
			}
			return run(cmd, needCommands, func(ctx context.Context, e *env) error {
				if _, err := e.meetings.StopMeeting(ctx, id); err != nil {
					return err
				}
				if wait <= 0 {
					e.out.Line("Stop requested for meeting %s", id)
					return nil
				}
				m, err := waitRecordingReady(ctx, e.meetings, id, wait, time.Second)
				if err != nil {
					return err
				}
				e.out.Line("Recording saved: %s", m.RecordingFile)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "mark stopped without contacting the agent")
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait up to this long for the recording to be saved")
	cmd.MarkFlagsMutuallyExclusive("force", "wait")
	return cmd
}

// waitRecordingReady polls until the meeting's recording is ready.
func waitRecordingReady(ctx context.Context, meetings Meetings, id string, timeout, interval time.Duration) (*meeting.Meeting, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m, err := meetings.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if m.RecordingReady {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return nil, errors.Timeout("waiting for recording of meeting " + id).WithCause(ctx.Err())
		case <-ticker.C:
		}
	}
}

func newShowCmd(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show a meeting and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, 0, func(ctx context.Context, e *env) error {
				m, err := e.meetings.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return e.out.Meeting(m)
			})
		},
	}
}

func newListCmd(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List meetings, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, 0, func(ctx context.Context, e *env) error {
				ms, err := e.meetings.List(ctx)
				if err != nil {
					return err
				}
				return e.out.Meetings(ms)
			})
		},
	}
}

func newDeleteCmd(run runFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <meeting-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a meeting and its recording",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, 0, func(ctx context.Context, e *env) error {
				if err := e.meetings.Delete(ctx, args[0]); err != nil {
					return err
				}
				e.out.Line("Meeting %s deleted", args[0])
				return nil
			})
		},
	}
}

func newDownloadCmd(run runFunc) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "download <meeting-id>",
		Short: "Download the WAV recording of a meeting",
		Long:  "Writes the recording to --output, or to its sink file name in the current directory.\nUse -o - to write to stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, 0, func(ctx context.Context, e *env) error {
				rc, m, err := e.meetings.OpenRecording(ctx, args[0])
				if err != nil {
					return err
				}
				defer rc.Close()

				if dest == "-" {
					_, err := io.Copy(cmd.OutOrStdout(), rc)
					return err
				}
				target := dest
				if target == "" {
					target = path.Base(m.RecordingFile)
				}
				n, err := writeFile(target, rc)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s (%d bytes)\n", target, n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&dest, "output", "o", "", "destination file, - for stdout")
	return cmd
}

// writeFile copies r into name, removing the file again when the copy fails.
func writeFile(name string, r io.Reader) (int64, error) {
	f, err := os.Create(name)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(name)
		return 0, fmt.Errorf("write %s: %w", name, err)
	}
	return n, nil
}

func newStatusCmd(run runFunc) *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state an agent last published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, needStatus, func(ctx context.Context, e *env) error {
				id := agentID
				if id == "" {
					id = e.agentID
				}
				if id == "" {
					return errors.InvalidInput("agent", "set --agent or agent_id in the config")
				}
				st, err := e.status.LoadStatus(ctx, id)
				if err != nil {
					return err
				}
				return e.out.Status(id, st)
			})
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (default: agent_id from the config)")
	return cmd
}
