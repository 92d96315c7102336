package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-presence/internal/admin"
	"github.com/vovakirdan/wirechat-presence/internal/client"
)

type backendFlags struct {
	url   string
	token string
}

func (f *backendFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "backend", "", "capacity backend base URL")
	cmd.Flags().StringVar(&f.token, "token", "", "bearer token of a room manager")
}

func (f *backendFlags) client(opts *rootOptions) (*client.HTTPClient, error) {
	cfg, _, err := opts.load()
	if err != nil {
		return nil, err
	}
	url, token := cfg.Agent.BackendURL, cfg.Agent.BackendToken
	if f.url != "" {
		url = f.url
	}
	if f.token != "" {
		token = f.token
	}
	return client.NewHTTPClient(url, token, cfg.Agent.RequestTimeout), nil
}

func roomIDArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id %q", arg)
	}
	return id, nil
}

func newPinCmd(opts *rootOptions) *cobra.Command {
	var backend backendFlags

	cmd := &cobra.Command{
		Use:   "pin ROOM_ID",
		Short: "Toggle the pinned flag of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := roomIDArg(args[0])
			if err != nil {
				return err
			}
			c, err := backend.client(opts)
			if err != nil {
				return err
			}
			pinned, err := admin.TogglePin(cmd.Context(), c, roomID)
			if err != nil {
				return err
			}
			if pinned {
				cmd.Printf("room %d pinned\n", roomID)
			} else {
				cmd.Printf("room %d unpinned\n", roomID)
			}
			return nil
		},
	}
	backend.register(cmd)
	return cmd
}

func newCloseCmd(opts *rootOptions) *cobra.Command {
	var (
		backend backendFlags
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "close ROOM_ID",
		Short: "Toggle the closed flag of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := roomIDArg(args[0])
			if err != nil {
				return err
			}
			c, err := backend.client(opts)
			if err != nil {
				return err
			}

			confirm := admin.PromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			if yes {
				confirm = nil
			}
			closed, err := admin.CloseRoom(cmd.Context(), c, roomID, confirm)
			if errors.Is(err, admin.ErrCancelled) {
				cmd.Println("cancelled")
				return nil
			}
			if err != nil {
				return err
			}
			if closed {
				cmd.Printf("room %d closed\n", roomID)
			} else {
				cmd.Printf("room %d reopened\n", roomID)
			}
			return nil
		},
	}
	backend.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newDuplicateCmd(opts *rootOptions) *cobra.Command {
	var backend backendFlags

	cmd := &cobra.Command{
		Use:   "duplicate ROOM_ID",
		Short: "Create a fresh copy of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := roomIDArg(args[0])
			if err != nil {
				return err
			}
			c, err := backend.client(opts)
			if err != nil {
				return err
			}
			dup, err := admin.DuplicateRoom(cmd.Context(), c, roomID)
			if err != nil {
				return err
			}
			cmd.Printf("room %d duplicated as room %d (token %s)\n", roomID, dup.RoomID, dup.Token)
			return nil
		},
	}
	backend.register(cmd)
	return cmd
}
