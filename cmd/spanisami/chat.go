package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonathan/spanisami/internal/backend"
	"github.com/jonathan/spanisami/internal/voice"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one text turn to the voice assistant backend",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChat,
}

var (
	chatSession  string
	chatLanguage string
	chatMode     string
)

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "Conversation session id from an earlier turn")
	chatCmd.Flags().StringVarP(&chatLanguage, "language", "l", "en", "Language code")
	chatCmd.Flags().StringVarP(&chatMode, "mode", "m", "", "cv or interview (default from config)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	mode := cfg.VoiceMode
	if chatMode != "" {
		mode = chatMode
	}

	client := newBackendClient(cfg)
	reply, err := client.Chat(cmd.Context(), chatSession, strings.Join(args, " "), chatLanguage, mode)
	if err != nil {
		return fmt.Errorf("chat failed: %s", backend.UserMessage(err, err.Error()))
	}

	fmt.Fprintln(cmd.OutOrStdout(), voice.Speakable(reply.Reply))
	if reply.SessionID != "" {
		pterm.Debug.Printf("session %s\n", reply.SessionID)
		fmt.Fprintf(cmd.ErrOrStderr(), "session: %s\n", reply.SessionID)
	}
	return nil
}
