package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonathan/spanisami/internal/cvflow"
	"github.com/jonathan/spanisami/internal/ingest"
	"github.com/jonathan/spanisami/internal/session"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build a profile and CV from a description or CV document",
	Long:  "Sends a free-text description (or the text of a PDF, DOCX or plain-text CV) to the backend, generates a CV for a target role and optionally exports it as a PDF.",
	RunE:  runProfile,
}

var (
	profileText     string
	profileFile     string
	profileRole     string
	profileLanguage string
	profileOutput   string
)

func init() {
	profileCmd.Flags().StringVarP(&profileText, "text", "t", "", "Description of your experience")
	profileCmd.Flags().StringVarP(&profileFile, "file", "f", "", "Existing CV document (PDF, DOCX or text)")
	profileCmd.Flags().StringVarP(&profileRole, "role", "r", "", "Target role for the CV")
	profileCmd.Flags().StringVarP(&profileLanguage, "language", "l", "", "Preferred language code (default from config)")
	profileCmd.Flags().StringVarP(&profileOutput, "out", "o", "", "Write the CV as a PDF to this path")
	profileCmd.MarkFlagsMutuallyExclusive("text", "file")
	profileCmd.MarkFlagsOneRequired("text", "file")

	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lang := cfg.PreferredLanguage
	if profileLanguage != "" {
		lang = profileLanguage
	}

	opts := cvflow.Options{PreferredLanguage: lang}
	if profileOutput != "" {
		opts.Renderer = newRenderer(cfg)
	}
	client := newBackendClient(cfg)
	cv := cvflow.New(session.NewMemoryStore(), client, consoleAlerts{}, opts)
	ctx := cmd.Context()

	spinner, _ := pterm.DefaultSpinner.Start(cvflow.MsgThinking)
	if profileFile != "" {
		data, err := os.ReadFile(profileFile)
		if err != nil {
			spinner.Fail()
			return fmt.Errorf("failed to read %s: %w", profileFile, err)
		}
		mime := ingest.DetectMime("", profileFile)
		pterm.Debug.Printf("read %s (%s, %s)\n", filepath.Base(profileFile), mime, humanize.Bytes(uint64(len(data))))
		err = cv.CreateProfileFromDocument(ctx, mime, data)
		if err != nil {
			spinner.Fail(cvflow.MsgProfileFailed)
			return err
		}
	} else if err := cv.CreateProfile(ctx, profileText); err != nil {
		spinner.Fail(cvflow.MsgProfileFailed)
		return err
	}
	spinner.Success("Profile created")

	view := cv.View()
	pterm.DefaultSection.Println("Profile")
	fmt.Println(view.ProfileOutput)

	spinner, _ = pterm.DefaultSpinner.Start(cvflow.MsgBuildingCV)
	if err := cv.GenerateCV(ctx, profileRole); err != nil {
		spinner.Fail(cvflow.MsgCVFailed)
		return err
	}
	spinner.Success("CV generated")

	pterm.DefaultSection.Println("CV")
	fmt.Println(cv.View().CVOutput)

	if profileOutput == "" {
		return nil
	}
	pdf, _, err := cv.ExportPDF(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(profileOutput, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", profileOutput, err)
	}
	pterm.Success.Printf("Saved %s (%s)\n", profileOutput, humanize.Bytes(uint64(len(pdf))))
	return nil
}
