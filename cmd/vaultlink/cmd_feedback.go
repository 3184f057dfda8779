package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var feedbackContext string
var feedbackNotePath string

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record applied-suggestion feedback and manage suppressions",
}

var feedbackRecordCmd = &cobra.Command{
	Use:   "record <entity> <correct|incorrect>",
	Short: "Record whether an applied suggestion was correct",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedbackRecord,
}

var feedbackSuppressCmd = &cobra.Command{
	Use:   "suppress",
	Short: "Recompute the suppression list from accumulated feedback",
	RunE:  runFeedbackSuppress,
}

var feedbackJourneyCmd = &cobra.Command{
	Use:   "journey <entity>",
	Short: "Show an entity's discover/suggest/apply/learn/adapt counts",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackJourney,
}

func init() {
	feedbackRecordCmd.Flags().StringVar(&feedbackContext, "context", "", "surrounding text context for the feedback event")
	feedbackRecordCmd.Flags().StringVar(&feedbackNotePath, "note", "", "path of the note the suggestion was applied in")
	feedbackCmd.AddCommand(feedbackRecordCmd, feedbackSuppressCmd, feedbackJourneyCmd)
}

func runFeedbackRecord(cmd *cobra.Command, args []string) error {
	entity, verdict := args[0], args[1]
	var correct bool
	switch verdict {
	case "correct":
		correct = true
	case "incorrect":
		correct = false
	default:
		return fmt.Errorf("verdict must be %q or %q, got %q", "correct", "incorrect", verdict)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.feedback.Record(entity, feedbackContext, feedbackNotePath, correct); err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}
	fmt.Printf("recorded %s as %s for %s\n", entity, verdict, feedbackNotePath)
	return nil
}

func runFeedbackSuppress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.feedback.UpdateSuppressionList(); err != nil {
		return fmt.Errorf("update suppression list: %w", err)
	}
	fmt.Println("suppression list updated")
	return nil
}

func runFeedbackJourney(cmd *cobra.Command, args []string) error {
	entity := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	j, err := a.feedback.Journey(entity)
	if err != nil {
		return fmt.Errorf("journey: %w", err)
	}
	fmt.Printf("%s: discover=%d suggest=%d apply=%d learn=%d adapt=%d\n",
		entity, j.Discover, j.Suggest, j.Apply, j.Learn, j.Adapt)
	return nil
}
