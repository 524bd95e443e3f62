package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Coin333/courage-reps/internal/catalog"
	"github.com/Coin333/courage-reps/internal/pretest"
	"github.com/spf13/cobra"
)

var calibrateAnswers []int

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Take the calibration questionnaire and print the starting level",
	Long: `Asks the onboarding questions on the terminal, or scores --answers given as
one score (1-5) per question, and prints the starting level.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		answers := calibrateAnswers
		if len(answers) == 0 {
			var err error
			answers, err = askQuestions(cmd.InOrStdin(), out)
			if err != nil {
				return err
			}
		}

		level, err := pretest.Score(answers)
		if err != nil {
			return err
		}
		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nStarting level: %d\n%s\n", level, cat.Description(level))
		return nil
	},
}

func init() {
	calibrateCmd.Flags().IntSliceVar(&calibrateAnswers, "answers", nil, "comma-separated scores, one per question")
}

// askQuestions walks a pretest session over in and returns the scores
func askQuestions(in io.Reader, out io.Writer) ([]int, error) {
	scanner := bufio.NewScanner(in)
	session := pretest.NewSession()
	scores := make([]int, 0, pretest.Count())

	for !session.Done() {
		q, idx, _ := session.Current()
		fmt.Fprintf(out, "\n%d/%d %s\n", idx+1, pretest.Count(), q.Text)
		for i, o := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, o.Text)
		}
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("failed to read answer: %w", err)
			}
			return nil, fmt.Errorf("questionnaire aborted")
		}
		choice, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || session.Answer(choice-1) != nil {
			fmt.Fprintf(out, "Please enter a number between 1 and %d.\n", len(q.Options))
			continue
		}
		scores = append(scores, q.Options[choice-1].Score)
	}
	return scores, nil
}
