package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/repository"
	"gopkg.in/yaml.v3"
)

// bankFile is the YAML layout accepted by seed-questions.
type bankFile struct {
	Subject   string           `yaml:"subject"`
	Questions []model.Question `yaml:"questions"`
}

func newSeedQuestionsCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed-questions",
		Short: "Insert or update questions from a YAML bank file",
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, err := loadBank(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := repository.NewQuestionRepository(pool)
			for i := range bank.Questions {
				if err := repo.Upsert(ctx, &bank.Questions[i]); err != nil {
					return fmt.Errorf("question %d: %w", i+1, err)
				}
			}

			a.log.Info().
				Str("file", file).
				Int("questions", len(bank.Questions)).
				Msg("Question bank seeded")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML bank file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// loadBank parses and checks a bank file. A file-level subject fills questions
// that omit theirs; a missing status means APPROVED.
func loadBank(path string) (*bankFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank file: %w", err)
	}

	var bank bankFile
	if err := yaml.Unmarshal(raw, &bank); err != nil {
		return nil, fmt.Errorf("parse bank file: %w", err)
	}

	for i := range bank.Questions {
		q := &bank.Questions[i]
		if q.SubjectID == "" {
			q.SubjectID = bank.Subject
		}
		if q.Status == "" {
			q.Status = model.QuestionStatusApproved
		}
		if err := checkQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return &bank, nil
}

func checkQuestion(q *model.Question) error {
	switch {
	case q.SubjectID == "":
		return fmt.Errorf("subject is required")
	case q.Stem == "":
		return fmt.Errorf("stem is required")
	case q.Difficulty.Rank() < 0:
		return fmt.Errorf("unknown difficulty %q", q.Difficulty)
	}

	tags := make(map[string]struct{}, len(q.KnowledgePoints))
	for _, kp := range q.KnowledgePoints {
		if kp == "" {
			return fmt.Errorf("empty knowledge point")
		}
		if _, dup := tags[kp]; dup {
			return fmt.Errorf("knowledge point %q listed twice", kp)
		}
		tags[kp] = struct{}{}
	}

	switch q.Type {
	case model.QuestionTypeSingleChoice, model.QuestionTypeTrueFalse, model.QuestionTypeMultiChoice:
		if len(q.AnswerKey) == 0 {
			return fmt.Errorf("%s needs an answer key", q.Type)
		}
		if q.Type.IsSingleAnswer() && len(q.AnswerKey) != 1 {
			return fmt.Errorf("%s takes exactly one key", q.Type)
		}
		ids := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			ids[o.ID] = struct{}{}
		}
		for _, k := range q.AnswerKey {
			if _, ok := ids[k]; !ok {
				return fmt.Errorf("answer key %q is not an option", k)
			}
		}
	case model.QuestionTypeShortAnswer, model.QuestionTypeEssay:
	default:
		return fmt.Errorf("unknown type %q", q.Type)
	}
	return nil
}
