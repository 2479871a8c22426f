package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stemsi/exstem-qbank/internal/model"
)

func writeBank(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bank.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBank(t *testing.T) {
	path := writeBank(t, `
subject: math
questions:
  - id: 7f1e7f5e-2a7c-4d0e-9a55-1b6f3c2d4e10
    type: SINGLE_CHOICE
    stem: "2 + 2 = ?"
    options:
      - {id: A, text: "3"}
      - {id: B, text: "4"}
    answer_key: [B]
    difficulty: EASY
    knowledge_points: [arithmetic]
  - type: ESSAY
    subject_id: physics
    stem: Explain inertia.
    difficulty: HARD
    status: DRAFT
`)

	bank, err := loadBank(path)
	if err != nil {
		t.Fatalf("loadBank: %v", err)
	}
	if len(bank.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(bank.Questions))
	}

	q := bank.Questions[0]
	if q.ID.String() != "7f1e7f5e-2a7c-4d0e-9a55-1b6f3c2d4e10" {
		t.Errorf("id = %s", q.ID)
	}
	if q.SubjectID != "math" || q.Status != model.QuestionStatusApproved {
		t.Errorf("defaults not applied: subject %q status %q", q.SubjectID, q.Status)
	}
	if len(q.Options) != 2 || q.AnswerKey[0] != "B" {
		t.Errorf("options/key = %+v / %v", q.Options, q.AnswerKey)
	}

	essay := bank.Questions[1]
	if essay.SubjectID != "physics" || essay.Status != model.QuestionStatusDraft {
		t.Errorf("explicit values overridden: %+v", essay)
	}
}

func TestLoadBank_RejectsBadQuestions(t *testing.T) {
	tests := map[string]string{
		"key not an option": `
subject: math
questions:
  - {type: SINGLE_CHOICE, stem: s, difficulty: EASY, options: [{id: A}], answer_key: [C]}
`,
		"two keys for single choice": `
subject: math
questions:
  - {type: TRUE_FALSE, stem: s, difficulty: EASY, options: [{id: A}, {id: B}], answer_key: [A, B]}
`,
		"unknown difficulty": `
subject: math
questions:
  - {type: ESSAY, stem: s, difficulty: BRUTAL}
`,
		"unknown type": `
subject: math
questions:
  - {type: ORAL, stem: s, difficulty: EASY}
`,
		"repeated knowledge point": `
subject: math
questions:
  - {type: ESSAY, stem: s, difficulty: EASY, knowledge_points: [algebra, algebra]}
`,
		"no subject": `
questions:
  - {type: ESSAY, stem: s, difficulty: EASY}
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadBank(writeBank(t, content)); err == nil {
				t.Fatal("bad bank accepted")
			}
		})
	}
}
