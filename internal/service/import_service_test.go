package service

import (
	"errors"
	"strings"
	"testing"

	"videoquiz_backend/internal/model"
	"videoquiz_backend/internal/util"
)

const importHeader = "question_text,question_type,answer_1,answer_1_correct,answer_2,answer_2_correct,answer_3,answer_3_correct,answer_4,answer_4_correct\n"

func TestImportCSVHappyPath(t *testing.T) {
	env := newQuizEnv(t)
	video := createVideo(t, env, 1, defaultVideoOpts())
	// 已有一道题，导入的题目接在它后面
	addQuestion(t, env, video.ID, 1)

	csvData := importHeader +
		"什么是变量？,single_choice,存储值的名称,true,一种循环,false,一种函数,false,,\n" +
		"下列哪些是关键字？,multiple_choice,for,yes,func,1,banana,no,apple,0\n" +
		"Go 是编译型语言,true_false,对,TRUE,错,false,,,,\n"

	result, err := env.importer.ImportCSV(video.ID, strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.QuestionsCreated != 3 {
		t.Fatalf("expected 3 questions, got %d", result.QuestionsCreated)
	}
	if result.AnswersCreated != 9 {
		t.Fatalf("expected 9 answers, got %d", result.AnswersCreated)
	}

	questions, err := env.questions.ListActiveByVideo(video.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(questions) != 4 {
		t.Fatalf("expected 4 questions total, got %d", len(questions))
	}
	// 题序在已有题目之后追加
	imported := questions[1]
	if imported.Order != 2 || imported.Text != "什么是变量？" {
		t.Fatalf("unexpected first imported question %+v", imported)
	}
	if imported.QuestionType != model.SingleChoice {
		t.Fatalf("expected single_choice, got %s", imported.QuestionType)
	}
	if len(imported.Answers) != 3 {
		t.Fatalf("expected 3 answers, got %d", len(imported.Answers))
	}
	if !imported.Answers[0].IsCorrect || imported.Answers[1].IsCorrect {
		t.Fatalf("correct flags wrong: %+v", imported.Answers)
	}

	multi := questions[2]
	correct := 0
	for _, a := range multi.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 2 {
		t.Fatalf("multiple_choice should keep both correct answers, got %d", correct)
	}
}

func TestImportCSVRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"wrong header", "text,type\nfoo,single_choice\n"},
		{"reordered header", strings.Replace(importHeader, "question_text,question_type", "question_type,question_text", 1) +
			"single_choice,问题,答案,true,,,,,,\n"},
		{"no rows", importHeader},
		{"empty question text", importHeader + ",single_choice,a,true,b,false,,,,\n"},
		{"unknown type", importHeader + "问题,essay,a,true,b,false,,,,\n"},
		{"bad boolean", importHeader + "问题,single_choice,a,maybe,b,false,,,,\n"},
		{"no answers", importHeader + "问题,single_choice,,,,,,,,\n"},
		{"no correct answer", importHeader + "问题,single_choice,a,false,b,no,,,,\n"},
		{"two correct on single choice", importHeader + "问题,single_choice,a,true,b,true,,,,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQuestionCSV(strings.NewReader(tt.csv))
			var formatErr *util.ImportFormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected ImportFormatError, got %v", err)
			}
		})
	}
}

// 任意一行出错时整个导入回滚
func TestImportCSVIsAtomic(t *testing.T) {
	env := newQuizEnv(t)
	video := createVideo(t, env, 1, defaultVideoOpts())

	csvData := importHeader +
		"正常题目,single_choice,a,true,b,false,,,,\n" +
		"坏行,single_choice,a,maybe,b,false,,,,\n"

	if _, err := env.importer.ImportCSV(video.ID, strings.NewReader(csvData)); err == nil {
		t.Fatal("expected import error")
	}

	questions, err := env.questions.ListActiveByVideo(video.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(questions) != 0 {
		t.Fatalf("failed import must not leave partial rows, got %d", len(questions))
	}
}

func TestImportCSVUnknownVideo(t *testing.T) {
	env := newQuizEnv(t)
	csvData := importHeader + "问题,single_choice,a,true,b,false,,,,\n"
	if _, err := env.importer.ImportCSV(42, strings.NewReader(csvData)); !errors.Is(err, util.ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestParseImportBool(t *testing.T) {
	truthy := []string{"true", "TRUE", " True ", "1", "yes", "YES"}
	falsy := []string{"false", "False", "0", "no", "NO", "", "  "}

	for _, s := range truthy {
		v, err := ParseImportBool(s)
		if err != nil || !v {
			t.Errorf("ParseImportBool(%q) = %v, %v; want true", s, v, err)
		}
	}
	for _, s := range falsy {
		v, err := ParseImportBool(s)
		if err != nil || v {
			t.Errorf("ParseImportBool(%q) = %v, %v; want false", s, v, err)
		}
	}
	if _, err := ParseImportBool("maybe"); err == nil {
		t.Error("expected error for malformed boolean")
	}
}
