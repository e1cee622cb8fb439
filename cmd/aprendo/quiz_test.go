package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/japaniel/aprendo/pkg/etl"
	"github.com/japaniel/aprendo/pkg/quiz"
	"github.com/japaniel/aprendo/pkg/translations"
)

func TestRunQuiz(t *testing.T) {
	store := translations.Build([]etl.Pair{
		{Source: "perro", Target: "куче"},
		{Source: "gato", Target: "котка"},
	})
	sess := quiz.NewSession(quiz.NewSampler(store, quiz.WithSeed(3)), quiz.SpanishToBulgarian)
	if err := sess.SetRanges("1-1"); err != nil {
		t.Fatal(err)
	}

	in := strings.NewReader(":ranges 9-1\n:ranges 1-2\nКУЧЕ\n\n:dir bg-es\n")
	var out bytes.Buffer
	if err := runQuiz(sess, in, &out); err != nil {
		t.Fatalf("runQuiz: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Spanish → Bulgarian (ranges: 1-1)",
		"[1] perro",
		"correct (куче)",
		"Start must be less than or equal to end",
		"ranges: 1-2",
		"[2] gato",
		"skipped, expected: котка",
		"Bulgarian → Spanish",
		"score: 1/2",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}
