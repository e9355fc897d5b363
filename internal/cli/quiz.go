package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/hyperjump/shiori/internal/quiz"
)

// QuizDriver runs quiz sessions, either in-process or through a server.
type QuizDriver interface {
	StartQuiz(ctx context.Context) (*quiz.SessionView, error)
	SelectArticle(ctx context.Context, id string, index int) (*quiz.SessionView, error)
	SelectCount(ctx context.Context, id string, n int) (*quiz.SessionView, error)
	Answer(ctx context.Context, id string, choice int) (*quiz.Feedback, error)
	CancelQuiz(ctx context.Context, id string) error
}

// LocalQuiz drives a quiz.Manager in the same process.
type LocalQuiz struct {
	Manager *quiz.Manager
}

func (l LocalQuiz) StartQuiz(ctx context.Context) (*quiz.SessionView, error) {
	return l.Manager.Start(ctx)
}

func (l LocalQuiz) SelectArticle(_ context.Context, id string, index int) (*quiz.SessionView, error) {
	return l.Manager.SelectArticle(id, index)
}

func (l LocalQuiz) SelectCount(ctx context.Context, id string, n int) (*quiz.SessionView, error) {
	return l.Manager.SelectCount(ctx, id, n)
}

func (l LocalQuiz) Answer(_ context.Context, id string, choice int) (*quiz.Feedback, error) {
	return l.Manager.Answer(id, choice)
}

func (l LocalQuiz) CancelQuiz(_ context.Context, id string) error {
	return l.Manager.Cancel(id)
}

// RunQuiz plays one quiz on in/out: pick an article, pick a question count,
// then answer each question by number. Entering q or reaching end of input
// cancels the session.
func RunQuiz(ctx context.Context, d QuizDriver, in io.Reader, out io.Writer) error {
	p := &prompter{scanner: bufio.NewScanner(in), out: out}

	view, err := d.StartQuiz(ctx)
	if err != nil {
		return err
	}
	id := view.ID

	fmt.Fprintln(out, "Choose an article:")
	for i, a := range view.Articles {
		fmt.Fprintf(out, "  %d) %s\n", i+1, a.Title)
	}
	n, ok := p.number("Article number (q to quit): ", func(n int) bool { return n >= 1 && n <= len(view.Articles) })
	if !ok {
		return cancel(ctx, d, id, out)
	}
	if view, err = d.SelectArticle(ctx, id, n-1); err != nil {
		return err
	}

	counts := view.AllowedCounts
	labels := make([]string, len(counts))
	for i, c := range counts {
		labels[i] = strconv.Itoa(c)
	}
	n, ok = p.number(fmt.Sprintf("How many questions (%s)? ", strings.Join(labels, "/")), func(n int) bool {
		return slices.Contains(counts, n)
	})
	if !ok {
		return cancel(ctx, d, id, out)
	}
	fmt.Fprintln(out, "Generating quiz...")
	if view, err = d.SelectCount(ctx, id, n); err != nil {
		return err
	}

	q := view.Question
	for q != nil {
		fmt.Fprintf(out, "\nQuestion %d/%d: %s\n", q.Number, q.Total, q.Question)
		for i, o := range q.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, o)
		}
		options := len(q.Options)
		choice, ok := p.number("Your answer: ", func(n int) bool { return n >= 1 && n <= options })
		if !ok {
			return cancel(ctx, d, id, out)
		}
		fb, err := d.Answer(ctx, id, choice-1)
		if err != nil {
			return err
		}
		if fb.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Wrong. The correct answer is %d) %s\n", fb.CorrectIndex+1, fb.CorrectOption)
		}
		if fb.Done {
			fmt.Fprintf(out, "\nQuiz finished: %d/%d correct.\n", fb.Score, fb.Total)
			return nil
		}
		q = fb.Next
	}
	return nil
}

func cancel(ctx context.Context, d QuizDriver, id string, out io.Writer) error {
	fmt.Fprintln(out, "Quiz cancelled.")
	return d.CancelQuiz(ctx, id)
}

type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// number reads lines until one parses to a number accepted by valid. It
// returns false on q, quit or end of input.
func (p *prompter) number(label string, valid func(int) bool) (int, bool) {
	for {
		fmt.Fprint(p.out, label)
		if !p.scanner.Scan() {
			fmt.Fprintln(p.out)
			return 0, false
		}
		line := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
		if line == "q" || line == "quit" {
			return 0, false
		}
		n, err := strconv.Atoi(line)
		if err == nil && valid(n) {
			return n, true
		}
		fmt.Fprintln(p.out, "Invalid choice, try again.")
	}
}
