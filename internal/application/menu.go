package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

type MenuItem struct {
	Label  string
	Action func(ctx context.Context, p *prompter) error
}

type Menu struct {
	Title string
	Items []MenuItem

	in  io.Reader
	out io.Writer
}

/* ----------------------------------------
	MENU DEFINITION
---------------------------------------- */

// NewMainMenu builds the interactive menu: load a file, or list loads and
// optionally delete one.
func NewMainMenu(app *App) *Menu {
	return &Menu{
		Title: " -- Stock file loader -- ",
		Items: []MenuItem{
			{Label: "Load data from file", Action: func(ctx context.Context, p *prompter) error {
				path, err := p.ask("Filename: ")
				if err != nil {
					return err
				}
				if path == "" {
					fmt.Fprintln(p.out, "No file given")
					return nil
				}
				loadFile(ctx, app, path)
				return nil
			}},
			{Label: "List and delete previous loads", Action: func(ctx context.Context, p *prompter) error {
				return listAndDelete(ctx, app, p)
			}},
		},
		in:  app.In,
		out: app.Out,
	}
}

// listAndDelete prints the loads and offers to revert one of them.
func listAndDelete(ctx context.Context, app *App, p *prompter) error {
	loads, err := app.Service.ListLoads(ctx)
	if err != nil {
		printError(p.out, err)
		return nil
	}
	if len(loads) == 0 {
		fmt.Fprintln(p.out, "No stock data found")
		return nil
	}
	printLoads(p.out, loads)

	ok, err := p.confirm("Do you wish to delete a load? (Y/N) ")
	if err != nil || !ok {
		return err
	}

	answer, err := p.ask("Load number: ")
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(answer, 10, 64)
	if err != nil {
		fmt.Fprintf(p.out, "%q is not a load number\n", answer)
		return nil
	}
	for _, l := range loads {
		if l.LoadID == id {
			revertLoad(ctx, app, id)
			return nil
		}
	}
	fmt.Fprintf(p.out, "Load %d is not in the list\n", id)
	return nil
}

/* ----------------------------------------
	LOOP
---------------------------------------- */

// Run shows the options until the user declines to go back to the menu or
// input ends. A failed action is reported and the loop continues.
func (m *Menu) Run(ctx context.Context) error {
	p := newPrompter(m.in, m.out)

	fmt.Fprintln(m.out, m.Title)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintln(m.out, "Options:")
		for i, item := range m.Items {
			fmt.Fprintf(m.out, "%d - %s\n", i+1, item.Label)
		}

		choice, err := p.ask("Select option: ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if n, convErr := strconv.Atoi(choice); convErr == nil && n >= 1 && n <= len(m.Items) {
			err := m.Items[n-1].Action(ctx, p)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
		} else {
			fmt.Fprintf(m.out, "Unknown option %q\n", choice)
		}

		again, err := p.ask("Back to menu? (Y/N): ")
		if errors.Is(err, io.EOF) || strings.EqualFold(again, "N") {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

/* ----------------------------------------
	PROMPTS
---------------------------------------- */

type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{scanner: bufio.NewScanner(in), out: out}
}

// ask prints label and returns the next input line, trimmed.
// Returns io.EOF when input is exhausted.
func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// confirm asks a Y/N question. Only Y (either case) is a yes.
func (p *prompter) confirm(label string) (bool, error) {
	answer, err := p.ask(label)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "Y"), nil
}
