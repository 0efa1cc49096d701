package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mediapull/internal/domain"
	"mediapull/internal/fallback"
	"mediapull/internal/transfer"
)

// consolePrompter implements the fallback operator dialogue on a terminal.
type consolePrompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newConsolePrompter(in io.Reader, out io.Writer) *consolePrompter {
	return &consolePrompter{
		in:  bufio.NewScanner(in),
		out: out,
	}
}

func (p *consolePrompter) ChooseMode(failed []domain.FailedDownload) (fallback.Mode, error) {
	fmt.Fprintf(p.out, "\n%d download(s) failed:\n", len(failed))
	for _, item := range failed {
		fmt.Fprintf(p.out, "  %s: %s\n", item.Version.Label(), item.Reason)
	}

	for {
		fmt.Fprint(p.out, "retry with [a]utomatic substitution, [m]anual selection, or [s]kip? ")
		line, err := p.readLine()
		if err != nil {
			return "", err
		}
		switch strings.ToLower(line) {
		case "a":
			return fallback.ModeAutomatic, nil
		case "m":
			return fallback.ModeManual, nil
		case "s":
			return fallback.ModeSkip, nil
		}
		fmt.Fprintln(p.out, "please answer a, m or s")
	}
}

func (p *consolePrompter) ChooseComponent(version domain.Version, comps []domain.Component) (domain.Component, bool, error) {
	if len(comps) == 0 {
		return domain.Component{}, false, nil
	}

	fmt.Fprintf(p.out, "\ncomponents for %s:\n", version.Label())
	for i, comp := range comps {
		size := "size unknown"
		if comp.Size > 0 {
			size = transfer.FormatBytes(comp.Size)
		}
		fmt.Fprintf(p.out, "  [%d] %s (%s, %s)\n", i+1, comp.Name, comp.FileType, size)
	}

	for {
		fmt.Fprintf(p.out, "pick 1-%d or [s]kip: ", len(comps))
		line, err := p.readLine()
		if err != nil {
			return domain.Component{}, false, err
		}
		if strings.EqualFold(line, "s") {
			return domain.Component{}, false, nil
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(comps) {
			return comps[n-1], true, nil
		}
		fmt.Fprintln(p.out, "invalid choice")
	}
}

func (p *consolePrompter) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}
