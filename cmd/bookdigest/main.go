package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/dgallion1/bookdigest/internal/app"
	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/digest"
	"github.com/dgallion1/bookdigest/internal/parser"
	"github.com/dgallion1/bookdigest/internal/pipeline"
	"github.com/dgallion1/bookdigest/internal/segment"
)

// Globals are shared by every subcommand.
type Globals struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	out io.Writer    `kong:"-"`
	log *slog.Logger `kong:"-"`
}

// AfterApply sets up logging once flags are parsed. Logs go to stderr so
// stdout carries only the result.
func (g *Globals) AfterApply() error {
	level := config.Load().LogLevel
	if g.Verbose {
		level = slog.LevelDebug
	}
	g.log = app.NewLogger(os.Stderr, level)
	return nil
}

type CLI struct {
	Globals

	Run  RunCmd  `cmd:"" help:"Generate a digest for a summary file and publish it"`
	Plan PlanCmd `cmd:"" help:"Show how a summary file would be split into sections"`
}

type RunCmd struct {
	Book   string `required:"" help:"Book title"`
	Author string `required:"" help:"Book author"`
	File   string `required:"" type:"existingfile" help:"Summary file (txt, md, html, pdf, docx)"`
	Store  string `enum:"docx,google" default:"docx" help:"Document store (${enum})"`
	Out    string `default:"./documents" help:"Output directory for the docx store"`
}

func (c *RunCmd) Run(g *Globals) error {
	summary, err := readSummary(c.File)
	if err != nil {
		return err
	}

	cfg := config.Load()
	cfg.DocumentStore = c.Store
	cfg.DocxOutputDir = c.Out
	if c.Store == config.StoreDocx {
		abs, err := filepath.Abs(c.Out)
		if err != nil {
			return err
		}
		cfg.PublicBaseURL = "file://" + abs
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(cfg, g.log)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Service.Process(ctx, digest.Request{
		BookName: c.Book,
		Author:   c.Author,
		Summary:  summary,
	}, pipeline.Hooks{
		Planned: func(n int) { g.log.Info("summarizing", "sections", n) },
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(g.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Response()); err != nil {
		return err
	}
	if !res.Published {
		return fmt.Errorf("%s", res.DocumentURL)
	}
	return nil
}

type PlanCmd struct {
	File string `arg:"" type:"existingfile" help:"Summary file"`
}

type planOutput struct {
	Words        int      `json:"words"`
	EstTokens    int      `json:"est_tokens"`
	SectionCount int      `json:"section_count"`
	Chunks       []string `json:"chunks"`
}

func (c *PlanCmd) Run(g *Globals) error {
	summary, err := readSummary(c.File)
	if err != nil {
		return err
	}
	count := segment.SectionCount(summary)
	enc := json.NewEncoder(g.out)
	enc.SetIndent("", "  ")
	return enc.Encode(planOutput{
		Words:        segment.WordCount(summary),
		EstTokens:    segment.EstimateTokens(summary),
		SectionCount: count,
		Chunks:       segment.Split(summary, count),
	})
}

func readSummary(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	summary, err := parser.ReadSummary(f, path)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	return summary, nil
}

func main() {
	var cli CLI
	cli.out = os.Stdout
	ctx := kong.Parse(&cli,
		kong.Name("bookdigest"),
		kong.Description("Turn a book summary into a formatted digest document."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
