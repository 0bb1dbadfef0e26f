// Command receipt-parse extracts receipt fields from OCR text lines read from
// a file or stdin and prints them as JSON.
package main

import (
	"bufio"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/receipt-scanner/internal/extraction"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("receipt-parse")
	var (
		categoryRules = fs.StringLong("category-rules", "", "YAML file overriding the merchant category rules")
		showVersion   = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SCANNER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(fs.GetArgs(), *categoryRules, os.Stdin, os.Stdout, os.Stderr); err != nil {
		slog.Error("Failed to parse receipt", "error", err)
		os.Exit(1)
	}
}

func run(args []string, rulesPath string, stdin io.Reader, stdout, stderr io.Writer) error {
	var rules []extraction.CategoryRule
	if rulesPath != "" {
		var err error
		if rules, err = extraction.LoadCategoryRules(rulesPath); err != nil {
			return err
		}
	}

	in := stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	lines, err := readLines(in)
	if err != nil {
		return err
	}

	receipt, err := extraction.NewParserWithDeps(rules, nil, nil).Parse(lines)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(receipt); err != nil {
		return fmt.Errorf("encoding receipt: %w", err)
	}

	if !receipt.IsHighConfidence() {
		fmt.Fprintf(stderr, "warning: low confidence (%.2f), review the extracted fields\n", receipt.Confidence.Overall())
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	lines := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return lines, nil
}
