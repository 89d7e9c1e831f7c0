package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/folio/internal/config"
	"github.com/IshaanNene/folio/internal/rules"
	"github.com/IshaanNene/folio/internal/sanitize"
	"github.com/IshaanNene/folio/internal/types"
)

const usage = "Usage: folioclean HTML_INPUT_FILE HTML_OUTPUT_FILE"

var (
	cfgFile    string
	verbose    bool
	rulesPath  string
	format     string
	policy     string
	pretty     bool
	printRules bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "folioclean HTML_INPUT_FILE HTML_OUTPUT_FILE",
		Short: "Rewrite a downloaded page into clean HTML using a rule set",
		Long: `folioclean applies a declarative rule set to one HTML document.

The rule set runs in four phases: pre-removal selectors, numbered structural
directives, post-removal selectors and an optional whitelist projection.
Without --rules the compiled-in "maincontent" rule set is used.`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runClean,
	}

	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "rule set YAML file")
	rootCmd.Flags().StringVarP(&format, "format", "f", "", "output format: html, markdown")
	rootCmd.Flags().StringVar(&policy, "policy", "", "final sanitize pass: none, ugc, strict")
	rootCmd.Flags().BoolVar(&pretty, "pretty", false, "indent HTML output")
	rootCmd.Flags().BoolVar(&printRules, "print-rules", false, "print the effective rule set as YAML and exit")

	os.Exit(exitCode(rootCmd.Execute(), os.Stdout, os.Stderr))
}

// exitCode reports err and returns the process status. A usage error prints
// the usage line to stdout.
func exitCode(err error, stdout, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	var ue *types.UsageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stdout, usage)
		return 1
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}

// checkArgs requires exactly an input and an output path, unless the rule
// set is only being printed.
func checkArgs(args []string, printOnly bool) error {
	if !printOnly && len(args) != 2 {
		return &types.UsageError{Want: 2, Got: len(args)}
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	if err := checkArgs(args, printRules); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)

	if err := config.ValidateSanitizer(&cfg.Sanitizer); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.ValidateAmbient(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := config.NewLogger(cfg.Logging, verbose, os.Stderr)

	rs, err := loadRuleSet(cfg.Sanitizer.RulesetPath, logger)
	if err != nil {
		return err
	}

	if printRules {
		out, err := rules.Marshal(rs)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}

	inputPath, outputPath := args[0], args[1]

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	engine := sanitize.New(logger)
	out, err := engine.SanitizeReader(in, rs, sanitize.OutputOptions{
		Format: sanitize.Format(cfg.Sanitizer.Format),
		Pretty: cfg.Sanitizer.Pretty,
		Policy: sanitize.Policy(cfg.Sanitizer.Policy),
	})
	if err != nil {
		return err
	}

	if err := writeOutput(outputPath, out); err != nil {
		return err
	}

	logger.Info("document cleaned",
		"input", inputPath,
		"output", outputPath,
		"ruleset", rs.Name,
		"format", cfg.Sanitizer.Format,
		"removed", engine.Stats().ElementsRemoved.Load(),
	)
	return nil
}

// loadRuleSet reads the rule set at path, or returns the built-in default
// when path is empty.
func loadRuleSet(path string, logger *slog.Logger) (*rules.RuleSet, error) {
	if path == "" {
		logger.Debug("using built-in rule set")
		return rules.Default(), nil
	}
	rs, err := rules.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("rule set loaded", "path", path, "name", rs.Name, "directives", len(rs.Directives))
	return rs, nil
}

func writeOutput(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if rulesPath != "" {
		cfg.Sanitizer.RulesetPath = rulesPath
	}
	if format != "" {
		cfg.Sanitizer.Format = strings.ToLower(format)
	}
	if policy != "" {
		cfg.Sanitizer.Policy = strings.ToLower(policy)
	}
	if pretty {
		cfg.Sanitizer.Pretty = true
	}
}
