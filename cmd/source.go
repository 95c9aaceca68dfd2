package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/tablelens-cli/internal/analysis"
	"github.com/KaramelBytes/tablelens-cli/internal/dataset"
	"github.com/KaramelBytes/tablelens-cli/internal/ingest"
	"github.com/KaramelBytes/tablelens-cli/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// sourceFlags are the input hints shared by every command that reads a dataset.
type sourceFlags struct {
	delimiter  string
	format     string
	sheetName  string
	sheetIndex int
	dataPath   string
	token      string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	cmd.Flags().StringVar(&s.format, "input-format", "", "force input format: csv|tsv|xlsx|json (detected if omitted)")
	cmd.Flags().StringVar(&s.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&s.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().StringVar(&s.dataPath, "data-path", "", "JSON: path to the record array, e.g. data.items")
	cmd.Flags().StringVar(&s.token, "token", "", "URL sources: bearer token (overrides config fetch_token)")
}

func isURL(arg string) bool {
	l := strings.ToLower(arg)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// open loads a local path or URL and applies the hints. The returned sheet
// index is 0-based.
func (s *sourceFlags) open(ctx context.Context, arg string) (ingest.Source, int, error) {
	var (
		src ingest.Source
		err error
	)
	if isURL(arg) {
		token := s.token
		timeout := 0
		if cfg != nil {
			if token == "" {
				token = cfg.FetchToken
			}
			timeout = cfg.HTTPTimeoutSec
		}
		src, err = ingest.Fetch(ctx, arg, ingest.FetchOptions{
			Timeout:  time.Duration(timeout) * time.Second,
			Token:    token,
			DataPath: s.dataPath,
		})
	} else {
		src, err = ingest.Open(arg)
	}
	if err != nil {
		return src, 0, err
	}

	if s.format != "" {
		f := ingest.Format(strings.ToLower(s.format))
		switch f {
		case ingest.FormatCSV, ingest.FormatTSV, ingest.FormatXLSX, ingest.FormatJSON:
			src.Format = f
		default:
			return src, 0, fmt.Errorf("unsupported --input-format: %s", s.format)
		}
	}
	if s.delimiter != "" {
		d, err := parseDelimiter(s.delimiter)
		if err != nil {
			return src, 0, err
		}
		src.Delimiter = d
	}
	src.Sheet = s.sheetName
	if s.dataPath != "" {
		src.DataPath = s.dataPath
	}
	if s.sheetIndex < 1 {
		return src, 0, fmt.Errorf("--sheet-index is 1-based, got %d", s.sheetIndex)
	}
	return src, s.sheetIndex - 1, nil
}

// read opens arg and parses its rows.
func (s *sourceFlags) read(ctx context.Context, arg string) (ingest.Source, *dataset.Table, error) {
	src, idx, err := s.open(ctx, arg)
	if err != nil {
		return src, nil, err
	}
	t, err := ingest.ParseRows(src, idx)
	if err != nil {
		return src, nil, err
	}
	if t.ParseErrors > 0 {
		log().WithFields(logrus.Fields{"source": src.Name, "parse_errors": t.ParseErrors}).Warn("skipped malformed rows")
	}
	return src, t, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case ",":
		return ',', nil
	case "\t", "tab", "\\t":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

// localeFlags override numeric separator detection.
type localeFlags struct {
	decimal   string
	thousands string
}

func (l *localeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	cmd.Flags().StringVar(&l.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}

// options builds pipeline options from config, then applies locale flags.
func (l *localeFlags) options() (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	if cfg != nil {
		opt = cfg.AnalysisOptions(log())
	} else {
		opt.Logger = log()
	}
	switch strings.ToLower(strings.TrimSpace(l.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
		opt.ThousandsSeparator = '.'
	case ".", "dot":
		opt.DecimalSeparator = '.'
		opt.ThousandsSeparator = ','
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", l.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(l.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", l.thousands)
	}
	if opt.ThousandsSeparator != 0 && opt.DecimalSeparator == 0 {
		opt.DecimalSeparator = '.'
		if opt.ThousandsSeparator == '.' {
			opt.DecimalSeparator = ','
		}
	}
	return opt, nil
}

// log returns the configured logger, or a discarding one before loadConfig ran.
func log() logrus.FieldLogger {
	if logger == nil {
		return logging.Discard()
	}
	return logger
}
