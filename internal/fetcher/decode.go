package fetcher

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

type Strategy string

const (
	StrategyPlain   Strategy = "plain"
	StrategyBase64  Strategy = "base64"
	StrategyGzip    Strategy = "gzip"
	StrategyExtract Strategy = "extract"
)

const (
	DefaultSourcePath = "/etc/rancher/k3s/k3s.yaml"
	ExtractMarker     = "apiVersion:"
	prefixLen         = 50
)

var extractPattern = regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(ExtractMarker))

func Strategies() []Strategy {
	return []Strategy{StrategyPlain, StrategyBase64, StrategyGzip, StrategyExtract}
}

func ParseStrategy(s string) (Strategy, error) {
	for _, strategy := range Strategies() {
		if string(strategy) == strings.ToLower(strings.TrimSpace(s)) {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q (want one of plain, base64, gzip, extract)", s)
}

// RemoteCommand returns the shell command that produces output in the
// encoding this strategy decodes.
func (s Strategy) RemoteCommand(sourcePath string) string {
	if sourcePath == "" {
		sourcePath = DefaultSourcePath
	}
	sourcePath = shellQuote(sourcePath)

	switch s {
	case StrategyBase64:
		return fmt.Sprintf("sudo cat %s | base64 -w 0", sourcePath)
	case StrategyGzip:
		return fmt.Sprintf("sudo gzip -c %s | base64 -w 0", sourcePath)
	default:
		return fmt.Sprintf("sudo cat %s", sourcePath)
	}
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Decode turns raw command output into artifact text.
func Decode(strategy Strategy, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmptyOutput
	}

	switch strategy {
	case StrategyPlain:
		return trimmed, nil

	case StrategyBase64, StrategyGzip:
		data, err := base64.StdEncoding.DecodeString(trimmed)
		if err != nil {
			return "", decodeError(strategy, raw, fmt.Errorf("base64: %w", err))
		}

		if strategy == StrategyGzip {
			data, err = gunzip(data)
			if err != nil {
				return "", decodeError(strategy, raw, fmt.Errorf("gzip: %w", err))
			}
		}

		if !utf8.Valid(data) {
			return "", decodeError(strategy, raw, errors.New("decoded content is not valid UTF-8"))
		}
		return string(data), nil

	case StrategyExtract:
		loc := extractPattern.FindStringIndex(raw)
		if loc == nil {
			return "", decodeError(strategy, raw, fmt.Errorf("marker %q not found in output", ExtractMarker))
		}
		return raw[loc[0]:], nil
	}

	return "", fmt.Errorf("unknown strategy %q", strategy)
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

func decodeError(strategy Strategy, raw string, err error) *DecodeError {
	prefix := raw
	if len(prefix) > prefixLen {
		prefix = prefix[:prefixLen]
	}
	return &DecodeError{Strategy: strategy, Prefix: prefix, Err: err}
}
