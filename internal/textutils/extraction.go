// Package textutils turns free-text bank descriptions into the normalized
// counterparty token ("verb") that keys the learned patterns.
package textutils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	ibanPattern     = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`)
	invoicePattern  = regexp.MustCompile(`\b(?:INVOICE|INV|FACTUUR|FACT|NR|NO|REF|KENMERK)[.:#-]?\s*[A-Z]*\d[\w/-]*`)
	currencyPattern = regexp.MustCompile(`(?:\b(?:EUR|USD|GBP|CHF)\b|[€$£])\s*-?\d[\d.,]*|-?\d[\d.,]*\s*(?:\b(?:EUR|USD|GBP|CHF)\b|[€$£])`)
	currencyTokens  = regexp.MustCompile(`\b(?:EUR|USD|GBP|CHF)\b|[€$£]`)
)

// VerbOptions tunes verb extraction.
type VerbOptions struct {
	// StopWords are dropped while they lead the description.
	StopWords []string
	// MaxTokens is the number of leading alphabetic tokens kept.
	MaxTokens int
	// MinLength is the shortest token considered a word.
	MinLength int
}

// DefaultVerbOptions returns the options used when none are configured.
func DefaultVerbOptions() VerbOptions {
	return VerbOptions{MaxTokens: 1, MinLength: 2}
}

// ExtractVerb returns the counterparty token for a transaction description.
// When the description yields nothing, the secondary text is tried. Empty or
// purely numeric input yields "".
func ExtractVerb(description, secondary string, opts VerbOptions) string {
	if verb := extract(description, opts); verb != "" {
		return verb
	}
	return extract(secondary, opts)
}

func extract(text string, opts VerbOptions) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if opts.MaxTokens < 1 {
		opts.MaxTokens = 1
	}
	if opts.MinLength < 1 {
		opts.MinLength = 1
	}

	s := NormalizeDescription(text)

	stop := make(map[string]struct{}, len(opts.StopWords))
	for _, w := range opts.StopWords {
		stop[strings.ToUpper(strings.TrimSpace(w))] = struct{}{}
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	run := make([]string, 0, opts.MaxTokens)
	for _, tok := range tokens {
		if !isWord(tok, opts.MinLength) {
			if len(run) > 0 {
				break
			}
			continue
		}
		if len(run) == 0 {
			if _, skip := stop[tok]; skip {
				continue
			}
		}
		run = append(run, tok)
		if len(run) == opts.MaxTokens {
			break
		}
	}
	return strings.Join(run, " ")
}

// NormalizeDescription uppercases text and strips IBANs, invoice numbers
// and currency fragments, collapsing the remaining whitespace.
func NormalizeDescription(text string) string {
	s := strings.ToUpper(text)
	s = ibanPattern.ReplaceAllString(s, " ")
	s = invoicePattern.ReplaceAllString(s, " ")
	s = currencyPattern.ReplaceAllString(s, " ")
	s = currencyTokens.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func isWord(tok string, minLength int) bool {
	n := 0
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			return false
		}
		n++
	}
	return n >= minLength
}
