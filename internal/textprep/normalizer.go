// Package textprep prepares raw, noisy source text for prompting: staged
// cleaning of scraped or pasted material and splitting of the cleaned text
// into bounded, overlapping chunks.
package textprep

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tuning constants for the equation heuristics. The values are empirical and
// must stay compatible with the client that used them first.
const (
	// fragmentRunMin is the minimum run of space-separated single letters
	// treated as a shredded equation.
	fragmentRunMin = 7
	// tableFormattingRatio is the fraction of formatting punctuation above
	// which a pipe-delimited row is dropped.
	tableFormattingRatio = 0.70
	// simpleEquationMaxLen keeps short equalities like "x = 5" unfolded.
	simpleEquationMaxLen = 12
	// truncateBoundaryWindow is the trailing fraction of the truncation
	// window searched for a sentence or paragraph boundary.
	truncateBoundaryWindow = 0.20
)

// equationPlaceholder replaces math content the model cannot use verbatim.
const equationPlaceholder = "[equation]"

// codePlaceholder replaces code blocks.
const codePlaceholder = "[code]"

// CleanOptions control the cleaning pipeline.
type CleanOptions struct {
	// MaxLength truncates the cleaned text (0 uses DefaultMaxLength).
	MaxLength int
	// MinWords is the minimum count of alphabetic words a cleaning result
	// must retain; below it the cleaner falls back to a whitespace-normalized
	// truncation of the original input (0 uses DefaultMinWords).
	MinWords int
	// PreserveEquations skips unicode math normalization and the fragmented
	// equation collapse.
	PreserveEquations bool
	// AggressiveUnicode strips every non-ASCII rune that survived the
	// earlier stages.
	AggressiveUnicode bool
}

// Defaults for CleanOptions.
const (
	DefaultMaxLength = 50000
	DefaultMinWords  = 10
)

// CleanStats is advisory diagnostic output. It must never influence
// caller-observable control flow.
type CleanStats struct {
	OriginalLength int      `json:"originalLength"`
	CleanedLength  int      `json:"cleanedLength"`
	ReductionRatio float64  `json:"reductionRatio"`
	UsedFallback   bool     `json:"usedFallback"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (o *CleanOptions) setDefaults() {
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.MinWords <= 0 {
		o.MinWords = DefaultMinWords
	}
}

// Clean runs the full cleaning pipeline over raw text. It is a total
// function: any input yields a best-effort string, and re-running it on its
// own output produces the same result.
func Clean(raw string, opts CleanOptions) string {
	cleaned, _ := CleanWithStats(raw, opts)
	return cleaned
}

// CleanWithStats is Clean plus advisory diagnostics.
func CleanWithStats(raw string, opts CleanOptions) (string, CleanStats) {
	opts.setDefaults()
	stats := CleanStats{OriginalLength: len(raw)}

	text := stripInvisible(raw)
	text = stripHTML(text)
	text = stripURLs(text)
	text = replaceCodeBlocks(text)
	text = stripTableArtifacts(text)
	text = stripWikiMarkup(text)
	text = replaceDelimitedMath(text)
	if !opts.PreserveEquations {
		text = normalizeMathUnicode(text)
		text = collapseFragmentedEquations(text)
	}
	text = stripEmoji(text)
	if opts.AggressiveUnicode {
		text = stripNonASCII(text)
	}
	text = normalizeSmartPunctuation(text)
	text = dedupeLines(text)
	text = NormalizeWhitespace(text)
	text = truncateAtBoundary(text, opts.MaxLength)

	if countAlphaWords(text) < opts.MinWords {
		stats.UsedFallback = true
		stats.Warnings = append(stats.Warnings,
			fmt.Sprintf("cleaning left fewer than %d words, using whitespace-normalized original", opts.MinWords))
		text = truncateAtBoundary(NormalizeWhitespace(raw), opts.MaxLength)
	}

	stats.CleanedLength = len(text)
	if stats.OriginalLength > 0 {
		stats.ReductionRatio = 1 - float64(stats.CleanedLength)/float64(stats.OriginalLength)
	}
	return text, stats
}

var (
	invisibleRE = regexp.MustCompile("[\u200b-\u200f\u202a-\u202e\u2060-\u2064\ufeff]")
	controlRE   = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")
)

func stripInvisible(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = invisibleRE.ReplaceAllString(s, "")
	return controlRE.ReplaceAllString(s, "")
}

var (
	brTagRE      = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockCloseRE = regexp.MustCompile(`(?i)</(p|div|li|tr|h[1-6]|blockquote)>`)
	htmlTagRE    = regexp.MustCompile(`</?[a-zA-Z][^<>]{0,200}>`)
	commentRE    = regexp.MustCompile(`(?s)<!--.*?-->`)
	decEntityRE  = regexp.MustCompile(`&#(\d{1,7});`)
	hexEntityRE  = regexp.MustCompile(`&#[xX]([0-9a-fA-F]{1,6});`)
)

var namedEntities = map[string]string{
	"&amp;":    "&",
	"&lt;":     "<",
	"&gt;":     ">",
	"&quot;":   `"`,
	"&apos;":   "'",
	"&nbsp;":   " ",
	"&ndash;":  "-",
	"&mdash;":  "-",
	"&hellip;": "...",
	"&lsquo;":  "'",
	"&rsquo;":  "'",
	"&ldquo;":  `"`,
	"&rdquo;":  `"`,
	"&copy;":   "(c)",
	"&reg;":    "(R)",
	"&trade;":  "(TM)",
	"&deg;":    " degrees ",
	"&times;":  "x",
	"&divide;": "/",
	"&plusmn;": "+/-",
	"&middot;": "-",
	"&bull;":   "-",
	"&sect;":   " ",
	"&para;":   " ",
}

func stripHTML(s string) string {
	s = commentRE.ReplaceAllString(s, " ")
	s = brTagRE.ReplaceAllString(s, "\n")
	s = blockCloseRE.ReplaceAllString(s, "\n")
	s = htmlTagRE.ReplaceAllString(s, " ")
	for entity, repl := range namedEntities {
		s = strings.ReplaceAll(s, entity, repl)
	}
	// Numeric entities decode only to printable ASCII; anything else becomes
	// a space so stray markup cannot smuggle control characters back in.
	s = decEntityRE.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(decEntityRE.FindStringSubmatch(m)[1])
		if err != nil || n < 32 || n > 126 {
			return " "
		}
		return string(rune(n))
	})
	s = hexEntityRE.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.ParseInt(hexEntityRE.FindStringSubmatch(m)[1], 16, 32)
		if err != nil || n < 32 || n > 126 {
			return " "
		}
		return string(rune(n))
	})
	return s
}

var (
	urlRE   = regexp.MustCompile(`https?://[^\s<>"']+`)
	wwwRE   = regexp.MustCompile(`\bwww\.[^\s<>"']+`)
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

func stripURLs(s string) string {
	s = urlRE.ReplaceAllString(s, " ")
	s = wwwRE.ReplaceAllString(s, " ")
	return emailRE.ReplaceAllString(s, " ")
}

var (
	fencedCodeRE = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRE = regexp.MustCompile("`[^`\n]+`")
	indentedRE   = regexp.MustCompile(`^( {4,}|\t)\S`)
)

func replaceCodeBlocks(s string) string {
	s = fencedCodeRE.ReplaceAllString(s, " "+codePlaceholder+" ")
	s = inlineCodeRE.ReplaceAllString(s, codePlaceholder)

	// Runs of two or more indented lines are treated as an indented code
	// block and collapsed into a single placeholder line. A lone indented
	// line is more likely a formatted paragraph and stays.
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	i := 0
	for i < len(lines) {
		if indentedRE.MatchString(lines[i]) {
			j := i
			for j < len(lines) && indentedRE.MatchString(lines[j]) {
				j++
			}
			if j-i >= 2 {
				out = append(out, codePlaceholder)
			} else {
				out = append(out, lines[i])
			}
			i = j
			continue
		}
		out = append(out, lines[i])
		i++
	}
	return strings.Join(out, "\n")
}

var tableSeparatorRE = regexp.MustCompile(`^[\s|+\-=_:]+$`)

func stripTableArtifacts(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && tableSeparatorRE.MatchString(trimmed) {
			continue
		}
		if strings.ContainsRune(line, '|') && formattingRatio(line) > tableFormattingRatio {
			continue
		}
		line = strings.Map(func(r rune) rune {
			if r == '|' || r == '+' {
				return ' '
			}
			return r
		}, line)
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func formattingRatio(line string) float64 {
	if line == "" {
		return 0
	}
	formatting := 0
	total := 0
	for _, r := range line {
		total++
		switch r {
		case '|', '+', '-', ':', '=', ' ', '\t':
			formatting++
		}
	}
	return float64(formatting) / float64(total)
}

var (
	refNumberRE  = regexp.MustCompile(`\[\d{1,4}\]`)
	refMarkerRE  = regexp.MustCompile(`(?i)\[(edit|citation needed|note \d+|clarification needed|when\?|who\?)\]`)
	navLineRE    = regexp.MustCompile(`(?i)^\s*(jump to (navigation|search|content)|retrieved from|main article:|further information:|see also:?\s*$|see also:|this article (is about|needs))`)
	disambigRE   = regexp.MustCompile(`(?i)^\s*for other uses, see\b`)
	citeNeededRE = regexp.MustCompile(`(?i)\(citation needed\)`)
)

func stripWikiMarkup(s string) string {
	s = refNumberRE.ReplaceAllString(s, "")
	s = refMarkerRE.ReplaceAllString(s, "")
	s = citeNeededRE.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if navLineRE.MatchString(line) || disambigRE.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

var (
	blockMathRE    = regexp.MustCompile(`(?s)\$\$.+?\$\$`)
	inlineMathRE   = regexp.MustCompile(`\$[^$\n]+\$`)
	latexInlineRE  = regexp.MustCompile(`(?s)\\\(.+?\\\)`)
	latexDisplayRE = regexp.MustCompile(`(?s)\\\[.+?\\\]`)
	latexEnvRE     = regexp.MustCompile(`(?s)\\begin\{[a-zA-Z*]+\}.*?\\end\{[a-zA-Z*]+\}`)
)

func replaceDelimitedMath(s string) string {
	s = latexEnvRE.ReplaceAllString(s, " "+equationPlaceholder+" ")
	s = blockMathRE.ReplaceAllString(s, " "+equationPlaceholder+" ")
	s = latexDisplayRE.ReplaceAllString(s, " "+equationPlaceholder+" ")
	s = latexInlineRE.ReplaceAllString(s, " "+equationPlaceholder+" ")
	return inlineMathRE.ReplaceAllString(s, " "+equationPlaceholder+" ")
}

var greekNames = map[rune]string{
	'α': "alpha", 'β': "beta", 'γ': "gamma", 'δ': "delta", 'ε': "epsilon",
	'ζ': "zeta", 'η': "eta", 'θ': "theta", 'ι': "iota", 'κ': "kappa",
	'λ': "lambda", 'μ': "mu", 'ν': "nu", 'ξ': "xi", 'ο': "omicron",
	'π': "pi", 'ρ': "rho", 'σ': "sigma", 'ς': "sigma", 'τ': "tau",
	'υ': "upsilon", 'φ': "phi", 'χ': "chi", 'ψ': "psi", 'ω': "omega",
	'Α': "Alpha", 'Β': "Beta", 'Γ': "Gamma", 'Δ': "Delta", 'Ε': "Epsilon",
	'Ζ': "Zeta", 'Η': "Eta", 'Θ': "Theta", 'Ι': "Iota", 'Κ': "Kappa",
	'Λ': "Lambda", 'Μ': "Mu", 'Ν': "Nu", 'Ξ': "Xi", 'Ο': "Omicron",
	'Π': "Pi", 'Ρ': "Rho", 'Σ': "Sigma", 'Τ': "Tau", 'Υ': "Upsilon",
	'Φ': "Phi", 'Χ': "Chi", 'Ψ': "Psi", 'Ω': "Omega",
}

var superSubDigits = map[rune]rune{
	'⁰': '0', '¹': '1', '²': '2', '³': '3', '⁴': '4',
	'⁵': '5', '⁶': '6', '⁷': '7', '⁸': '8', '⁹': '9',
	'₀': '0', '₁': '1', '₂': '2', '₃': '3', '₄': '4',
	'₅': '5', '₆': '6', '₇': '7', '₈': '8', '₉': '9',
	'ⁿ': 'n', 'ⁱ': 'i',
}

// normalizeMathUnicode maps mathematical alphanumeric symbols, superscript
// and subscript digits, and Greek letters to ASCII equivalents, then applies
// NFC so combining sequences compare equal downstream.
func normalizeMathUnicode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 0x1D400 && r <= 0x1D6A3:
			// Styled Latin letters repeat in blocks of 52 (A-Z then a-z).
			off := (r - 0x1D400) % 52
			if off < 26 {
				b.WriteRune('A' + off)
			} else {
				b.WriteRune('a' + off - 26)
			}
		case r >= 0x1D7CE && r <= 0x1D7FF:
			b.WriteRune('0' + (r-0x1D7CE)%10)
		default:
			if d, ok := superSubDigits[r]; ok {
				b.WriteRune(d)
			} else if name, ok := greekNames[r]; ok {
				b.WriteString(name)
			} else {
				b.WriteRune(r)
			}
		}
	}
	out, _, err := transform.String(norm.NFC, b.String())
	if err != nil {
		return b.String()
	}
	return out
}

var (
	letterRunRE    = regexp.MustCompile(`(?:\b[a-zA-Z]\b[ \t]+){` + strconv.Itoa(fragmentRunMin-1) + `,}\b[a-zA-Z]\b`)
	greekWordRE    = regexp.MustCompile(`(?i)\b(alpha|beta|gamma|delta|epsilon|zeta|eta|theta|iota|kappa|lambda|mu|nu|xi|omicron|rho|sigma|tau|upsilon|phi|chi|psi|omega)\b`)
	subscriptVarRE = regexp.MustCompile(`\b[a-zA-Z]_\{?[a-zA-Z0-9]`)
	simpleEqRE     = regexp.MustCompile(`^[a-zA-Z]\s*=\s*-?\d+(?:\.\d+)?$`)
)

// collapseFragmentedEquations detects equation debris left by PDF extraction
// (runs of single letters, Greek-letter equalities, subscript notation) and
// folds it into the placeholder. Short simple equalities like "x = 5" stay.
func collapseFragmentedEquations(s string) string {
	s = letterRunRE.ReplaceAllString(s, equationPlaceholder)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.ContainsRune(trimmed, '=') {
			continue
		}
		if len(trimmed) <= simpleEquationMaxLen && simpleEqRE.MatchString(trimmed) {
			continue
		}
		if greekWordRE.MatchString(trimmed) || subscriptVarRE.MatchString(trimmed) {
			lines[i] = equationPlaceholder
		}
	}
	return strings.Join(lines, "\n")
}

// stripEmoji removes emoji by Unicode block range.
func stripEmoji(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x1F000 && r <= 0x1FAFF:
			return -1
		case r >= 0x2600 && r <= 0x27BF:
			return -1
		case r >= 0x2B00 && r <= 0x2BFF:
			return -1
		case r >= 0xFE00 && r <= 0xFE0F:
			return -1
		}
		return r
	}, s)
}

func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0x7F {
			return ' '
		}
		return r
	}, s)
}

var smartPunct = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`,
	"–", "-", "—", "-", "…", "...",
	" ", " ",
)

func normalizeSmartPunctuation(s string) string {
	return smartPunct.Replace(s)
}

// dedupeLines removes case-insensitive consecutive duplicate lines and
// collapses runs of blank lines to a single blank line.
func dedupeLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	prevKey := ""
	prevBlank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if prevBlank {
				continue
			}
			prevBlank = true
			out = append(out, "")
			continue
		}
		key := strings.ToLower(trimmed)
		if key == prevKey {
			continue
		}
		prevKey = key
		prevBlank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

var (
	horizSpaceRE = regexp.MustCompile(`[ \t]+`)
	blankRunRE   = regexp.MustCompile(`\n{3,}`)
	lineEdgeRE   = regexp.MustCompile(`(?m)[ \t]+$|^[ \t]+`)
)

// NormalizeWhitespace collapses horizontal whitespace runs, trims line edges
// and bounds blank-line runs. It is idempotent.
func NormalizeWhitespace(s string) string {
	s = horizSpaceRE.ReplaceAllString(s, " ")
	s = lineEdgeRE.ReplaceAllString(s, "")
	s = blankRunRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// truncateAtBoundary cuts s to at most maxLen bytes, preferring the last
// sentence or paragraph boundary inside the final fifth of the window; when
// none exists the cut is hard and marked with an ellipsis.
func truncateAtBoundary(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	window := s[:cut]
	searchFrom := cut - int(float64(maxLen)*truncateBoundaryWindow)
	if searchFrom < 0 {
		searchFrom = 0
	}

	best := -1
	for _, sep := range []string{"\n\n", ". ", "! ", "? "} {
		idx := strings.LastIndex(window, sep)
		if idx >= searchFrom {
			end := idx
			if sep != "\n\n" {
				end = idx + 1 // keep the sentence terminator
			}
			if end > best {
				best = end
			}
		}
	}
	if best > 0 {
		return strings.TrimSpace(window[:best])
	}
	return strings.TrimSpace(window) + "..."
}

var alphaWordRE = regexp.MustCompile(`\b[a-zA-Z]{2,}\b`)

func countAlphaWords(s string) int {
	return len(alphaWordRE.FindAllStringIndex(s, -1))
}

// WordCount counts whitespace-separated words, the measure used for excerpts
// and summary validation.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
