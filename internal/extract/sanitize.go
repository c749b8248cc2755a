// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// replacer maps publisher typography onto plain equivalents that survive
// any downstream document format.
var replacer = strings.NewReplacer(
	// Special spaces.
	"\u202f", " ", "\u2009", " ", "\u200a", " ", "\u2008", " ", "\u2007", " ",
	"\u2006", " ", "\u2005", " ", "\u2004", " ", "\u2003", " ", "\u2002", " ",
	"\u00a0", " ",
	// Zero width.
	"\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "", "\u2060", "",
	// Dashes.
	"\u2010", "-", "\u2011", "-", "\u2012", "-", "\u2013", "-", "\u2014", "--", "\u2212", "-",
	// Quotes.
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "〝", `"`, "〞", `"`,
	// Math.
	"≤", "<=", "≥", ">=", "≠", "!=", "±", "+/-", "×", "x",
	"÷", "/", "∞", "infinity", "≈", "~",
	"…", "...",
	// Bullets and markers.
	"•", "*", "‣", ">", "⁃", "-", "⁌", "!!", "⁇", "??",
	// Fractions.
	"½", "1/2", "⅓", "1/3", "⅔", "2/3", "¼", "1/4", "¾", "3/4",
	"⅛", "1/8", "⅜", "3/8", "⅝", "5/8", "⅞", "7/8",
	// Arrows.
	"←", "<-", "→", "->", "↔", "<->", "⇒", "=>",
	// Marks and units.
	"©", "(c)", "®", "(R)", "™", "(TM)", "°", " degrees",
	"μ", "u", "α", "alpha", "β", "beta", "Δ", "Delta",
	// Ligatures.
	"ﬀ", "ff", "ﬁ", "fi", "ﬂ", "fl", "ﬃ", "ffi", "ﬄ", "ffl",
	"ﬅ", "st", "ﬆ", "st", "œ", "oe", "Œ", "OE", "æ", "ae", "Æ", "AE",
)

// Sanitize normalizes extracted text: NFC composition, typographic
// replacement, control character removal and whitespace collapse. Input is
// already-decoded text, so entity-like sequences are kept literally.
// Paragraph breaks survive as single blank lines.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = replacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	var b strings.Builder
	blank := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			continue
		}
		if b.Len() > 0 {
			if blank > 0 {
				b.WriteString("\n\n")
			} else {
				b.WriteByte('\n')
			}
		}
		blank = 0
		b.WriteString(line)
	}
	return b.String()
}
