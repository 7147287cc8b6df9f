// Package search turns free-text shopping queries into ranked product
// lists drawn from one or more merchants.
package search

import (
    "regexp"
    "strconv"
    "strings"
    "unicode/utf8"
)

// MaxKeywords bounds the expanded keyword set.
const MaxKeywords = 10

var (
    maxPriceRe = regexp.MustCompile(`(?i)(?:\b(?:under|below|within|less than|budget)|ไม่เกิน|ราคา|<)\s*[฿$]?\s*(\d[\d,]*(?:\.\d+)?)`)
    minPriceRe = regexp.MustCompile(`(?i)(?:\b(?:over|above|more than)|>)\s*[฿$]?\s*(\d[\d,]*(?:\.\d+)?)`)
    nonWordRe  = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]+`)
)

// Query is a parsed search request.
type Query struct {
    Raw      string   // original input
    Terms    []string // cleaned words in input order, before expansion
    Keywords []string // Terms plus synonyms, at most MaxKeywords
    MinPrice float64
    MaxPrice float64
    HasMin   bool
    HasMax   bool
}

// Text returns the cleaned terms joined by single spaces.
func (q Query) Text() string { return strings.Join(q.Terms, " ") }

// Parse extracts price constraints from raw, removes them and the noise
// words, and expands what is left through the synonym table.
func Parse(raw string) Query {
    q := Query{Raw: raw}
    text := raw

    if m := maxPriceRe.FindStringSubmatchIndex(text); m != nil {
        if v, ok := parsePrice(text[m[2]:m[3]]); ok {
            q.MaxPrice, q.HasMax = v, true
        }
        text = text[:m[0]] + " " + text[m[1]:]
    }
    if m := minPriceRe.FindStringSubmatchIndex(text); m != nil {
        if v, ok := parsePrice(text[m[2]:m[3]]); ok {
            q.MinPrice, q.HasMin = v, true
        }
        text = text[:m[0]] + " " + text[m[1]:]
    }

    q.Terms = terms(text)
    q.Keywords = expand(q.Terms)
    return q
}

func parsePrice(s string) (float64, bool) {
    v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
    if err != nil || v < 0 {
        return 0, false
    }
    return v, true
}

func terms(text string) []string {
    text = nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
    var out []string
    for _, w := range strings.Fields(text) {
        if utf8.RuneCountInString(w) < 2 {
            continue
        }
        if _, stop := stopwords[w]; stop {
            continue
        }
        out = append(out, w)
    }
    return out
}

func expand(words []string) []string {
    seen := make(map[string]struct{}, MaxKeywords)
    out := make([]string, 0, MaxKeywords)
    add := func(w string) {
        if _, ok := seen[w]; ok {
            return
        }
        seen[w] = struct{}{}
        out = append(out, w)
    }
    for _, w := range words {
        add(w)
        for _, g := range synonyms {
            if g.matches(w) {
                for _, s := range g.words {
                    add(s)
                }
            }
        }
    }
    if len(out) > MaxKeywords {
        out = out[:MaxKeywords]
    }
    return out
}
