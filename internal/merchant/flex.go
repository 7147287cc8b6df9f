// Package merchant contains the affiliate network clients used as search
// merchants.
package merchant

import (
    "bytes"
    "encoding/json"
    "strconv"
    "strings"
)

// flexString accepts a JSON string or number.  Affiliate APIs are not
// consistent about which one they send for ids and rates.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    if len(b) == 0 || string(b) == "null" {
        *f = ""
        return nil
    }
    if b[0] == '"' {
        var s string
        if err := json.Unmarshal(b, &s); err != nil {
            return err
        }
        *f = flexString(s)
        return nil
    }
    *f = flexString(b)
    return nil
}

func (f flexString) String() string { return string(f) }

func (f flexString) Float() float64 {
    v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(string(f), "%")), 64)
    if err != nil {
        return 0
    }
    return v
}

// pictures accepts either a single URL or a list of URLs.
type pictures []string

func (p *pictures) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    if len(b) == 0 || string(b) == "null" {
        *p = nil
        return nil
    }
    if b[0] == '"' {
        var s string
        if err := json.Unmarshal(b, &s); err != nil {
            return err
        }
        *p = pictures{s}
        return nil
    }
    var list []string
    if err := json.Unmarshal(b, &list); err != nil {
        return err
    }
    *p = list
    return nil
}

// normalizeRate turns percentages like 5.5 into fractions like 0.055.
func normalizeRate(r float64) float64 {
    if r > 1 {
        return r / 100
    }
    return r
}
