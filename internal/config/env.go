package config

import (
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"
)

// must retrieves the value of a required environment variable.
func must(key string) (string, error) {
    v, ok := os.LookupEnv(key)
    if !ok || strings.TrimSpace(v) == "" {
        return "", fmt.Errorf("missing required env var: %s", key)
    }
    return v, nil
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }

func envBool(k string, d bool) bool {
    v := os.Getenv(k)
    if v == "" { return d }
    switch v {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON": return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF": return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}

// envList splits a comma separated variable, dropping empty items.
func envList(k string, d []string) []string {
    v := os.Getenv(k)
    if v == "" { return d }
    var out []string
    for _, p := range strings.Split(v, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
