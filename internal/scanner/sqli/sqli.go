package sqli

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/buemura/scanrun/internal/scanner/probe"
	"github.com/buemura/scanrun/pkg/types"
)

type payload struct {
	value string
	// destructive payloads could modify data on a vulnerable backend.
	destructive bool
}

// sqliPayloads are error-based SQL injection test vectors.
var sqliPayloads = []payload{
	{value: `'`},
	{value: `"`},
	{value: `' OR '1'='1`},
	{value: `' UNION SELECT NULL--`},
	{value: `1; DROP TABLE users--`, destructive: true},
	{value: `'; DELETE FROM users WHERE '1'='1`, destructive: true},
}

// sqlErrorPatterns are common database error signatures that indicate
// a SQL injection vulnerability when they appear in a response.
var sqlErrorPatterns = []string{
	"sql syntax",
	"mysql_fetch",
	"ora-0",
	"postgresql",
	"pg_query",
	"sqlite",
	"odbc",
	"unclosed quotation",
	"unterminated quoted string",
}

// payloadsFor returns the payloads allowed under the given mode.
func payloadsFor(nonDestructive bool) []payload {
	if !nonDestructive {
		return sqliPayloads
	}
	var out []payload
	for _, p := range sqliPayloads {
		if !p.destructive {
			out = append(out, p)
		}
	}
	return out
}

// CheckSQLi injects error-based payloads into each query parameter of rawURL
// and reports a finding when a database error signature shows up that was not
// already present in the unmodified response. It stops at the first hit per
// parameter and returns the findings with the number of parameters tested.
func CheckSQLi(ctx context.Context, client *probe.Client, rawURL string, nonDestructive bool) ([]types.Finding, int) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0
	}

	params := u.Query()
	if len(params) == 0 {
		return nil, 0
	}

	baseline := ""
	if resp, err := client.Get(ctx, rawURL); err == nil {
		baseline = strings.ToLower(resp.Body)
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []types.Finding
	for _, param := range names {
	payloads:
		for _, p := range payloadsFor(nonDestructive) {
			if ctx.Err() != nil {
				return findings, len(names)
			}

			testURL := replaceQueryParam(u, param, p.value)
			resp, err := client.Get(ctx, testURL)
			if err != nil {
				continue
			}

			lower := strings.ToLower(resp.Body)
			for _, pattern := range sqlErrorPatterns {
				if strings.Contains(lower, pattern) && !strings.Contains(baseline, pattern) {
					findings = append(findings, types.Finding{
						Check:    "sqli",
						Title:    "Potential SQL injection",
						Severity: types.SeverityCritical,
						URL:      testURL,
						Param:    param,
						Payload:  p.value,
						Evidence: fmt.Sprintf("error pattern %q in response (HTTP %d)", pattern, resp.StatusCode),
					})
					break payloads
				}
			}
		}
	}

	return findings, len(names)
}

func replaceQueryParam(u *url.URL, key, value string) string {
	copied := *u
	q := copied.Query()
	q.Set(key, value)
	copied.RawQuery = q.Encode()
	return copied.String()
}
