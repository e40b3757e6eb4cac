package xssreflected

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/buemura/scanrun/internal/scanner/probe"
	"github.com/buemura/scanrun/pkg/types"
)

// xssPayloads are common reflected XSS test vectors. Each carries a marker
// unlikely to occur in a page by accident.
var xssPayloads = []string{
	`<script>alert('xr7q')</script>`,
	`"><img src=x onerror=alert('xr7q')>`,
	`'><svg/onload=alert('xr7q')>`,
}

// CheckReflectedXSS tests each query parameter of rawURL by substituting the
// payloads one at a time and looking for them unescaped in the response body.
// It stops at the first reflecting payload per parameter and returns the
// findings together with the number of parameters tested.
func CheckReflectedXSS(ctx context.Context, client *probe.Client, rawURL string) ([]types.Finding, int) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0
	}

	params := u.Query()
	if len(params) == 0 {
		return nil, 0
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []types.Finding
	for _, param := range names {
		for _, payload := range xssPayloads {
			if ctx.Err() != nil {
				return findings, len(names)
			}

			testURL := replaceQueryParam(u, param, payload)
			resp, err := client.Get(ctx, testURL)
			if err != nil {
				continue
			}

			if strings.Contains(resp.Body, payload) {
				findings = append(findings, types.Finding{
					Check:    "xss_reflected",
					Title:    "Potential reflected XSS",
					Severity: types.SeverityHigh,
					URL:      testURL,
					Param:    param,
					Payload:  payload,
					Evidence: fmt.Sprintf("payload reflected unescaped (HTTP %d)", resp.StatusCode),
				})
				break
			}
		}
	}

	return findings, len(names)
}

// replaceQueryParam returns a copy of u with the given query parameter
// value replaced.
func replaceQueryParam(u *url.URL, key, value string) string {
	copied := *u
	q := copied.Query()
	q.Set(key, value)
	copied.RawQuery = q.Encode()
	return copied.String()
}
