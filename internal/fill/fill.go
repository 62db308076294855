// Package fill produces values for a task's unset fields. The production
// implementation asks a language model; StaticFiller serves tests and
// deterministic deployments.
package fill

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/sjson"

	"github.com/swarmflow/swarmflow/pkg/api"
)

// Filler generates a value for every field in fields. extra, when
// non-empty, is supplementary material such as a fetched report body.
type Filler interface {
	Fill(ctx context.Context, fields []api.Field, extra string) (map[string]any, error)
}

// StaticFiller returns canned values keyed by field name. Fields without an
// entry are filled with the fallback.
type StaticFiller struct {
	Values   map[string]any
	Fallback any
}

var _ Filler = (*StaticFiller)(nil)

func (s *StaticFiller) Fill(ctx context.Context, fields []api.Field, _ string) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := s.Values[f.Name]; ok {
			out[f.Name] = v
			continue
		}
		out[f.Name] = s.Fallback
	}
	return out, nil
}

// fieldSkeleton renders the unset fields as a JSON object with null values,
// the shape the model is asked to fill in.
func fieldSkeleton(fields []api.Field) (string, error) {
	doc := "{}"
	for _, f := range fields {
		var err error
		doc, err = sjson.SetRaw(doc, escapePath(f.Name), "null")
		if err != nil {
			return "", fmt.Errorf("build field skeleton: %w", err)
		}
	}
	return doc, nil
}

// escapePath protects field names containing sjson path syntax.
func escapePath(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			out = append(out, '\\')
		}
		out = append(out, name[i])
	}
	return string(out)
}

// maxReportSize caps how much of a report body is attached to a fill prompt.
const maxReportSize = 64 << 10

// FetchReport retrieves supplementary context for a task from its report
// reference.
func FetchReport(ctx context.Context, client *http.Client, url string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch report: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch report: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportSize))
	if err != nil {
		return "", fmt.Errorf("read report body: %w", err)
	}
	return string(body), nil
}
