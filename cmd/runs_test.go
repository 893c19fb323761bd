package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parts-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "3f2b8c1e-9a7d-4e2f-8b1a-5c6d7e8f9a0b",
			Part:      model.PartRequest{PartNumber: "WR55X10025", Brand: "GE"},
			Status:    model.RunStatusComplete,
			Result:    &model.LookupResult{Outcome: model.OutcomeValidated},
			CreatedAt: created,
			UpdatedAt: created.Add(12 * time.Second),
		},
		{
			ID:        "short",
			Part:      model.PartRequest{PartNumber: "W10295370A"},
			Status:    model.RunStatusFetching,
			CreatedAt: created,
			UpdatedAt: created,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	assert.Contains(t, lines[0], "PART")
	assert.Contains(t, lines[2], "3f2b8c1e")
	assert.NotContains(t, lines[2], "9a7d")
	assert.Contains(t, lines[2], "WR55X10025 (GE)")
	assert.Contains(t, lines[2], "validated")
	assert.Contains(t, lines[2], "2025-03-14 09:26")
	assert.Contains(t, lines[2], "12s")
	assert.Contains(t, lines[3], "fetching")
	assert.Contains(t, lines[3], " - ")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("1234567890"))
	assert.Equal(t, "abc", truncateID("abc"))
}
