package clientcli_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/cannedreports/clientcli"
)

func intPtr(v int) *int { return &v }

func TestNewFormatter(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		formatter := clientcli.NewFormatter(true, false)
		_, ok := formatter.(*clientcli.JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("human formatter quiet", func(t *testing.T) {
		formatter := clientcli.NewFormatter(false, true)
		hf, ok := formatter.(*clientcli.HumanFormatter)
		require.True(t, ok)
		assert.True(t, hf.Quiet)
	})
}

func TestHumanFormatter_FormatReport(t *testing.T) {
	report := &clientcli.ReportInfo{
		Identifier:    "5f0c6a8e",
		Name:          "Q3 revenue",
		Description:   "quarterly numbers",
		ContentType:   "text/csv",
		ContentLength: 2048,
		Revision:      intPtr(1),
		RevisionCount: intPtr(2),
	}

	t.Run("full", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatReport(&buf, "Updated", report))

		output := buf.String()
		assert.Contains(t, output, "Updated: 5f0c6a8e")
		assert.Contains(t, output, "Name:        Q3 revenue")
		assert.Contains(t, output, "Description: quarterly numbers")
		assert.Contains(t, output, "Revision:    1 of 2")
		assert.Contains(t, output, "Type:        text/csv")
		assert.Contains(t, output, "2.0 KB")
	})

	t.Run("quiet prints the identifier", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatReport(&buf, "Uploaded", report))
		assert.Equal(t, "5f0c6a8e\n", buf.String())
	})
}

func TestHumanFormatter_FormatGet(t *testing.T) {
	result := &clientcli.GetResult{
		Report:    clientcli.ReportInfo{Identifier: "r1", Revision: intPtr(0)},
		LocalPath: "out/report.csv",
		Size:      12,
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatGet(&buf, result))
	assert.Equal(t, "Downloaded: r1 (revision 0) -> out/report.csv (12 B)\n", buf.String())

	buf.Reset()
	require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatGet(&buf, result))
	assert.Empty(t, buf.String())
}

func TestHumanFormatter_FormatDelete(t *testing.T) {
	results := []clientcli.DeleteResult{
		{Identifier: "r1", Deleted: true},
		{Identifier: "r2", Revision: "-1", Err: errors.New("not found")},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatDelete(&buf, results))

	output := buf.String()
	assert.Contains(t, output, "Deleted: r1")
	assert.Contains(t, output, "Error: r2/-1 - not found")
}

func TestHumanFormatter_FormatList(t *testing.T) {
	t.Run("with reports", func(t *testing.T) {
		reports := []clientcli.ReportInfo{
			{Identifier: "r1", Name: "Monthly sales", ContentType: "text/csv", ContentLength: 1024},
			{Identifier: "r2", Name: "Churn", ContentType: "application/pdf", ContentLength: 2048},
		}

		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatList(&buf, reports))

		output := buf.String()
		assert.Contains(t, output, "IDENTIFIER")
		assert.Contains(t, output, "Monthly sales")
		assert.Contains(t, output, "application/pdf")
		assert.Contains(t, output, "2 report(s)")
		assert.Contains(t, output, "3.0 KB total")
	})

	t.Run("empty list", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{}).FormatList(&buf, nil))
		assert.Contains(t, buf.String(), "No reports found")
	})

	t.Run("quiet lists identifiers", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, (&clientcli.HumanFormatter{Quiet: true}).FormatList(&buf, []clientcli.ReportInfo{{Identifier: "a"}, {Identifier: "b"}}))
		assert.Equal(t, "a\nb\n", buf.String())
	})
}

func TestJSONFormatter_FormatReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&clientcli.JSONFormatter{}).FormatReport(&buf, "Uploaded", &clientcli.ReportInfo{
		Identifier:    "r1",
		Name:          "Q3",
		Revision:      intPtr(0),
		RevisionCount: intPtr(1),
	}))

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "r1", output["identifier"])
	assert.Equal(t, "Q3", output["name"])
	assert.InDelta(t, 0, output["revision"], 0)
	assert.InDelta(t, 1, output["revision_count"], 0)
	assert.NotContains(t, output, "description")
}

func TestJSONFormatter_FormatList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&clientcli.JSONFormatter{}).FormatList(&buf, nil))

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, []any{}, output["reports"])
	assert.InDelta(t, 0, output["total_bytes"], 0)
}

func TestJSONFormatter_FormatDelete(t *testing.T) {
	results := []clientcli.DeleteResult{
		{Identifier: "r1", Deleted: true},
		{Identifier: "r2", Deleted: false, Err: errors.New("not found")},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.JSONFormatter{}).FormatDelete(&buf, results))

	var output map[string][]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	assert.Len(t, output["results"], 2)
	assert.Equal(t, "r1", output["results"][0]["identifier"])
	assert.Equal(t, true, output["results"][0]["deleted"])
	assert.Equal(t, "r2", output["results"][1]["identifier"])
	assert.Equal(t, false, output["results"][1]["deleted"])
	assert.Equal(t, "not found", output["results"][1]["error"])
}

func TestJSONFormatter_FormatError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&clientcli.JSONFormatter{}).FormatError(&buf, errors.New("test error")))

	var output map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "test error", output["error"])
}

func TestFormatProfiles_MaskToken(t *testing.T) {
	profiles := []clientcli.Profile{
		{Name: "prod", Endpoint: "https://reports.example.com", Token: "abcdefghijklmnop"},
		{Name: "local", Endpoint: "http://localhost:5708"},
	}

	var buf bytes.Buffer
	require.NoError(t, (&clientcli.HumanFormatter{}).FormatProfileList(&buf, profiles, "prod", false))
	output := buf.String()
	assert.Contains(t, output, "* prod")
	assert.Contains(t, output, "abcd...mnop")
	assert.Contains(t, output, "(not set)")
	assert.NotContains(t, output, "abcdefghijklmnop")

	buf.Reset()
	require.NoError(t, (&clientcli.JSONFormatter{}).FormatProfileShow(&buf, profiles[0], true, true))
	var shown map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &shown))
	assert.Equal(t, "abcdefghijklmnop", shown["token"])
	assert.Equal(t, true, shown["default"])
}
