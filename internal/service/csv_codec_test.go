package service

import (
	"strings"
	"testing"
	"time"

	"leadhub-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestParseCSV_SimpleRows(t *testing.T) {
	headers, rows := parseCSV("a,b,c\n1,2,3\n4,5,6\n")

	assert.Equal(t, []string{"a", "b", "c"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2", "3"}, rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, rows[1])
}

func TestParseCSV_QuotedFields(t *testing.T) {
	text := `name,notes
John,"likes 2BHK, near station"
Jane,"said ""call me"" tomorrow"`

	headers, rows := parseCSV(text)

	assert.Equal(t, []string{"name", "notes"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "likes 2BHK, near station", rows[0][1])
	assert.Equal(t, `said "call me" tomorrow`, rows[1][1])
}

func TestParseCSV_EmbeddedNewlines(t *testing.T) {
	text := "name,notes\nJohn,\"line one\nline two\"\nJane,plain"

	headers, rows := parseCSV(text)

	assert.Equal(t, []string{"name", "notes"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, "line one\nline two", rows[0][1])
	assert.Equal(t, "plain", rows[1][1])
}

func TestParseCSV_NormalizesLineEndings(t *testing.T) {
	headers, rows := parseCSV("a,b\r\n1,2\r3,4\r\n")

	assert.Equal(t, []string{"a", "b"}, headers)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2"}, rows[0])
	assert.Equal(t, []string{"3", "4"}, rows[1])
}

func TestParseCSV_SkipsBlankLinesAndTrims(t *testing.T) {
	headers, rows := parseCSV("  a  , b \n\n  1 ,2 \n   \n")

	assert.Equal(t, []string{"a", "b"}, headers)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "2"}, rows[0])
}

func TestParseCSV_Empty(t *testing.T) {
	headers, rows := parseCSV("")
	assert.Empty(t, headers)
	assert.Empty(t, rows)
}

func TestEncodeBuyersCSV_HeaderAndEscaping(t *testing.T) {
	updated := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	buyers := []*domain.Buyer{
		{
			FullName:     `Rahul "Bob" Sharma`,
			Phone:        "9876543210",
			Email:        strPtr("rahul@example.com"),
			City:         "Pune",
			PropertyType: "Apartment",
			Purpose:      "Buy",
			BudgetMin:    intPtr(5000000),
			Timeline:     "3-6m",
			Source:       "Website",
			Status:       "New",
			Notes:        strPtr("wants 2BHK, near metro\nsecond line"),
			Tags:         strPtr("Urgent, NRI"),
			UpdatedAt:    updated,
		},
	}

	out := string(encodeBuyersCSV(buyers))
	lines := strings.SplitN(out, "\n", 2)

	assert.Equal(t,
		"fullName,phone,email,city,propertyType,bhk,purpose,budgetMin,budgetMax,timeline,source,status,notes,tags,updatedAt",
		lines[0])
	assert.Contains(t, out, `"Rahul ""Bob"" Sharma"`)
	assert.Contains(t, out, `"wants 2BHK, near metro`+"\n"+`second line"`)
	assert.Contains(t, out, `"Urgent, NRI"`)
	assert.Contains(t, out, "2025-03-01T10:30:00Z")
	// 空的可选字段渲染为空串
	assert.Contains(t, out, ",5000000,,3-6m")
}

func TestCSV_RoundTrip(t *testing.T) {
	buyers := []*domain.Buyer{
		{
			FullName:     "Asha Rao",
			Phone:        "9000000001",
			City:         "Mumbai",
			PropertyType: "Villa",
			Purpose:      "Buy",
			Timeline:     "0-3m",
			Source:       "Referral",
			Status:       "Qualified",
			Notes:        strPtr(`has "budget", flexible` + "\nprefers sea view"),
			Tags:         strPtr("Hot, Premium"),
			BudgetMin:    intPtr(100),
			BudgetMax:    intPtr(200),
			UpdatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}

	headers, rows := parseCSV(string(encodeBuyersCSV(buyers)))
	require.Len(t, rows, 1)

	cells := mapCSVRow(headers, rows[0])
	assert.Equal(t, "Asha Rao", cells["fullName"])
	assert.Equal(t, "Villa", cells["propertyType"])
	assert.Equal(t, "100", cells["budgetMin"])
	assert.Equal(t, "200", cells["budgetMax"])
	assert.Equal(t, "Hot, Premium", cells["tags"])
	// 引号与换行经 编码→解析 后保持原值（两端空白除外）
	assert.Equal(t, `has "budget", flexible`+"\nprefers sea view", cells["notes"])
}

func TestMissingCSVColumns(t *testing.T) {
	missing := missingCSVColumns([]string{"fullName", "phone", "city", "purpose", "timeline", "source"})
	assert.Equal(t, []string{"propertyType"}, missing)

	assert.Empty(t, missingCSVColumns(csvColumns))
}
