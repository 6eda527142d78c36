package service

import (
	"strconv"
	"strings"
	"time"

	"leadhub-data/internal/domain"
)

// csvColumns 导出列（固定顺序）。导入时同名列被识别，未知列忽略。
var csvColumns = []string{
	"fullName",
	"phone",
	"email",
	"city",
	"propertyType",
	"bhk",
	"purpose",
	"budgetMin",
	"budgetMax",
	"timeline",
	"source",
	"status",
	"notes",
	"tags",
	"updatedAt",
}

// csvRequiredColumns 导入表头必须包含的列，缺一整体拒绝
var csvRequiredColumns = []string{
	"fullName", "phone", "city", "propertyType", "purpose", "timeline", "source",
}

// escapeCSV 字段含逗号/引号/换行时加引号，内嵌引号成对转义
func escapeCSV(value string) string {
	if strings.ContainsAny(value, "\",\n\r") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intOrEmpty(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// encodeBuyersCSV 导出lead列表为CSV。时间戳用RFC3339（UTC），空值渲染为空串。
func encodeBuyersCSV(buyers []*domain.Buyer) []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(csvColumns, ","))
	sb.WriteByte('\n')

	for _, b := range buyers {
		row := []string{
			escapeCSV(b.FullName),
			escapeCSV(b.Phone),
			escapeCSV(strOrEmpty(b.Email)),
			escapeCSV(b.City),
			escapeCSV(b.PropertyType),
			escapeCSV(strOrEmpty(b.BHK)),
			escapeCSV(b.Purpose),
			escapeCSV(intOrEmpty(b.BudgetMin)),
			escapeCSV(intOrEmpty(b.BudgetMax)),
			escapeCSV(b.Timeline),
			escapeCSV(b.Source),
			escapeCSV(b.Status),
			escapeCSV(strOrEmpty(b.Notes)),
			escapeCSV(strOrEmpty(b.Tags)),
			escapeCSV(b.UpdatedAt.UTC().Format(time.RFC3339)),
		}
		sb.WriteString(strings.Join(row, ","))
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// parseCSV 解析CSV文本为表头和数据行。
// 逐字符扫描，只有 引号内/引号外 两个状态；引号内允许逗号和换行，
// 成对引号表示一个字面引号。行结束符统一归一为 \n，空行跳过。
// 单元格两端空白去除，首行为表头。
func parseCSV(text string) (headers []string, rows [][]string) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	all := [][]string{}
	fields := []string{}
	var current strings.Builder
	inQuotes := false
	fieldStarted := false

	flushField := func() {
		fields = append(fields, strings.TrimSpace(current.String()))
		current.Reset()
	}
	flushRow := func() {
		flushField()
		// 完全空白的行跳过
		empty := true
		for _, f := range fields {
			if f != "" {
				empty = false
				break
			}
		}
		if !empty {
			all = append(all, fields)
		}
		fields = []string{}
		fieldStarted = false
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if inQuotes {
			if ch == '"' && i+1 < len(runes) && runes[i+1] == '"' {
				current.WriteRune('"')
				i++
			} else if ch == '"' {
				inQuotes = false
			} else {
				current.WriteRune(ch)
			}
			continue
		}
		switch ch {
		case ',':
			flushField()
			fieldStarted = true
		case '"':
			inQuotes = true
			fieldStarted = true
		case '\n':
			flushRow()
		default:
			current.WriteRune(ch)
			fieldStarted = true
		}
	}
	if fieldStarted || current.Len() > 0 || len(fields) > 0 {
		flushRow()
	}

	if len(all) == 0 {
		return []string{}, [][]string{}
	}
	return all[0], all[1:]
}

// mapCSVRow 按表头取值，列缺失返回空串
func mapCSVRow(headers []string, row []string) map[string]string {
	m := make(map[string]string, len(headers))
	for i, h := range headers {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		m[h] = v
	}
	return m
}

// missingCSVColumns 返回表头中缺失的必需列
func missingCSVColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	missing := []string{}
	for _, c := range csvRequiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
