package evals

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// csv 列名别名表, 兼容历史数据集的不同表头
var csvColumnAliases = map[string]string{
	"question":           "question",
	"问题":                 "question",
	"answer":             "answer",
	"答案":                 "answer",
	"answer_location":    "answer_location",
	"reference":          "reference",
	"reference_location": "reference",
	"标准答案":               "reference",
	"type":               "category",
	"category":           "category",
	"类型":                 "category",
	"theme":              "theme",
	"主题":                 "theme",
	"retrieved_context":  "retrieved_context",
	"retrieval_time":     "retrieval_time",
	"generation_time":    "generation_time",
}

// LoadDataset 按扩展名加载数据集文件, 支持 .csv 与 .json
func LoadDataset(path string) ([]TestCase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(f)
	case ".json":
		return LoadJSON(f)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s", filepath.Ext(path))
	}
}

// LoadCSV 从 CSV 读取测试用例。
// 首行为表头, 按别名表识别列; 容忍 UTF-8 BOM 与不齐的行宽。
func LoadCSV(r io.Reader) ([]TestCase, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	// 列名 -> 列号
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		name = strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := csvColumnAliases[name]; ok {
			columns[canonical] = i
		}
	}
	if _, ok := columns["question"]; !ok {
		return nil, fmt.Errorf("csv header missing question column")
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var cases []TestCase
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(cases)+2, err)
		}

		tc := TestCase{
			Question:         field(row, "question"),
			Answer:           field(row, "answer"),
			AnswerLocation:   field(row, "answer_location"),
			Reference:        field(row, "reference"),
			Category:         field(row, "category"),
			Theme:            field(row, "theme"),
			RetrievedContext: field(row, "retrieved_context"),
		}
		if v := field(row, "retrieval_time"); v != "" {
			tc.RetrievalTime, _ = strconv.ParseFloat(v, 64)
		}
		if v := field(row, "generation_time"); v != "" {
			tc.GenerationTime, _ = strconv.ParseFloat(v, 64)
		}

		// 跳过空行
		if tc.Question == "" && tc.Answer == "" {
			continue
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

// LoadJSON 从 JSON 读取测试用例。
// 支持顶层数组或 {"cases": [...]} 两种形式。
func LoadJSON(r io.Reader) ([]TestCase, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json dataset: %w", err)
	}
	data = []byte(strings.TrimPrefix(string(data), "\ufeff"))

	var cases []TestCase
	if err := json.Unmarshal(data, &cases); err == nil {
		return cases, nil
	}

	var wrapper struct {
		Cases []TestCase `json:"cases"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse json dataset: %w", err)
	}
	return wrapper.Cases, nil
}
