package service

import (
	"encoding/json"
	"strings"
)

// ParseState 两阶段解析的结果标签，调用方据此显式选择降级或失败
type ParseState int

const (
	ParseStateParsed   ParseState = iota // 去除围栏后直接解析成功
	ParseStateDegraded                   // 通过花括号截取兜底恢复
	ParseStateFailed                     // 无法恢复，Raw 保留原始文本
)

// ModelEvaluation 生成模型按约定 schema 返回的结构化评估。
// 可选字段缺失时保持缺失，默认值由调用方决定。
type ModelEvaluation struct {
	Level        string             `json:"level"`
	Confidence   *float64           `json:"confidence,omitempty"`
	Scores       map[string]float64 `json:"scores"`
	Explanation  string             `json:"explanation"`
	Improvements string             `json:"improvements,omitempty"`
}

// EvalParse 解析结果
type EvalParse struct {
	State ParseState
	Eval  *ModelEvaluation
	Raw   string
}

// Usable 解析出了可用的结构化结果
func (p EvalParse) Usable() bool {
	return p.State != ParseStateFailed
}

// ParseEvaluation 从模型的自由文本输出中提取结构化评估。
// 输出名义上包含一个 JSON 对象，可能被 markdown 代码围栏
// （带或不带 json 语言标记）或叙述性文字包裹。
// 第一阶段：剥掉围栏后直接解析；
// 第二阶段：截取首个 '{' 到末个 '}' 的片段再解析；
// 两阶段都失败时返回 ParseStateFailed 并保留原文。
func ParseEvaluation(raw string) EvalParse {
	text := stripFences(raw)

	var eval ModelEvaluation
	if err := json.Unmarshal([]byte(text), &eval); err == nil {
		return EvalParse{State: ParseStateParsed, Eval: &eval, Raw: raw}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if err := json.Unmarshal([]byte(candidate), &eval); err == nil {
			return EvalParse{State: ParseStateDegraded, Eval: &eval, Raw: raw}
		}
	}

	return EvalParse{State: ParseStateFailed, Raw: raw}
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// 围栏后可能带语言标记，如 ```json
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := strings.TrimSpace(text[:idx])
			if firstLine == "json" || firstLine == "" {
				text = text[idx+1:]
			}
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}
