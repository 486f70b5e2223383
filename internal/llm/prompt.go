package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/the-bills-must-flow/internal/service"
)

const systemPrompt = "你是一个只输出 JSON 的账单分类器。不要输出思考过程（<think>），" +
	"不要解释结果，不要使用 Markdown 代码块，直接输出一个 JSON 对象。"

// noHints stands in for an empty hint list.
const noHints = "无"

const examples = `// 匹配现有分类
输入: [{"desc": "美团-村上一屋·日料", "amount": -20.0, "unique_id": "ex1"}]
输出: {"ex1": {"suggestion": "餐饮 - 三餐", "isNew": false, "fallback": "餐饮"}}

// 发现新分类，名称尽量简短
输入: [{"desc": "北京鸿笙科技-标准洗", "amount": -2.25, "unique_id": "ex2"}]
输出: {"ex2": {"suggestion": "洗衣", "isNew": true, "fallback": "日常"}}

输入: [{"desc": "印之梦联营-自助打印", "amount": -0.75, "unique_id": "ex3"}]
输出: {"ex3": {"suggestion": "办公", "isNew": true, "fallback": "学习"}}`

// promptItem is the wire shape of one group in the user prompt.
// Expenses carry a negative amount.
type promptItem struct {
	Desc     string      `json:"desc"`
	Amount   json.Number `json:"amount"`
	TypeHint string      `json:"type_hint"`
	UniqueID string      `json:"unique_id"`
}

// buildPrompt renders the user prompt for one batch.
func buildPrompt(req service.BatchRequest) (string, error) {
	expense, err := json.Marshal(req.Taxonomy.Expense)
	if err != nil {
		return "", fmt.Errorf("failed to encode expense tree: %w", err)
	}
	income, err := json.Marshal(req.Taxonomy.Income)
	if err != nil {
		return "", fmt.Errorf("failed to encode income tree: %w", err)
	}

	items := make([]promptItem, 0, len(req.Items))
	for _, item := range req.Items {
		amount := item.Amount.Abs()
		if !item.Flow.IsIncome() {
			amount = amount.Neg()
		}
		items = append(items, promptItem{
			Desc:     item.Description,
			Amount:   json.Number(amount.String()),
			TypeHint: string(item.Flow),
			UniqueID: item.Token,
		})
	}
	itemJSON, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode items: %w", err)
	}

	var b strings.Builder
	b.WriteString("### 任务\n")
	b.WriteString("作为财务分类专家，请根据现有分类体系和用户偏好，为每条账单匹配最合适的分类。\n\n")
	b.WriteString("### 1. 现有分类体系\n")
	fmt.Fprintf(&b, "支出树 (Expense): %s\n", expense)
	fmt.Fprintf(&b, "收入树 (Income): %s\n\n", income)
	b.WriteString("### 2. 用户个性化偏好\n")
	b.WriteString(formatHints(req.Personalizations))
	b.WriteString("\n\n### 3. 示例\n")
	b.WriteString(examples)
	b.WriteString("\n\n### 4. 约束\n")
	b.WriteString("- 优先建议 '一级分类 - 二级分类'。确实没有合适分类时才新建，且只给出一级分类名，isNew 为 true。\n")
	b.WriteString("- fallback 必须是与 type_hint 同方向的【现有】一级分类。\n\n")
	b.WriteString("### 5. 输出要求\n")
	b.WriteString("- 严格返回一个 JSON 对象，键为 unique_id，值包含 suggestion、isNew、fallback。\n")
	b.WriteString("- 不要输出 Markdown 或任何额外文字。\n\n")
	b.WriteString("### 6. 待处理明细\n")
	b.Write(itemJSON)

	return b.String(), nil
}

// formatHints joins the user's hints as a bullet list, or "无" when there are none.
func formatHints(hints []string) string {
	cleaned := make([]string, 0, len(hints))
	for _, h := range hints {
		if h = strings.TrimSpace(h); h != "" {
			cleaned = append(cleaned, h)
		}
	}
	if len(cleaned) == 0 {
		return noHints
	}
	return "- " + strings.Join(cleaned, "\n- ")
}
