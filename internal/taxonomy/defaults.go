package taxonomy

import "github.com/Veraticus/the-bills-must-flow/internal/model"

type defaultCategory struct {
	name  string
	emoji string
	flow  model.FlowDirection
	subs  []string
}

var defaultCategories = []defaultCategory{
	{name: "餐饮", emoji: "🍔", flow: model.FlowExpense, subs: []string{"三餐", "咖啡", "奶茶", "食材", "柴米油盐", "零食", "水果"}},
	{name: "购物", emoji: "🛍", flow: model.FlowExpense, subs: []string{"鞋服", "日用", "数码", "包包", "厨房用品", "电器"}},
	{name: "交通", emoji: "🚘", flow: model.FlowExpense, subs: []string{"公交地铁", "打车", "共享单车", "私家车", "火车", "飞机票", "加油", "大巴"}},
	{name: "住宿", emoji: "🏠", flow: model.FlowExpense, subs: []string{"房租", "物业水电", "维修"}},
	{name: "日常", emoji: "📦", flow: model.FlowExpense, subs: []string{"快递", "理发"}},
	{name: "学习", emoji: "📚", flow: model.FlowExpense, subs: []string{"培训", "书籍", "文具耗材", "网课", "考试报名"}},
	{name: "人情", emoji: "💖", flow: model.FlowExpense, subs: []string{"送礼", "发红包", "请客", "亲密付", "孝心"}},
	{name: "娱乐", emoji: "🎮", flow: model.FlowExpense, subs: []string{"电影", "游戏", "健身", "休闲", "约会", "演唱会"}},
	{name: "美妆", emoji: "💄", flow: model.FlowExpense, subs: []string{"护肤品", "化妆品", "美容美发", "美甲美睫", "洗面奶"}},
	{name: "旅游", emoji: "✈", flow: model.FlowExpense, subs: []string{"酒店", "景区门票", "伴手礼", "团费"}},
	{name: "医疗", emoji: "💊", flow: model.FlowExpense, subs: []string{"就诊", "药品", "住院", "体检", "治疗", "保健"}},
	{name: "会员", emoji: "👑", flow: model.FlowExpense, subs: []string{"视频会员", "音乐会员", "办公软件", "社交会员", "书籍会员"}},
	{name: "通讯", emoji: "📞", flow: model.FlowExpense, subs: []string{"话费", "宽带"}},
	{name: model.CatchAllExpense, emoji: "🧩", flow: model.FlowExpense},
	{name: "工资", emoji: "💳", flow: model.FlowIncome},
	{name: "奖金", emoji: "🏆", flow: model.FlowIncome},
	{name: "理财", emoji: "📈", flow: model.FlowIncome},
	{name: "兼职", emoji: "🛠", flow: model.FlowIncome},
	{name: "生活费", emoji: "💰", flow: model.FlowIncome},
	{name: model.CatchAllIncome, emoji: "💎", flow: model.FlowIncome},
}

var (
	defaultNames = make(map[string]struct{})
	defaultSubs  = make(map[string]map[string]struct{})
)

func init() {
	for _, def := range defaultCategories {
		defaultNames[def.name] = struct{}{}
		subs := make(map[string]struct{}, len(def.subs))
		for _, sub := range def.subs {
			subs[sub] = struct{}{}
		}
		defaultSubs[def.name] = subs
	}
}

// Defaults returns the built-in category tree.
func Defaults() []model.Category {
	cats := make([]model.Category, 0, len(defaultCategories))
	for _, def := range defaultCategories {
		cat := model.Category{
			Name:  def.name,
			Emoji: def.emoji,
			Flow:  def.flow,
		}
		for _, sub := range def.subs {
			cat.Subcategories = append(cat.Subcategories, model.Subcategory{Name: sub, Emoji: model.DefaultEmoji})
		}
		cats = append(cats, cat)
	}
	return cats
}

// IsDefault reports whether name is a built-in primary category.
func IsDefault(name string) bool {
	_, ok := defaultNames[name]
	return ok
}

// IsDefaultSub reports whether parent/name is a built-in subcategory.
func IsDefaultSub(parent, name string) bool {
	_, ok := defaultSubs[parent][name]
	return ok
}
